package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/remindd/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{refreshTickCmd(m.opts.RefreshEvery)}
	if m.deliveries != nil {
		cmds = append(cmds, waitForDeliveryCmd(m.deliveries))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed), nil
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active", IsError: false}
			return m, nil
		case m.Keys.Pending:
			m.CurrentView = ViewPending
			return m, nil
		case m.Keys.Agenda:
			m.CurrentView = ViewAgenda
			return m, nil
		case m.Keys.Log:
			m.CurrentView = ViewLog
			return m, nil
		case m.Keys.Refresh:
			return m.settle("refreshed"), nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown", IsError: false}
			} else {
				m.Status = StatusBar{Text: "help hidden", IsError: false}
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewPending {
			return m.handlePendingKey(typed)
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case RefreshMsg:
		return m.reload(), nil
	case refreshTickMsg:
		return m.reload(), refreshTickCmd(m.opts.RefreshEvery)
	case DeliveryMsg:
		m.pushDelivery(typed.Delivery)
		m = m.settle(fmt.Sprintf("delivered %s: %s", codeLabel(typed.Delivery.Notification.RequestCode), typed.Delivery.Notification.Title))
		if m.deliveries != nil {
			return m, waitForDeliveryCmd(m.deliveries)
		}
		return m, nil
	case deliveriesClosedMsg:
		m.deliveries = nil
		return m, nil
	}

	return m, nil
}

func (m Model) handlePendingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Delete:
		entry, ok := m.selectedEntry()
		if !ok {
			m.Status = StatusBar{Text: "no reminder selected", IsError: true}
			return m, nil
		}
		ctx, cancel := m.opContext()
		defer cancel()
		if err := m.backend.DeleteByRequestCode(ctx, entry.RequestCode); err != nil {
			return m.fail(err), nil
		}
		return m.settle(fmt.Sprintf("deleted %s", codeLabel(entry.RequestCode))), nil
	case m.Keys.Cancel:
		entry, ok := m.selectedEntry()
		if !ok {
			m.Status = StatusBar{Text: "no reminder selected", IsError: true}
			return m, nil
		}
		ctx, cancel := m.opContext()
		defer cancel()
		n, err := m.backend.CancelNotificationsForNote(ctx, entry.NoteID)
		if err != nil {
			return m.fail(err), nil
		}
		return m.settle(fmt.Sprintf("cancelled %d wake-up(s) for note %s", n, entry.NoteID)), nil
	}
	var cmd tea.Cmd
	m.pendingTable, cmd = m.pendingTable.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewPending:
		leftPane = m.renderPendingView()
		rightPane = m.renderSelectedView()
	case ViewAgenda:
		leftPane = m.renderAgendaView()
		rightPane = m.renderIndicatorsView()
	case ViewLog:
		leftPane = m.renderLogView()
		rightPane = m.renderLastDeliveryView()
	}
	rightPane = strings.TrimSpace(strings.Join([]string{rightPane, m.renderCommandPalette(), m.renderHelpIfVisible()}, "\n"))

	unarmed := ""
	if len(m.Unarmed) > 0 {
		labels := make([]string, 0, len(m.Unarmed))
		for _, code := range m.Unarmed {
			labels = append(labels, codeLabel(code))
		}
		unarmed = views.RenderNotification("warn", "not armed: "+strings.Join(labels, " "))
	}

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("remindd | pending: %d | tz: %s", len(m.Entries), m.location()),
		Tabs:         []string{string(ViewPending), string(ViewAgenda), string(ViewLog)},
		ActiveTab:    string(m.CurrentView),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: strings.TrimSpace(unarmed),
		Footer: fmt.Sprintf("keys: %s pending | %s agenda | %s log | / cmd | %s delete | %s cancel | %s refresh | %s help | %s quit",
			m.Keys.Pending, m.Keys.Agenda, m.Keys.Log, m.Keys.Delete, m.Keys.Cancel, m.Keys.Refresh, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewPending, ViewAgenda, ViewLog:
		return true
	default:
		return false
	}
}
