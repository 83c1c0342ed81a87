package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/views"
)

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
}

func (m Model) renderPendingView() string {
	return views.RenderPendingPanel(views.PendingPanelData{
		TableView: m.pendingTable.View(),
		Count:     len(m.Entries),
	})
}

func (m Model) renderSelectedView() string {
	entry, ok := m.selectedEntry()
	if !ok {
		return views.RenderReminderDetail(views.ReminderDetailData{})
	}
	data := views.ReminderDetailData{
		Code:    codeLabel(entry.RequestCode),
		NoteID:  entry.NoteID,
		Title:   entry.Title,
		Message: entry.Message,
		When:    formatWhen(entry.TriggerTime(m.location())),
		Repeat:  string(entry.RepeatMode),
	}
	if entry.Armed {
		data.ArmedAt = formatWhen(entry.ArmedAt.In(m.location()))
	}
	return views.RenderReminderDetail(data)
}

func (m Model) renderAgendaView() string {
	loc := m.location()
	today := startOfDay(m.now())
	days := make([]views.AgendaDayData, 0, m.opts.AgendaDays)
	for i := 0; i < m.opts.AgendaDays; i++ {
		day := today.AddDate(0, 0, i)
		data := views.AgendaDayData{Date: day.Format("Mon 2006-01-02"), Marked: m.isIndicator(day)}
		for _, a := range m.Agenda {
			at := a.At.In(loc)
			if !sameDay(at, day) {
				continue
			}
			data.Items = append(data.Items, views.AgendaItemData{
				Code:   codeLabel(a.Notification.RequestCode),
				Time:   at.Format("15:04"),
				Repeat: string(a.Notification.RepeatMode),
				Title:  a.Notification.Title,
			})
		}
		days = append(days, data)
	}
	return views.RenderAgendaPanel(days)
}

func (m Model) renderIndicatorsView() string {
	dates := make([]string, 0, len(m.Indicators))
	for _, d := range m.Indicators {
		dates = append(dates, d.Format(time.DateOnly))
	}
	return views.RenderIndicatorPanel(dates)
}

func (m Model) isIndicator(day time.Time) bool {
	for _, d := range m.Indicators {
		if sameDay(d.In(day.Location()), day) {
			return true
		}
	}
	return false
}

func (m Model) renderLogView() string {
	items := make([]views.DeliveryData, 0, len(m.Deliveries))
	for i := len(m.Deliveries) - 1; i >= 0; i-- {
		d := m.Deliveries[i]
		items = append(items, views.DeliveryData{
			At:      d.At.In(m.location()).Format("15:04:05"),
			Code:    codeLabel(d.Notification.RequestCode),
			Channel: d.Channel.ID,
			Title:   d.Notification.Title,
		})
	}
	return views.RenderLogPanel(items)
}

func (m Model) renderLastDeliveryView() string {
	if len(m.Deliveries) == 0 {
		return "last delivery:\n(none yet)"
	}
	d := m.Deliveries[len(m.Deliveries)-1]
	md := "# " + d.Notification.Title
	if body := strings.TrimSpace(d.Notification.Message); body != "" {
		md += "\n\n" + body
	}
	return fmt.Sprintf("last delivery: %s\n%s", codeLabel(d.Notification.RequestCode), views.RenderMarkdown(md))
}

func (m *Model) pushDelivery(d notify.Delivery) {
	m.Deliveries = append(m.Deliveries, d)
	if len(m.Deliveries) > m.opts.LogLimit {
		m.Deliveries = m.Deliveries[len(m.Deliveries)-m.opts.LogLimit:]
	}
}
