package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/sandeepkv93/remindd/internal/commands"
	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/scheduler"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
				m.commandInput.SetValue(m.commandInput.Value() + " ")
			}
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}

	ctx, cancel := m.opContext()
	defer cancel()
	loc := m.location()

	res, err := commands.Execute(cmd, commands.Handlers{
		Remind: func(a commands.RemindArgs) (commands.Result, error) {
			noteID := a.NoteID
			if noteID == commands.NewNoteID {
				noteID = uuid.NewString()
			}
			code, err := m.backend.NextRequestCode(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			at := scheduler.CombineDateTime(a.Date, a.Clock, loc)
			n := model.Notification{
				RequestCode: code,
				NoteID:      noteID,
				Title:       a.Title,
				Trigger:     at.UnixMilli(),
				RepeatMode:  a.Mode,
			}
			if err := m.backend.ScheduleNotification(ctx, n); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("scheduled %s for note %s at %s (%s)", codeLabel(code), noteID, formatWhen(at), a.Mode)}, nil
		},
		Move: func(a commands.MoveArgs) (commands.Result, error) {
			mode := a.Mode
			if mode == "" {
				rec, err := m.backend.Notification(ctx, a.RequestCode)
				if err != nil {
					return commands.Result{}, err
				}
				mode = rec.RepeatMode
			}
			if err := m.backend.UpdateNotificationTime(ctx, a.RequestCode, a.Date, a.Clock, mode); err != nil {
				return commands.Result{}, err
			}
			at := scheduler.CombineDateTime(a.Date, a.Clock, loc)
			return commands.Result{Message: fmt.Sprintf("moved %s to %s (%s)", codeLabel(a.RequestCode), formatWhen(at), mode)}, nil
		},
		Retitle: func(a commands.RetitleArgs) (commands.Result, error) {
			message := ""
			if e, ok := findNoteEntry(m.Entries, a.NoteID); ok {
				message = e.Message
			}
			if err := m.backend.UpdateNotificationData(ctx, a.NoteID, a.Title, message, true); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("retitled note %s", a.NoteID)}, nil
		},
		Delete: func(a commands.DeleteArgs) (commands.Result, error) {
			if a.NoteID != "" {
				codes, err := m.backend.DeleteForNote(ctx, a.NoteID)
				if err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: fmt.Sprintf("deleted %d reminder(s) for note %s", len(codes), a.NoteID)}, nil
			}
			if err := m.backend.DeleteByRequestCode(ctx, a.RequestCode); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted %s", codeLabel(a.RequestCode))}, nil
		},
		Cancel: func(a commands.CancelArgs) (commands.Result, error) {
			n, err := m.backend.CancelNotificationsForNote(ctx, a.NoteID)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("cancelled %d wake-up(s) for note %s", n, a.NoteID)}, nil
		},
		Restore: func() (commands.Result, error) {
			rep, err := m.backend.ReconcileNotifications(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("restored %d reminder(s): %d past due re-queued, %d unarmed",
				rep.Total, rep.Missed, rep.Unarmed)}, nil
		},
	})
	if err != nil {
		return m.reload().fail(err)
	}
	return m.settle(res.Message)
}
