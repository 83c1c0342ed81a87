package update

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/scheduler"
)

func codeLabel(code int) string {
	return fmt.Sprintf("#%d", code)
}

func formatWhen(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func findNoteEntry(entries []scheduler.Entry, noteID string) (scheduler.Entry, bool) {
	for _, e := range entries {
		if e.NoteID == noteID {
			return e, true
		}
	}
	return scheduler.Entry{}, false
}

func waitForDeliveryCmd(ch <-chan notify.Delivery) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return deliveriesClosedMsg{}
		}
		return DeliveryMsg{Delivery: d}
	}
}

func refreshTickCmd(every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(time.Time) tea.Msg { return refreshTickMsg{} })
}
