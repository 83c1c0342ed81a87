package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/remindd/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

// helpKeyMap feeds bubbles/help: the short view lists global keys, the full
// view adds the bindings of the current view as a second column.
type helpKeyMap struct {
	global []key.Binding
	view   []key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding { return k.global }

func (k helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.global, k.view}
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	hm := m.helpModel
	hm.ShowAll = true
	plain := make([]string, 0, len(m.viewBindings()))
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: hm.View(helpKeyMap{
			global: toBindings(m.globalBindings()),
			view:   toBindings(m.viewBindings()),
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Pending, Action: "switch to Pending"},
		{Key: m.Keys.Agenda, Action: "switch to Agenda"},
		{Key: m.Keys.Log, Action: "switch to Log"},
		{Key: "/", Action: "open command palette"},
		{Key: m.Keys.Refresh, Action: "reload from store"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewPending:
		return []KeyBinding{
			{Key: "j/k", Action: "move cursor"},
			{Key: m.Keys.Delete, Action: "delete selected reminder"},
			{Key: m.Keys.Cancel, Action: "cancel wake-ups for selected note"},
		}
	case ViewAgenda:
		return []KeyBinding{
			{Key: "remind", Action: "remind <note|-> <date> <hh:mm> <repeat> <title>"},
			{Key: "move", Action: "move <code> <date> <hh:mm> [repeat]"},
		}
	case ViewLog:
		return []KeyBinding{
			{Key: "restore", Action: "re-arm every stored reminder"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func toBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
