package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/scheduler"
)

type View string

const (
	ViewPending View = "Pending"
	ViewAgenda  View = "Agenda"
	ViewLog     View = "Log"
)

// Backend is the reminder service the console drives. *scheduler.Service
// implements it.
type Backend interface {
	Pending(ctx context.Context) ([]scheduler.Entry, error)
	Agenda(ctx context.Context, from, to time.Time) ([]model.AgendaEntry, error)
	IndicatorDates(ctx context.Context, today time.Time) ([]time.Time, error)
	Unarmed() []int
	ScheduleNotification(ctx context.Context, n model.Notification) error
	UpdateNotificationTime(ctx context.Context, requestCode int, date, clock time.Time, mode model.RepeatMode) error
	UpdateNotificationData(ctx context.Context, noteID, title, message string, reschedule bool) error
	DeleteByRequestCode(ctx context.Context, requestCode int) error
	DeleteForNote(ctx context.Context, noteID string) ([]int, error)
	CancelNotificationsForNote(ctx context.Context, noteID string) (int, error)
	ReconcileNotifications(ctx context.Context) (scheduler.RestoreReport, error)
	Notification(ctx context.Context, requestCode int) (model.Notification, error)
	NextRequestCode(ctx context.Context) (int, error)
	Location() *time.Location
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Pending string
	Agenda  string
	Log     string
	Delete  string
	Cancel  string
	Refresh string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	CurrentView View
	Entries     []scheduler.Entry
	Agenda      []model.AgendaEntry
	Indicators  []time.Time
	Unarmed     []int
	Deliveries  []notify.Delivery
	Palette     CommandPaletteState
	HelpVisible bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error

	backend    Backend
	deliveries <-chan notify.Delivery
	opts       Options

	pendingTable table.Model
	commandInput textinput.Model
	helpModel    help.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// RefreshMsg reloads every view from the backend.
type RefreshMsg struct{}

type DeliveryMsg struct {
	Delivery notify.Delivery
}

// deliveriesClosedMsg stops the delivery listener.
type deliveriesClosedMsg struct{}

type refreshTickMsg struct{}

// NewModel builds the console over backend. deliveries may be nil when no
// feed presenter is wired.
func NewModel(backend Backend, deliveries <-chan notify.Delivery, opts Options) Model {
	m := Model{
		CurrentView: ViewPending,
		Keys: GlobalKeyMap{
			Pending: "1",
			Agenda:  "2",
			Log:     "3",
			Delete:  "d",
			Cancel:  "c",
			Refresh: "r",
			Help:    "?",
			Quit:    "q",
		},
		backend:    backend,
		deliveries: deliveries,
		opts:       opts.withDefaults(),
	}
	m.initBubbleComponents()
	return m.reload()
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Code", Width: 6},
		{Title: "When", Width: 16},
		{Title: "Repeat", Width: 8},
		{Title: "Armed", Width: 5},
		{Title: "Title", Width: 16},
	}
	m.pendingTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Entries))
	for _, e := range m.Entries {
		armed := "no"
		if e.Armed {
			armed = "yes"
		}
		rows = append(rows, table.Row{
			codeLabel(e.RequestCode),
			formatWhen(e.TriggerTime(m.location())),
			string(e.RepeatMode),
			armed,
			e.Title,
		})
	}
	m.pendingTable.SetRows(rows)
	if len(rows) == 0 {
		return
	}
	// SetRows on an empty table leaves the cursor at -1.
	if c := m.pendingTable.Cursor(); c < 0 {
		m.pendingTable.SetCursor(0)
	} else if c >= len(rows) {
		m.pendingTable.SetCursor(len(rows) - 1)
	}
}

// reload pulls the pending list, the agenda window and the indicator days.
// A failed load keeps the previous data and reports the error.
func (m Model) reload() Model {
	next, err := m.load()
	if err != nil {
		return m.fail(err)
	}
	return next
}

func (m Model) load() (Model, error) {
	if m.backend == nil {
		return m, nil
	}
	ctx, cancel := m.opContext()
	defer cancel()

	entries, err := m.backend.Pending(ctx)
	if err != nil {
		return m, err
	}
	now := m.now()
	from := startOfDay(now)
	to := from.AddDate(0, 0, m.opts.AgendaDays).Add(-time.Millisecond)
	agenda, err := m.backend.Agenda(ctx, from, to)
	if err != nil {
		return m, err
	}
	indicators, err := m.backend.IndicatorDates(ctx, now)
	if err != nil {
		return m, err
	}
	m.Entries = entries
	m.Agenda = agenda
	m.Indicators = indicators
	m.Unarmed = m.backend.Unarmed()
	m.syncBubbleData()
	return m, nil
}

// settle reloads after a successful mutation and reports text.
func (m Model) settle(text string) Model {
	next, err := m.load()
	if err != nil {
		return m.fail(err)
	}
	next.Status = StatusBar{Text: text, IsError: false}
	return next
}

func (m Model) fail(err error) Model {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
	return m
}

func (m Model) selectedEntry() (scheduler.Entry, bool) {
	if len(m.Entries) == 0 {
		return scheduler.Entry{}, false
	}
	c := m.pendingTable.Cursor()
	if c < 0 || c >= len(m.Entries) {
		return scheduler.Entry{}, false
	}
	return m.Entries[c], true
}

func (m Model) location() *time.Location {
	if m.backend == nil {
		return time.Local
	}
	return m.backend.Location()
}

func (m Model) now() time.Time {
	return m.opts.Now().In(m.location())
}

func (m Model) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.Timeout)
}
