package update

import "time"

// Options tunes the console. Zero fields take the defaults below, except
// RefreshEvery where zero turns periodic reloads off.
type Options struct {
	Now func() time.Time
	// AgendaDays is the width of the agenda window starting today.
	AgendaDays int
	// LogLimit caps the delivery log kept in memory.
	LogLimit int
	// Timeout bounds each backend call.
	Timeout time.Duration
	// RefreshEvery re-reads the backend periodically. Zero disables it.
	RefreshEvery time.Duration
}

func DefaultOptions() Options {
	return Options{
		Now:          time.Now,
		AgendaDays:   7,
		LogLimit:     50,
		Timeout:      5 * time.Second,
		RefreshEvery: 30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Now == nil {
		o.Now = def.Now
	}
	if o.AgendaDays <= 0 {
		o.AgendaDays = def.AgendaDays
	}
	if o.LogLimit <= 0 {
		o.LogLimit = def.LogLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.RefreshEvery < 0 {
		o.RefreshEvery = 0
	}
	return o
}
