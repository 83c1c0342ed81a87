// Package notify presents fired reminders to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sandeepkv93/remindd/internal/model"
)

var ErrInvalidChannel = errors.New("notify: invalid channel")

type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceDefault
	ImportanceHigh
)

func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceHigh:
		return "high"
	default:
		return "default"
	}
}

// Channel groups reminders that share presentation settings.
type Channel struct {
	ID          string
	Name        string
	Description string
	Importance  Importance
}

var DefaultChannel = Channel{
	ID:          "NOTECHANNEL",
	Name:        "Reminders",
	Description: "Scheduled note reminders",
	Importance:  ImportanceHigh,
}

func (c Channel) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidChannel)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required for %q", ErrInvalidChannel, c.ID)
	}
	return nil
}

type Presenter interface {
	Present(ctx context.Context, n model.Notification) error
	RegisterChannel(ch Channel) error
}

// channels is the registry embedded by presenters that honour importance.
type channels struct {
	mu      sync.RWMutex
	byID    map[string]Channel
	current string
}

func (c *channels) register(ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byID == nil {
		c.byID = make(map[string]Channel)
	}
	c.byID[ch.ID] = ch
	if c.current == "" {
		c.current = ch.ID
	}
	return nil
}

func (c *channels) active() Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ch, ok := c.byID[c.current]; ok {
		return ch
	}
	return DefaultChannel
}

// Fanout presents to every presenter and joins their errors.
type Fanout []Presenter

func (f Fanout) Present(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Present(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) RegisterChannel(ch Channel) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.RegisterChannel(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
