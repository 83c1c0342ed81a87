package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRepeatMode = errors.New("model: invalid repeat mode")
	ErrInvalidTrigger    = errors.New("model: notification trigger is required")
)

type RepeatMode string

const (
	RepeatNone    RepeatMode = "none"
	RepeatDaily   RepeatMode = "daily"
	RepeatWeekly  RepeatMode = "weekly"
	RepeatMonthly RepeatMode = "monthly"
	RepeatYearly  RepeatMode = "yearly"
)

func (r RepeatMode) IsValid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	default:
		return false
	}
}

func (r RepeatMode) String() string { return string(r) }

// ParseRepeatMode accepts the lower-case names plus the upper-case spelling
// stored by older clients. An empty string means RepeatNone.
func ParseRepeatMode(raw string) (RepeatMode, error) {
	v := RepeatMode(strings.ToLower(strings.TrimSpace(raw)))
	if v == "" {
		return RepeatNone, nil
	}
	if !v.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepeatMode, raw)
	}
	return v, nil
}

// Notification is one pending reminder trigger. RequestCode doubles as the
// wake-up registration id.
type Notification struct {
	RequestCode int
	NoteID      string
	Title       string
	Message     string
	Trigger     int64 // epoch milliseconds
	RepeatMode  RepeatMode
}

func (n Notification) Validate() error {
	if n.RequestCode < 0 {
		return fmt.Errorf("model: notification request_code must be >= 0, got %d", n.RequestCode)
	}
	if strings.TrimSpace(n.NoteID) == "" {
		return errors.New("model: notification note_id is required")
	}
	if n.Trigger == 0 {
		return ErrInvalidTrigger
	}
	if !n.RepeatMode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRepeatMode, n.RepeatMode)
	}
	return nil
}

func (n Notification) TriggerTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(n.Trigger).In(loc)
}

func (n Notification) WithTrigger(at time.Time) Notification {
	n.Trigger = at.UnixMilli()
	return n
}
