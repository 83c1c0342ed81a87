package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidRecurrence   = errors.New("model: invalid recurrence")
	ErrOccurrenceExhausted = errors.New("model: one-shot occurrence already passed")
)

// maxOccurrences bounds Occurrences so a wide window cannot spin forever.
const maxOccurrences = 4096

// NextOccurrence returns the next firing instant for a reminder that last
// triggered (or was scheduled) at old. The result is expressed in now's
// location and keeps old's wall clock. A trigger that is not yet due is
// already the next occurrence and is returned unchanged.
//
// Day-of-month overflow clamps to the last day of the target month, so a
// monthly reminder on the 31st fires on Feb 28/29, Apr 30, and so on, and a
// yearly reminder on Feb 29 fires on Feb 28 in common years.
func NextOccurrence(old time.Time, mode RepeatMode, now time.Time) (time.Time, error) {
	if old.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero trigger", ErrInvalidRecurrence)
	}
	if !mode.IsValid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrence, mode)
	}
	old = old.In(now.Location())
	if !old.Before(now) {
		return old, nil
	}

	switch mode {
	case RepeatNone:
		return time.Time{}, ErrOccurrenceExhausted
	case RepeatDaily:
		return nextDaily(old, now), nil
	case RepeatWeekly:
		return nextWeekly(old, now), nil
	case RepeatMonthly:
		return nextMonthly(old, now), nil
	case RepeatYearly:
		return nextYearly(old, now), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrence, mode)
	}
}

// Occurrences lists every firing instant of a reminder inside [from, to].
func Occurrences(old time.Time, mode RepeatMode, from, to time.Time) ([]time.Time, error) {
	out := make([]time.Time, 0)
	if to.Before(from) {
		return out, nil
	}
	cursor := from
	for i := 0; i < maxOccurrences; i++ {
		next, err := NextOccurrence(old, mode, cursor)
		if errors.Is(err, ErrOccurrenceExhausted) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if next.After(to) {
			return out, nil
		}
		out = append(out, next)
		cursor = next.Add(time.Nanosecond)
	}
	return out, nil
}

func nextDaily(old, now time.Time) time.Time {
	y, m, d := now.Date()
	candidate := withClock(y, m, d, old, now.Location())
	if candidate.Before(now) {
		candidate = withClock(y, m, d+1, old, now.Location())
	}
	return candidate
}

func nextWeekly(old, now time.Time) time.Time {
	y, m, d := now.Date()
	// Weeks start on Monday.
	monday := d - isoWeekdayOffset(now.Weekday())
	day := monday + isoWeekdayOffset(old.Weekday())
	candidate := withClock(y, m, day, old, now.Location())
	if candidate.Before(now) {
		candidate = withClock(y, m, day+7, old, now.Location())
	}
	return candidate
}

func nextMonthly(old, now time.Time) time.Time {
	y, m, _ := now.Date()
	candidate := withClock(y, m, clampDay(y, m, old.Day()), old, now.Location())
	if candidate.Before(now) {
		ny, nm := addMonth(y, m)
		candidate = withClock(ny, nm, clampDay(ny, nm, old.Day()), old, now.Location())
	}
	return candidate
}

func nextYearly(old, now time.Time) time.Time {
	y := now.Year()
	m := old.Month()
	candidate := withClock(y, m, clampDay(y, m, old.Day()), old, now.Location())
	if candidate.Before(now) {
		candidate = withClock(y+1, m, clampDay(y+1, m, old.Day()), old, now.Location())
	}
	return candidate
}

func isoWeekdayOffset(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func addMonth(y int, m time.Month) (int, time.Month) {
	if m == time.December {
		return y + 1, time.January
	}
	return y, m + 1
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDay(y int, m time.Month, day int) int {
	if last := daysIn(y, m); day > last {
		return last
	}
	return day
}

func withClock(y int, m time.Month, d int, clock time.Time, loc *time.Location) time.Time {
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
}

type AgendaEntry struct {
	Notification Notification
	At           time.Time
}

// Agenda expands records into the occurrences that fall inside [from, to],
// ordered by instant and then request code.
func Agenda(records []Notification, from, to time.Time) ([]AgendaEntry, error) {
	loc := from.Location()
	out := make([]AgendaEntry, 0, len(records))
	for _, rec := range records {
		list, err := Occurrences(rec.TriggerTime(loc), rec.RepeatMode, from, to)
		if err != nil {
			return nil, fmt.Errorf("agenda for request code %d: %w", rec.RequestCode, err)
		}
		for _, at := range list {
			out = append(out, AgendaEntry{Notification: rec, At: at})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Notification.RequestCode < out[j].Notification.RequestCode
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}

// IndicatorDates returns the calendar days, at midnight in today's location,
// that carry a one-shot reminder on or after today.
func IndicatorDates(records []Notification, today time.Time) []time.Time {
	loc := today.Location()
	ty, tm, td := today.Date()
	start := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	seen := make(map[string]bool)
	out := make([]time.Time, 0)
	for _, rec := range records {
		if rec.RepeatMode != RepeatNone {
			continue
		}
		y, m, d := rec.TriggerTime(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		key := day.Format(time.DateOnly)
		if day.Before(start) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
