package model

import (
	"errors"
	"testing"
	"time"
)

const stamp = "2006-01-02 15:04"

func at(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.ParseInLocation(stamp, value, time.UTC)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestNextOccurrenceMonthlyClampsToMonthEnd(t *testing.T) {
	old := at(t, "2024-01-31 09:00")
	now := at(t, "2024-02-15 00:00")
	next, err := NextOccurrence(old, RepeatMonthly, now)
	if err != nil {
		t.Fatalf("next monthly failed: %v", err)
	}
	if next.Format(stamp) != "2024-02-29 09:00" {
		t.Fatalf("unexpected next occurrence: %s", next.Format(time.RFC3339))
	}

	next, err = NextOccurrence(at(t, "2022-01-31 09:00"), RepeatMonthly, at(t, "2023-02-15 00:00"))
	if err != nil {
		t.Fatalf("next monthly failed: %v", err)
	}
	if next.Format(stamp) != "2023-02-28 09:00" {
		t.Fatalf("unexpected non-leap clamp: %s", next.Format(stamp))
	}
}

func TestNextOccurrenceMonthlyRollsIntoNextMonthWithOriginalDay(t *testing.T) {
	old := at(t, "2024-01-31 09:00")
	now := at(t, "2024-04-30 10:00")
	next, err := NextOccurrence(old, RepeatMonthly, now)
	if err != nil {
		t.Fatalf("next monthly failed: %v", err)
	}
	if next.Format(stamp) != "2024-05-31 09:00" {
		t.Fatalf("expected clamp to be re-applied to the original day, got %s", next.Format(stamp))
	}
}

func TestNextOccurrenceWeeklyKeepsWeekday(t *testing.T) {
	old := at(t, "2024-03-01 08:00") // Friday
	now := at(t, "2024-03-10 00:00") // Sunday
	next, err := NextOccurrence(old, RepeatWeekly, now)
	if err != nil {
		t.Fatalf("next weekly failed: %v", err)
	}
	if next.Weekday() != time.Friday || next.Format(stamp) != "2024-03-15 08:00" {
		t.Fatalf("unexpected next weekly: %s", next.Format(time.RFC3339))
	}

	next, err = NextOccurrence(old, RepeatWeekly, at(t, "2024-03-04 09:00")) // Monday
	if err != nil {
		t.Fatalf("next weekly failed: %v", err)
	}
	if next.Format(stamp) != "2024-03-08 08:00" {
		t.Fatalf("expected friday of the same week, got %s", next.Format(stamp))
	}
}

func TestNextOccurrenceDaily(t *testing.T) {
	old := at(t, "2024-03-01 08:30")
	next, err := NextOccurrence(old, RepeatDaily, at(t, "2024-03-04 07:00"))
	if err != nil {
		t.Fatalf("next daily failed: %v", err)
	}
	if next.Format(stamp) != "2024-03-04 08:30" {
		t.Fatalf("expected today, got %s", next.Format(stamp))
	}

	next, err = NextOccurrence(old, RepeatDaily, at(t, "2024-03-04 09:00"))
	if err != nil {
		t.Fatalf("next daily failed: %v", err)
	}
	if next.Format(stamp) != "2024-03-05 08:30" {
		t.Fatalf("expected tomorrow, got %s", next.Format(stamp))
	}
}

func TestNextOccurrenceYearlyLeapDay(t *testing.T) {
	old := at(t, "2024-02-29 12:00")
	next, err := NextOccurrence(old, RepeatYearly, at(t, "2024-03-01 00:00"))
	if err != nil {
		t.Fatalf("next yearly failed: %v", err)
	}
	if next.Format(stamp) != "2025-02-28 12:00" {
		t.Fatalf("unexpected yearly clamp: %s", next.Format(stamp))
	}

	next, err = NextOccurrence(old, RepeatYearly, at(t, "2027-06-01 00:00"))
	if err != nil {
		t.Fatalf("next yearly failed: %v", err)
	}
	if next.Format(stamp) != "2028-02-29 12:00" {
		t.Fatalf("expected leap day in leap year, got %s", next.Format(stamp))
	}
}

func TestNextOccurrenceNone(t *testing.T) {
	old := at(t, "2024-03-01 08:00")
	next, err := NextOccurrence(old, RepeatNone, at(t, "2024-02-01 08:00"))
	if err != nil {
		t.Fatalf("next none failed: %v", err)
	}
	if !next.Equal(old) {
		t.Fatalf("expected unchanged trigger, got %s", next.Format(stamp))
	}

	_, err = NextOccurrence(old, RepeatNone, at(t, "2024-03-02 08:00"))
	if !errors.Is(err, ErrOccurrenceExhausted) {
		t.Fatalf("expected ErrOccurrenceExhausted, got %v", err)
	}
}

func TestNextOccurrenceFutureTriggerUnchanged(t *testing.T) {
	old := at(t, "2024-03-20 08:00")
	next, err := NextOccurrence(old, RepeatDaily, at(t, "2024-03-10 09:00"))
	if err != nil {
		t.Fatalf("next daily failed: %v", err)
	}
	if !next.Equal(old) {
		t.Fatalf("expected pending trigger to stay put, got %s", next.Format(stamp))
	}
}

func TestNextOccurrenceNeverBeforeNow(t *testing.T) {
	modes := []RepeatMode{RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly}
	olds := []time.Time{
		at(t, "2020-01-31 23:59"),
		at(t, "2020-02-29 00:00"),
		at(t, "2023-12-31 12:30"),
		at(t, "2024-06-15 06:45"),
	}
	now := at(t, "2024-01-01 00:00")
	for i := 0; i < 24*400; i++ {
		instant := now.Add(time.Duration(i) * 53 * time.Minute)
		for _, mode := range modes {
			for _, old := range olds {
				next, err := NextOccurrence(old, mode, instant)
				if err != nil {
					t.Fatalf("mode=%s old=%s now=%s: %v", mode, old.Format(stamp), instant.Format(stamp), err)
				}
				if next.Before(instant) {
					t.Fatalf("mode=%s old=%s now=%s: next %s is in the past", mode, old.Format(stamp), instant.Format(stamp), next.Format(stamp))
				}
				if next.Hour() != old.Hour() || next.Minute() != old.Minute() {
					t.Fatalf("mode=%s: clock drifted from %s to %s", mode, old.Format("15:04"), next.Format("15:04"))
				}
			}
		}
	}
}

func TestNextOccurrenceRejectsInvalidInput(t *testing.T) {
	if _, err := NextOccurrence(time.Time{}, RepeatDaily, time.Now()); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected ErrInvalidRecurrence for zero trigger, got %v", err)
	}
	if _, err := NextOccurrence(time.Now(), RepeatMode("hourly"), time.Now()); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected ErrInvalidRecurrence for unknown mode, got %v", err)
	}
}

func TestOccurrencesWindow(t *testing.T) {
	old := at(t, "2024-01-31 09:00")
	list, err := Occurrences(old, RepeatMonthly, at(t, "2024-02-01 00:00"), at(t, "2024-06-30 23:59"))
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	want := []string{"2024-02-29 09:00", "2024-03-31 09:00", "2024-04-30 09:00", "2024-05-31 09:00", "2024-06-30 09:00"}
	if len(list) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(list))
	}
	for i := range list {
		if got := list[i].Format(stamp); got != want[i] {
			t.Fatalf("occurrence[%d] got %s want %s", i, got, want[i])
		}
	}

	one, err := Occurrences(at(t, "2024-02-10 10:00"), RepeatNone, at(t, "2024-02-01 00:00"), at(t, "2024-02-29 00:00"))
	if err != nil {
		t.Fatalf("occurrences none failed: %v", err)
	}
	if len(one) != 1 || one[0].Format(stamp) != "2024-02-10 10:00" {
		t.Fatalf("unexpected one-shot occurrences: %v", one)
	}
}

func TestOccurrencesYearlyLeapDayReturnsOnLeapYear(t *testing.T) {
	list, err := Occurrences(at(t, "2024-02-29 08:00"), RepeatYearly, at(t, "2024-03-01 00:00"), at(t, "2028-12-31 00:00"))
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	want := []string{"2025-02-28 08:00", "2026-02-28 08:00", "2027-02-28 08:00", "2028-02-29 08:00"}
	if len(list) != len(want) {
		t.Fatalf("expected %d occurrences, got %v", len(want), list)
	}
	for i := range list {
		if got := list[i].Format(stamp); got != want[i] {
			t.Fatalf("occurrence[%d] got %s want %s", i, got, want[i])
		}
	}
}

func TestAgendaOrdersByInstant(t *testing.T) {
	records := []Notification{
		Notification{RequestCode: 2, NoteID: "n2", RepeatMode: RepeatDaily}.WithTrigger(at(t, "2024-03-01 18:00")),
		Notification{RequestCode: 1, NoteID: "n1", RepeatMode: RepeatNone}.WithTrigger(at(t, "2024-03-02 09:00")),
	}
	entries, err := Agenda(records, at(t, "2024-03-02 00:00"), at(t, "2024-03-03 23:59"))
	if err != nil {
		t.Fatalf("agenda failed: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.At.Format(stamp))
	}
	want := []string{"2024-03-02 09:00", "2024-03-02 18:00", "2024-03-03 18:00"}
	if len(got) != len(want) {
		t.Fatalf("unexpected agenda: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("agenda[%d] got %s want %s", i, got[i], want[i])
		}
	}
	if entries[0].Notification.RequestCode != 1 {
		t.Fatalf("expected one-shot reminder first, got %+v", entries[0].Notification)
	}
}

func TestIndicatorDates(t *testing.T) {
	records := []Notification{
		Notification{RequestCode: 1, NoteID: "a", RepeatMode: RepeatNone}.WithTrigger(at(t, "2024-03-05 09:00")),
		Notification{RequestCode: 2, NoteID: "b", RepeatMode: RepeatNone}.WithTrigger(at(t, "2024-03-05 18:00")),
		Notification{RequestCode: 3, NoteID: "c", RepeatMode: RepeatNone}.WithTrigger(at(t, "2024-03-01 09:00")),
		Notification{RequestCode: 4, NoteID: "d", RepeatMode: RepeatWeekly}.WithTrigger(at(t, "2024-03-07 09:00")),
	}
	days := IndicatorDates(records, at(t, "2024-03-04 12:00"))
	if len(days) != 1 || days[0].Format(time.DateOnly) != "2024-03-05" {
		t.Fatalf("unexpected indicator dates: %v", days)
	}
}
