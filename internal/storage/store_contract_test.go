package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/remindd/internal/model"
)

// exerciseStore runs the behaviour every NotificationStore backend shares.
func exerciseStore(t *testing.T, store NotificationStore) {
	t.Helper()
	ctx := context.Background()

	next, err := store.NextRequestCode(ctx)
	if err != nil {
		t.Fatalf("next request code on empty store: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected first request code 1, got %d", next)
	}

	a := model.Notification{RequestCode: 3, NoteID: "note-a", Title: "Call", Message: "dentist", Trigger: 2_000, RepeatMode: model.RepeatDaily}
	b := model.Notification{RequestCode: 9, NoteID: "note-a", Title: "Call", Message: "dentist", Trigger: 1_000, RepeatMode: model.RepeatNone}
	c := model.Notification{RequestCode: 10, NoteID: "note-b", Title: "Pay rent", Trigger: 2_000, RepeatMode: model.RepeatMonthly}
	if err := store.AddOrUpdate(ctx, a, b, c); err != nil {
		t.Fatalf("add: %v", err)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[0].RequestCode != 9 || all[1].RequestCode != 3 || all[2].RequestCode != 10 {
		t.Fatalf("expected trigger then code ordering, got %#v", all)
	}

	next, err = store.NextRequestCode(ctx)
	if err != nil || next != 11 {
		t.Fatalf("expected next code 11, got %d (%v)", next, err)
	}

	// Upsert replaces in place, never duplicates.
	a.Trigger = 5_000
	if err := store.AddOrUpdate(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.Get(ctx, 3)
	if err != nil || got.Trigger != 5_000 {
		t.Fatalf("unexpected upserted record: %#v (%v)", got, err)
	}
	all, _ = store.All(ctx)
	if len(all) != 3 {
		t.Fatalf("upsert must not duplicate, got %d records", len(all))
	}

	if err := store.UpdateTime(ctx, 9, 7_000, model.RepeatWeekly); err != nil {
		t.Fatalf("update time: %v", err)
	}
	got, _ = store.Get(ctx, 9)
	if got.Trigger != 7_000 || got.RepeatMode != model.RepeatWeekly || got.Title != "Call" {
		t.Fatalf("unexpected record after time update: %#v", got)
	}
	if err := store.UpdateTime(ctx, 404, 1, model.RepeatNone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}

	if err := store.UpdateData(ctx, "note-a", "Call back", "about the bill"); err != nil {
		t.Fatalf("update data: %v", err)
	}
	forNote, err := store.ForNote(ctx, "note-a")
	if err != nil {
		t.Fatalf("for note: %v", err)
	}
	if len(forNote) != 2 {
		t.Fatalf("expected two records for note-a, got %#v", forNote)
	}
	for _, rec := range forNote {
		if rec.Title != "Call back" || rec.Message != "about the bill" {
			t.Fatalf("payload not updated on %#v", rec)
		}
	}
	if err := store.UpdateData(ctx, "ghost", "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown note, got %v", err)
	}

	codes, err := store.RemoveForNote(ctx, "note-a")
	if err != nil {
		t.Fatalf("remove for note: %v", err)
	}
	if len(codes) != 2 || codes[0] != 3 || codes[1] != 9 {
		t.Fatalf("unexpected removed codes: %v", codes)
	}
	codes, err = store.RemoveForNote(ctx, "note-a")
	if err != nil || len(codes) != 0 {
		t.Fatalf("second remove for note should be empty, got %v (%v)", codes, err)
	}
	if _, err := store.Get(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected removed record to be gone, got %v", err)
	}

	if err := store.Remove(ctx, 10); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, 10); err != nil {
		t.Fatalf("removing an absent record should be a no-op, got %v", err)
	}
	all, _ = store.All(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %#v", all)
	}

	if err := store.AddOrUpdate(ctx, model.Notification{RequestCode: 1, Trigger: 1, RepeatMode: model.RepeatNone}); err == nil {
		t.Fatal("expected record without note id to be rejected")
	}
}

func TestAddOrUpdateMovesCodeBetweenNotes(t *testing.T) {
	store := setupSQLite(t)
	ctx := t.Context()
	rec := model.Notification{RequestCode: 4, NoteID: "first", Trigger: 10, RepeatMode: model.RepeatNone}
	if err := store.AddOrUpdate(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec.NoteID = "second"
	if err := store.AddOrUpdate(ctx, rec); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got, _ := store.ForNote(ctx, "first"); len(got) != 0 {
		t.Fatalf("expected first note to be empty, got %#v", got)
	}
	if got, _ := store.ForNote(ctx, "second"); len(got) != 1 {
		t.Fatalf("expected record under second note, got %#v", got)
	}
}
