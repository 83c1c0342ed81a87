package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sandeepkv93/remindd/internal/config"
	"github.com/sandeepkv93/remindd/internal/model"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "remindd-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	exerciseStore(t, setupSQLite(t))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := model.Notification{RequestCode: 7, NoteID: "n-1", Title: "Water plants", Trigger: 1_738_000_000_000, RepeatMode: model.RepeatWeekly}
	if err := store.AddOrUpdate(t.Context(), rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(t.Context(), 7)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got != rec {
		t.Fatalf("record changed across restart: %#v", got)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default().Database
	cfg.Path = filepath.Join(t.TempDir(), "open.db")
	store, err := Open(t.Context(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite backend, got %T", store)
	}

	cfg.Driver = "bolt"
	if _, err := Open(t.Context(), cfg); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}

func TestSQLiteDSNMergesQueryString(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "remindd.db", want: "remindd.db?_busy_timeout=5000&_journal_mode=WAL"},
		{path: "remindd.db?_foreign_keys=on", want: "remindd.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"},
		{path: "file:remindd.db?_journal_mode=DELETE&cache=shared", want: "file:remindd.db?_busy_timeout=5000&_journal_mode=DELETE&cache=shared"},
	}
	for _, tc := range tests {
		got, err := sqliteDSN(tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.path, got, tc.want)
		}
	}

	if _, err := sqliteDSN("remindd.db?bad=%zz"); err == nil {
		t.Fatal("expected malformed query to be rejected")
	}
}

func TestOpenSQLiteAcceptsPathWithQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.db")
	store, err := OpenSQLite(path + "?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := store.AddOrUpdate(t.Context(), model.Notification{RequestCode: 1, NoteID: "n", Trigger: 1_000, RepeatMode: model.RepeatNone}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}
}
