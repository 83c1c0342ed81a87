package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/remindd/internal/logx"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "remindd.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Scheduler.Buffer != 64 || !cfg.Scheduler.ExactAlarms || cfg.Scheduler.Sweep != "@every 1m" {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REMINDD_DB_DRIVER", "redis")
	t.Setenv("REMINDD_REDIS_ADDR", "cache:6380")
	t.Setenv("REMINDD_REDIS_DB", "3")
	t.Setenv("REMINDD_SCHEDULER_BUFFER", "128")
	t.Setenv("REMINDD_EXACT_ALARMS", "off")
	t.Setenv("REMINDD_TIMEZONE", "UTC")
	t.Setenv("REMINDD_DESKTOP_NOTIFICATIONS", "yes")
	t.Setenv("REMINDD_LOG_LEVEL", "debug")

	cfg := FromEnv(Default())
	if cfg.Database.Driver != "redis" || cfg.Database.RedisAddr != "cache:6380" || cfg.Database.RedisDB != 3 {
		t.Fatalf("unexpected database overrides: %+v", cfg.Database)
	}
	if cfg.Scheduler.Buffer != 128 || cfg.Scheduler.ExactAlarms || cfg.Scheduler.Timezone != "UTC" {
		t.Fatalf("unexpected scheduler overrides: %+v", cfg.Scheduler)
	}
	if !cfg.Notifications.Desktop || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("REMINDD_SCHEDULER_BUFFER", "lots")
	t.Setenv("REMINDD_EXACT_ALARMS", "maybe")
	cfg := FromEnv(Default())
	if cfg.Scheduler.Buffer != 64 || !cfg.Scheduler.ExactAlarms {
		t.Fatalf("garbage env should keep defaults: %+v", cfg.Scheduler)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remindd.yaml")
	body := `
database:
  driver: sqlite
  path: /tmp/reminders.db
scheduler:
  buffer: 16
  exact_alarms: false
  timezone: Europe/Berlin
  sweep: "*/5 * * * *"
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/reminders.db" || cfg.Scheduler.Buffer != 16 || cfg.Scheduler.ExactAlarms {
		t.Fatalf("unexpected loaded config: %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("unexpected location: %v %v", loc, err)
	}
	if cfg.Notifications.RatePerSec != 2 {
		t.Fatalf("unset keys should keep defaults: %+v", cfg.Notifications)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected defaults, got %+v", cfg.Database)
	}
}

func TestLoadRejectsUnknownKeysAndBadValues(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("scheduler:\n  bufer: 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(unknown); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}

	badSweep := filepath.Join(dir, "sweep.yaml")
	if err := os.WriteFile(badSweep, []byte("scheduler:\n  sweep: \"every minute\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(badSweep); err == nil {
		t.Fatal("expected invalid sweep spec to be rejected")
	}

	badDriver := Default()
	badDriver.Database.Driver = "mongo"
	if err := badDriver.Validate(); err == nil {
		t.Fatal("expected unsupported driver to be rejected")
	}
}

func TestWatchAppliesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remindd.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	applied := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, initial, logx.Nop(), func(c Config) { applied <- c })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-applied:
		if cfg.Log.Level != "debug" {
			t.Fatalf("unexpected applied level: %q", cfg.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned error: %v", err)
	}
}
