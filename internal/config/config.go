package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
	Console       ConsoleConfig       `yaml:"console"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // sqlite | redis
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type SchedulerConfig struct {
	Buffer      int    `yaml:"buffer"`
	ExactAlarms bool   `yaml:"exact_alarms"`
	Timezone    string `yaml:"timezone"` // IANA name, empty means the host zone
	Sweep       string `yaml:"sweep"`    // cron spec, empty disables the sweep
}

type NotificationsConfig struct {
	Desktop    bool `yaml:"desktop"`
	RatePerSec int  `yaml:"rate_per_sec"`
	Burst      int  `yaml:"burst"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "remindd.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "remindd",
		},
		Scheduler: SchedulerConfig{
			Buffer:      64,
			ExactAlarms: true,
			Sweep:       "@every 1m",
		},
		Notifications: NotificationsConfig{
			Desktop:    false,
			RatePerSec: 2,
			Burst:      5,
		},
		Log: LogConfig{
			Level:   "info",
			Console: false,
			File:    "remindd.log",
		},
		Console: ConsoleConfig{Enabled: true},
	}
}

// Load reads an optional .env file, then the YAML file at path (a missing
// file keeps defaults), then applies REMINDD_* environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decodeYAML(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("REMINDD_DB_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := getEnvString("REMINDD_DB_PATH"); ok {
		cfg.Database.Path = v
	}
	if v, ok := getEnvString("REMINDD_REDIS_ADDR"); ok {
		cfg.Database.RedisAddr = v
	}
	if v, ok := getEnvInt("REMINDD_REDIS_DB"); ok && v >= 0 {
		cfg.Database.RedisDB = v
	}
	if v, ok := getEnvInt("REMINDD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.Scheduler.Buffer = v
	}
	if v, ok := getEnvBool("REMINDD_EXACT_ALARMS"); ok {
		cfg.Scheduler.ExactAlarms = v
	}
	if v, ok := getEnvString("REMINDD_TIMEZONE"); ok {
		cfg.Scheduler.Timezone = v
	}
	if v, ok := getEnvString("REMINDD_SWEEP"); ok {
		cfg.Scheduler.Sweep = v
	}
	if v, ok := getEnvBool("REMINDD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.Notifications.Desktop = v
	}
	if v, ok := getEnvString("REMINDD_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := getEnvString("REMINDD_LOG_FILE"); ok {
		cfg.Log.File = v
	}
	return cfg
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "redis":
		if strings.TrimSpace(c.Database.RedisAddr) == "" {
			return errors.New("config: database.redis_addr is required for redis")
		}
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Scheduler.Buffer <= 0 {
		return fmt.Errorf("config: scheduler.buffer must be > 0, got %d", c.Scheduler.Buffer)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if spec := strings.TrimSpace(c.Scheduler.Sweep); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("config: scheduler.sweep %q: %w", spec, err)
		}
	}
	if c.Notifications.RatePerSec < 0 || c.Notifications.Burst < 0 {
		return errors.New("config: notifications rate and burst must be >= 0")
	}
	return nil
}

// Location resolves scheduler.timezone, defaulting to the host zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Scheduler.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: scheduler.timezone %q: %w", name, err)
	}
	return loc, nil
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
