// Package app assembles the reminder daemon from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sandeepkv93/remindd/internal/config"
	"github.com/sandeepkv93/remindd/internal/logx"
	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/scheduler"
	"github.com/sandeepkv93/remindd/internal/storage"
	"github.com/sandeepkv93/remindd/internal/update"
)

type Options struct {
	ConfigPath string
	Headless   bool
}

type App struct {
	opts    Options
	cfg     config.Config
	logSvc  *logx.Service
	log     logx.Logger
	store   storage.NotificationStore
	engine  *scheduler.Engine
	desktop *gatedPresenter
	feed    *notify.FeedPresenter
	svc     *scheduler.Service
	sweeper *scheduler.Sweeper
}

// New opens the store, restores every stored reminder and starts delivering
// wake-ups. The returned App must be closed.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if !cfg.Console.Enabled {
		opts.Headless = true
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logConfig(cfg))
	a := &App{opts: opts, cfg: cfg, logSvc: logSvc, log: log.With(logx.String("component", "app"))}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store

	a.engine = scheduler.NewEngine(cfg.Scheduler.Buffer)
	a.engine.SetExactAllowed(cfg.Scheduler.ExactAlarms)

	a.desktop = &gatedPresenter{inner: notify.NewDesktopPresenter(cfg.Notifications.RatePerSec, cfg.Notifications.Burst)}
	a.desktop.on.Store(cfg.Notifications.Desktop)
	presenters := notify.Fanout{notify.NewLogPresenter(log), a.desktop}
	if !opts.Headless {
		a.feed = notify.NewFeedPresenter(cfg.Scheduler.Buffer)
		presenters = append(presenters, a.feed)
	}

	a.svc = scheduler.NewService(store, a.engine, presenters, scheduler.Options{
		Logger:   log,
		Location: loc,
	})
	if err := a.svc.CreateNotificationChannel(notify.DefaultChannel); err != nil {
		a.Close()
		return nil, err
	}

	report, err := a.svc.RestoreNotifications(ctx)
	if err != nil {
		// Partial failures leave the remaining records armed.
		a.log.Error("restore incomplete", logx.Err(err))
	}
	a.log.Info("daemon ready",
		logx.String("driver", cfg.Database.Driver),
		logx.String("timezone", loc.String()),
		logx.Int("reminders", report.Total),
		logx.Bool("headless", opts.Headless),
	)

	a.engine.Start()
	go a.svc.Run(ctx, a.engine.C())

	a.sweeper = scheduler.NewSweeper(ctx, a.svc)
	if err := a.sweeper.Apply(cfg.Scheduler.Sweep); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Service() *scheduler.Service { return a.svc }

// Run blocks until ctx is done, or until the console quits when one is
// attached. Config file changes are applied while it runs.
func (a *App) Run(ctx context.Context) error {
	if a.opts.ConfigPath != "" {
		go func() {
			if err := config.Watch(ctx, a.opts.ConfigPath, a.cfg, a.log, a.Apply); err != nil {
				a.log.Warn("config watch stopped", logx.Err(err))
			}
		}()
	}

	if a.opts.Headless {
		a.sdNotify(daemon.SdNotifyReady)
		<-ctx.Done()
		a.sdNotify(daemon.SdNotifyStopping)
		return nil
	}

	m := update.NewModel(a.svc, a.feed.C(), update.DefaultOptions())
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// Apply pushes a reloaded config into the running components. Store and
// timezone changes need a restart.
func (a *App) Apply(cfg config.Config) {
	if cfg.Database != a.cfg.Database || cfg.Scheduler.Timezone != a.cfg.Scheduler.Timezone {
		a.log.Warn("database and timezone changes apply after restart")
	}

	a.logSvc.Apply(logConfig(cfg))

	wasExact := a.engine.CanScheduleExact()
	a.engine.SetExactAllowed(cfg.Scheduler.ExactAlarms)
	a.desktop.on.Store(cfg.Notifications.Desktop)
	a.desktop.inner.SetRate(cfg.Notifications.RatePerSec, cfg.Notifications.Burst)

	if err := a.sweeper.Apply(cfg.Scheduler.Sweep); err != nil {
		a.log.Warn("sweep not updated", logx.Err(err))
	}
	if !wasExact && cfg.Scheduler.ExactAlarms {
		if err := a.svc.Sweep(context.Background()); err != nil {
			a.log.Warn("re-arm after permission grant failed", logx.Err(err))
		}
	}
	a.cfg = cfg
	a.log.Info("config applied",
		logx.Bool("exact_alarms", cfg.Scheduler.ExactAlarms),
		logx.Bool("desktop", cfg.Notifications.Desktop),
		logx.String("sweep", cfg.Scheduler.Sweep),
	)
}

func (a *App) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	_ = a.logSvc.Close()
}

func (a *App) sdNotify(state string) {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if ok {
		a.log.Debug("sd_notify sent", logx.String("state", state))
	}
}

func logConfig(cfg config.Config) logx.Config {
	return logx.Config{Level: cfg.Log.Level, Console: cfg.Log.Console, File: cfg.Log.File}
}

// gatedPresenter forwards to the desktop only while it is switched on.
type gatedPresenter struct {
	on    atomic.Bool
	inner *notify.DesktopPresenter
}

func (g *gatedPresenter) RegisterChannel(ch notify.Channel) error {
	return g.inner.RegisterChannel(ch)
}

func (g *gatedPresenter) Present(ctx context.Context, n model.Notification) error {
	if !g.on.Load() {
		return nil
	}
	return g.inner.Present(ctx, n)
}
