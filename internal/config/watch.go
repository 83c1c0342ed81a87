package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/remindd/internal/logx"
)

const watchDebounce = 250 * time.Millisecond

// Watch reloads path whenever it changes and calls apply with every config
// that parses, validates and differs from the last one applied. It blocks
// until ctx is done. The parent directory is watched so editors that replace
// the file on save are handled.
func Watch(ctx context.Context, path string, current Config, log logx.Logger, apply func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch init: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	file := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config watch %s: %w", dir, err)
	}

	var (
		mu    sync.Mutex
		last  = current
		timer *time.Timer
	)
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
			return
		}
		mu.Lock()
		unchanged := reflect.DeepEqual(cfg, last)
		if !unchanged {
			last = cfg
		}
		mu.Unlock()
		if unchanged {
			log.Debug("config unchanged; skipping apply", logx.String("path", path))
			return
		}
		log.Info("config reloaded", logx.String("path", path))
		apply(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watch error", logx.Err(werr))
		}
	}
}
