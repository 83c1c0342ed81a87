// Package storage persists notification records so scheduled reminders
// survive restarts.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/remindd/internal/config"
	"github.com/sandeepkv93/remindd/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// NotificationStore is keyed by request code with a secondary lookup by note
// id. Listings are ordered by trigger, then request code.
type NotificationStore interface {
	// AddOrUpdate upserts every record by request code.
	AddOrUpdate(ctx context.Context, records ...model.Notification) error
	// Remove deletes one record. Removing an absent code is not an error.
	Remove(ctx context.Context, requestCode int) error
	// RemoveForNote deletes all records of a note and returns their codes.
	RemoveForNote(ctx context.Context, noteID string) ([]int, error)
	UpdateTime(ctx context.Context, requestCode int, trigger int64, mode model.RepeatMode) error
	UpdateData(ctx context.Context, noteID, title, message string) error
	Get(ctx context.Context, requestCode int) (model.Notification, error)
	ForNote(ctx context.Context, noteID string) ([]model.Notification, error)
	All(ctx context.Context) ([]model.Notification, error)
	// NextRequestCode returns one past the highest stored code, or 1.
	NextRequestCode(ctx context.Context) (int, error)
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (NotificationStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.Path)
	case "redis":
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

func validateAll(records []model.Notification) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("storage: record %d: %w", rec.RequestCode, err)
		}
	}
	return nil
}
