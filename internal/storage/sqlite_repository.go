package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/remindd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

const notificationColumns = `request_code, note_id, title, message, trigger_ms, repeat_mode`

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// OpenSQLite opens the database at path and applies the embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// sqliteDSN adds the busy timeout and WAL journal to path unless its own
// query string already sets them.
func sqliteDSN(path string) (string, error) {
	base, raw, _ := strings.Cut(path, "?")
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("storage: sqlite path %q: %w", path, err)
	}
	if !q.Has("_busy_timeout") {
		q.Set("_busy_timeout", "5000")
	}
	if !q.Has("_journal_mode") {
		q.Set("_journal_mode", "WAL")
	}
	return base + "?" + q.Encode(), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddOrUpdate(ctx context.Context, records ...model.Notification) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateAll(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_code) DO UPDATE SET
			note_id = excluded.note_id,
			title = excluded.title,
			message = excluded.message,
			trigger_ms = excluded.trigger_ms,
			repeat_mode = excluded.repeat_mode,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	stamp := s.stamp()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.RequestCode, rec.NoteID, rec.Title, rec.Message, rec.Trigger, string(rec.RepeatMode), stamp,
		); err != nil {
			return fmt.Errorf("upsert notification %d: %w", rec.RequestCode, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Remove(ctx context.Context, requestCode int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE request_code = ?`, requestCode)
	return err
}

func (s *SQLiteStore) RemoveForNote(ctx context.Context, noteID string) ([]int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT request_code FROM notifications
		WHERE note_id = ?
		ORDER BY trigger_ms, request_code`, noteID)
	if err != nil {
		return nil, err
	}
	codes := make([]int, 0)
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(codes) == 0 {
		return codes, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE note_id = ?`, noteID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *SQLiteStore) UpdateTime(ctx context.Context, requestCode int, trigger int64, mode model.RepeatMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidRepeatMode, mode)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET trigger_ms = ?, repeat_mode = ?, updated_at = ?
		WHERE request_code = ?`,
		trigger, string(mode), s.stamp(), requestCode,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) UpdateData(ctx context.Context, noteID, title, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET title = ?, message = ?, updated_at = ?
		WHERE note_id = ?`,
		title, message, s.stamp(), noteID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) Get(ctx context.Context, requestCode int) (model.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE request_code = ?`, requestCode)
	rec, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotFound
		}
		return model.Notification{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) ForNote(ctx context.Context, noteID string) ([]model.Notification, error) {
	return s.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE note_id = ?
		ORDER BY trigger_ms, request_code`, noteID)
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.Notification, error) {
	return s.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		ORDER BY trigger_ms, request_code`)
}

func (s *SQLiteStore) NextRequestCode(ctx context.Context) (int, error) {
	var highest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(request_code) FROM notifications`).Scan(&highest); err != nil {
		return 0, err
	}
	if !highest.Valid {
		return 1, nil
	}
	return int(highest.Int64) + 1, nil
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		rec, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(sqliteTimeLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(s scanner) (model.Notification, error) {
	var out model.Notification
	var mode string
	if err := s.Scan(&out.RequestCode, &out.NoteID, &out.Title, &out.Message, &out.Trigger, &mode); err != nil {
		return model.Notification{}, err
	}
	parsed, err := model.ParseRepeatMode(mode)
	if err != nil {
		return model.Notification{}, err
	}
	out.RepeatMode = parsed
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
