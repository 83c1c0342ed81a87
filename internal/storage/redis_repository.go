package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/remindd/internal/model"
)

// RedisStore keeps one hash per record, one set of codes per note and a
// sorted set of every code scored by the code itself.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(rdb *redis.Client, prefix string) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("storage: nil redis client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "remindd"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}, nil
}

// OpenRedis connects and pings the server before handing out the store.
func OpenRedis(ctx context.Context, addr string, db int, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open redis %s: %w", addr, err)
	}
	store, err := NewRedisStore(rdb, prefix)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return store, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) recordKey(code int) string {
	return s.prefix + ":notification:" + strconv.Itoa(code)
}

func (s *RedisStore) noteKey(noteID string) string {
	return s.prefix + ":note:" + noteID
}

func (s *RedisStore) codesKey() string {
	return s.prefix + ":codes"
}

func (s *RedisStore) AddOrUpdate(ctx context.Context, records ...model.Notification) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateAll(records); err != nil {
		return err
	}

	// A code may move between notes; drop it from the previous note's set.
	previous := make(map[int]string, len(records))
	for _, rec := range records {
		owner, err := s.rdb.HGet(ctx, s.recordKey(rec.RequestCode), "note_id").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("lookup notification %d: %w", rec.RequestCode, err)
		}
		if owner != "" && owner != rec.NoteID {
			previous[rec.RequestCode] = owner
		}
	}

	stamp := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, rec := range records {
			code := strconv.Itoa(rec.RequestCode)
			if owner, ok := previous[rec.RequestCode]; ok {
				p.SRem(ctx, s.noteKey(owner), code)
			}
			p.HSet(ctx, s.recordKey(rec.RequestCode), map[string]any{
				"note_id":     rec.NoteID,
				"title":       rec.Title,
				"message":     rec.Message,
				"trigger_ms":  rec.Trigger,
				"repeat_mode": string(rec.RepeatMode),
				"updated_at":  stamp,
			})
			p.SAdd(ctx, s.noteKey(rec.NoteID), code)
			p.ZAdd(ctx, s.codesKey(), redis.Z{Score: float64(rec.RequestCode), Member: code})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert notifications: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, requestCode int) error {
	owner, err := s.rdb.HGet(ctx, s.recordKey(requestCode), "note_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup notification %d: %w", requestCode, err)
	}
	code := strconv.Itoa(requestCode)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.recordKey(requestCode))
		p.SRem(ctx, s.noteKey(owner), code)
		p.ZRem(ctx, s.codesKey(), code)
		return nil
	})
	return err
}

func (s *RedisStore) RemoveForNote(ctx context.Context, noteID string) ([]int, error) {
	records, err := s.ForNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	codes := make([]int, 0, len(records))
	if len(records) == 0 {
		return codes, nil
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, rec := range records {
			p.Del(ctx, s.recordKey(rec.RequestCode))
			p.ZRem(ctx, s.codesKey(), strconv.Itoa(rec.RequestCode))
			codes = append(codes, rec.RequestCode)
		}
		p.Del(ctx, s.noteKey(noteID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *RedisStore) UpdateTime(ctx context.Context, requestCode int, trigger int64, mode model.RepeatMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidRepeatMode, mode)
	}
	key := s.recordKey(requestCode)
	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, map[string]any{
				"trigger_ms":  trigger,
				"repeat_mode": string(mode),
				"updated_at":  s.now().UTC().Format(time.RFC3339Nano),
			})
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) UpdateData(ctx context.Context, noteID, title, message string) error {
	codes, err := s.noteCodes(ctx, noteID)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return ErrNotFound
	}
	keys := make([]string, 0, len(codes)+1)
	keys = append(keys, s.noteKey(noteID))
	for _, code := range codes {
		keys = append(keys, s.recordKey(code))
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	return s.watch(ctx, func(tx *redis.Tx) error {
		var live []int
		for _, code := range codes {
			n, err := tx.Exists(ctx, s.recordKey(code)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				live = append(live, code)
			}
		}
		if len(live) == 0 {
			return ErrNotFound
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, code := range live {
				p.HSet(ctx, s.recordKey(code), map[string]any{
					"title":      title,
					"message":    message,
					"updated_at": stamp,
				})
			}
			return nil
		})
		return err
	}, keys...)
}

const watchAttempts = 5

// watch runs fn under WATCH on keys and retries when another client touched
// them before EXEC.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for range watchAttempts {
		err = s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("storage: concurrent update on %s: %w", keys[0], err)
}

func (s *RedisStore) Get(ctx context.Context, requestCode int) (model.Notification, error) {
	fields, err := s.rdb.HGetAll(ctx, s.recordKey(requestCode)).Result()
	if err != nil {
		return model.Notification{}, err
	}
	if len(fields) == 0 {
		return model.Notification{}, ErrNotFound
	}
	return decodeRecord(requestCode, fields)
}

func (s *RedisStore) ForNote(ctx context.Context, noteID string) ([]model.Notification, error) {
	codes, err := s.noteCodes(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, codes)
}

func (s *RedisStore) All(ctx context.Context) ([]model.Notification, error) {
	members, err := s.rdb.ZRange(ctx, s.codesKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	codes, err := parseCodes(members)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, codes)
}

func (s *RedisStore) NextRequestCode(ctx context.Context) (int, error) {
	top, err := s.rdb.ZRevRangeWithScores(ctx, s.codesKey(), 0, 0).Result()
	if err != nil {
		return 0, err
	}
	if len(top) == 0 {
		return 1, nil
	}
	return int(top[0].Score) + 1, nil
}

func (s *RedisStore) noteCodes(ctx context.Context, noteID string) ([]int, error) {
	members, err := s.rdb.SMembers(ctx, s.noteKey(noteID)).Result()
	if err != nil {
		return nil, err
	}
	return parseCodes(members)
}

func (s *RedisStore) load(ctx context.Context, codes []int) ([]model.Notification, error) {
	out := make([]model.Notification, 0, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, code := range codes {
			cmds[i] = p.HGetAll(ctx, s.recordKey(code))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Index entry without a record; skip it rather than fail the listing.
			continue
		}
		rec, err := decodeRecord(codes[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trigger != out[j].Trigger {
			return out[i].Trigger < out[j].Trigger
		}
		return out[i].RequestCode < out[j].RequestCode
	})
	return out, nil
}

func decodeRecord(code int, fields map[string]string) (model.Notification, error) {
	trigger, err := strconv.ParseInt(fields["trigger_ms"], 10, 64)
	if err != nil {
		return model.Notification{}, fmt.Errorf("storage: notification %d trigger: %w", code, err)
	}
	mode, err := model.ParseRepeatMode(fields["repeat_mode"])
	if err != nil {
		return model.Notification{}, err
	}
	return model.Notification{
		RequestCode: code,
		NoteID:      fields["note_id"],
		Title:       fields["title"],
		Message:     fields["message"],
		Trigger:     trigger,
		RepeatMode:  mode,
	}, nil
}

func parseCodes(members []string) ([]int, error) {
	out := make([]int, 0, len(members))
	for _, m := range members {
		code, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("storage: bad request code %q: %w", m, err)
		}
		out = append(out, code)
	}
	return out, nil
}
