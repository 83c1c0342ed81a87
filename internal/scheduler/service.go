package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sandeepkv93/remindd/internal/logx"
	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/storage"
)

// ErrRecordNotFound is returned when an operation names a request code or
// note that has no stored record.
var ErrRecordNotFound = fmt.Errorf("scheduler: record not found: %w", storage.ErrNotFound)

// Alarms is the one-shot wake-up registration service. *Engine implements it.
type Alarms interface {
	Arm(id int, at time.Time) error
	Cancel(id int)
	CanScheduleExact() bool
	Armed(id int) (time.Time, bool)
}

type Options struct {
	Logger   logx.Logger
	Location *time.Location
	Now      func() time.Time
	// SweepGrace is how long a past-due record may wait for its wake-up
	// before Sweep delivers it directly.
	SweepGrace time.Duration
}

// Service keeps stored reminders and wake-up registrations in agreement.
// Mutations are serialized; presentation happens outside the lock.
type Service struct {
	mu        sync.Mutex
	store     storage.NotificationStore
	alarms    Alarms
	presenter notify.Presenter
	log       logx.Logger
	loc       *time.Location
	now       func() time.Time
	grace     time.Duration
	unarmed   map[int]struct{}
	// inflight holds codes being presented by HandleWakeup.
	inflight map[int]struct{}
}

// Entry is a stored record together with its registration state.
type Entry struct {
	model.Notification
	Armed   bool
	ArmedAt time.Time
}

// RestoreReport summarises one RestoreNotifications pass.
type RestoreReport struct {
	Total    int
	Missed   int
	Expired  int
	Advanced int
	Unarmed  int
}

func NewService(store storage.NotificationStore, alarms Alarms, presenter notify.Presenter, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SweepGrace <= 0 {
		opts.SweepGrace = 5 * time.Second
	}
	return &Service{
		store:     store,
		alarms:    alarms,
		presenter: presenter,
		log:       opts.Logger.With(logx.String("component", "scheduler")),
		loc:       opts.Location,
		now:       opts.Now,
		grace:     opts.SweepGrace,
		unarmed:   make(map[int]struct{}),
		inflight:  make(map[int]struct{}),
	}
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// CreateNotificationChannel registers a presentation channel.
func (s *Service) CreateNotificationChannel(ch notify.Channel) error {
	return s.presenter.RegisterChannel(ch)
}

// ScheduleNotification persists n and arms its wake-up. Calling it again for
// the same request code replaces both the record and the registration.
func (s *Service) ScheduleNotification(ctx context.Context, n model.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.AddOrUpdate(ctx, n); err != nil {
		return fmt.Errorf("schedule %d: %w", n.RequestCode, err)
	}
	return s.armLocked(n)
}

// UpdateNotificationTime moves a record to date's calendar day at clock's
// time of day in the service location.
func (s *Service) UpdateNotificationTime(ctx context.Context, requestCode int, date, clock time.Time, mode model.RepeatMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidRepeatMode, mode)
	}
	at := CombineDateTime(date, clock, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.UpdateTime(ctx, requestCode, at.UnixMilli(), mode); err != nil {
		return s.notFound(err, "request code %d", requestCode)
	}
	rec, err := s.store.Get(ctx, requestCode)
	if err != nil {
		return s.notFound(err, "request code %d", requestCode)
	}
	return s.armLocked(rec)
}

// UpdateNotificationData changes the payload of every record of a note and
// optionally re-arms them.
func (s *Service) UpdateNotificationData(ctx context.Context, noteID, title, message string, reschedule bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.UpdateData(ctx, noteID, title, message); err != nil {
		return s.notFound(err, "note %q", noteID)
	}
	if !reschedule {
		return nil
	}
	records, err := s.store.ForNote(ctx, noteID)
	if err != nil {
		return err
	}
	var errs []error
	for _, rec := range records {
		if err := s.armLocked(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) DeleteNotification(ctx context.Context, n model.Notification) error {
	return s.DeleteByRequestCode(ctx, n.RequestCode)
}

// DeleteByRequestCode removes the record and cancels its wake-up. An unknown
// code still cancels any stray registration and reports ErrRecordNotFound.
func (s *Service) DeleteByRequestCode(ctx context.Context, requestCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(requestCode)
	if _, err := s.store.Get(ctx, requestCode); err != nil {
		return s.notFound(err, "request code %d", requestCode)
	}
	if err := s.store.Remove(ctx, requestCode); err != nil {
		return fmt.Errorf("delete %d: %w", requestCode, err)
	}
	s.log.Debug("notification deleted", logx.Int("request_code", requestCode))
	return nil
}

// DeleteForNote removes every record of a note and cancels their wake-ups.
// A note without records is a no-op.
func (s *Service) DeleteForNote(ctx context.Context, noteID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes, err := s.store.RemoveForNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("delete note %q: %w", noteID, err)
	}
	for _, code := range codes {
		s.cancelLocked(code)
	}
	if len(codes) > 0 {
		s.log.Debug("note notifications deleted", logx.String("note_id", noteID), logx.Int("count", len(codes)))
	}
	return codes, nil
}

// CancelNotificationsForNote cancels wake-ups but keeps the records.
func (s *Service) CancelNotificationsForNote(ctx context.Context, noteID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.store.ForNote(ctx, noteID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: note %q", ErrRecordNotFound, noteID)
	}
	for _, rec := range records {
		s.cancelLocked(rec.RequestCode)
	}
	return len(records), nil
}

func (s *Service) CancelNotification(ctx context.Context, requestCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(requestCode)
	if _, err := s.store.Get(ctx, requestCode); err != nil {
		return s.notFound(err, "request code %d", requestCode)
	}
	return nil
}

// RestoreNotifications runs once at start. Each record whose trigger passed
// while the process was down is re-persisted and queued for delivery, then
// reconciled: a passed one-shot is deleted, a repeating record moves to its
// next occurrence, anything still ahead is re-armed as stored. Queued records
// are presented once the store is consistent.
//
// While exact wake-ups are refused, passed records are neither presented nor
// reconciled. They stay stored and are listed by Unarmed until Sweep runs with
// the capability back.
func (s *Service) RestoreNotifications(ctx context.Context) (RestoreReport, error) {
	s.mu.Lock()
	records, err := s.store.All(ctx)
	if err != nil {
		s.mu.Unlock()
		return RestoreReport{}, fmt.Errorf("restore: %w", err)
	}
	now := s.clock()
	exact := s.alarms.CanScheduleExact()
	report := RestoreReport{Total: len(records)}

	var missed []model.Notification
	var errs []error
	for _, rec := range records {
		if _, busy := s.inflight[rec.RequestCode]; busy {
			continue
		}
		if at := rec.TriggerTime(s.loc); at.Before(now) {
			if !exact {
				s.refusedLocked(rec.RequestCode, at)
				continue
			}
			// Re-persist the stale record and queue it for delivery.
			if err := s.store.AddOrUpdate(ctx, rec); err != nil {
				errs = append(errs, err)
				continue
			}
			missed = append(missed, rec)
			report.Missed++
		}

		outcome, err := s.reconcileLocked(ctx, rec, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch outcome {
		case outcomeExpired:
			report.Expired++
		case outcomeAdvanced:
			report.Advanced++
		}
	}
	report.Unarmed = len(s.unarmed)
	s.mu.Unlock()

	for _, rec := range missed {
		if err := s.presenter.Present(ctx, rec); err != nil {
			s.log.Warn("missed reminder not presented", logx.Int("request_code", rec.RequestCode), logx.Err(err))
		}
	}
	s.log.Info("notifications restored",
		logx.Int("total", report.Total),
		logx.Int("missed", report.Missed),
		logx.Int("expired", report.Expired),
		logx.Int("advanced", report.Advanced),
		logx.Int("unarmed", report.Unarmed),
	)
	return report, errors.Join(errs...)
}

// ReconcileNotifications re-arms every stored record whose registration is
// missing or out of date, without presenting anything. Passed records are
// armed at their stored trigger so the engine delivers them through
// HandleWakeup. Missed counts those.
func (s *Service) ReconcileNotifications(ctx context.Context) (RestoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.store.All(ctx)
	if err != nil {
		return RestoreReport{}, fmt.Errorf("reconcile: %w", err)
	}
	now := s.clock()
	report := RestoreReport{Total: len(records)}
	var errs []error
	for _, rec := range records {
		if _, busy := s.inflight[rec.RequestCode]; busy {
			continue
		}
		at := rec.TriggerTime(s.loc)
		if armedAt, ok := s.alarms.Armed(rec.RequestCode); ok && armedAt.Equal(at) {
			continue
		}
		if err := s.armLocked(rec); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, refused := s.unarmed[rec.RequestCode]; !refused && !at.After(now) {
			report.Missed++
		}
	}
	report.Unarmed = len(s.unarmed)
	s.log.Info("notifications reconciled",
		logx.Int("total", report.Total),
		logx.Int("requeued", report.Missed),
		logx.Int("unarmed", report.Unarmed),
	)
	return report, errors.Join(errs...)
}

// Notification returns the stored record for requestCode.
func (s *Service) Notification(ctx context.Context, requestCode int) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.store.Get(ctx, requestCode)
	if err != nil {
		return model.Notification{}, s.notFound(err, "request code %d", requestCode)
	}
	return rec, nil
}

// HandleWakeup delivers the record behind a fired registration and then
// reconciles it. Wake-ups for records that were moved later are re-armed
// instead of delivered. A wake-up for a code that is already being presented
// is dropped; the running delivery reconciles it.
func (s *Service) HandleWakeup(ctx context.Context, w Wakeup) error {
	s.mu.Lock()
	rec, err := s.store.Get(ctx, w.RequestCode)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("wake-up for unknown record", logx.Int("request_code", w.RequestCode))
		}
		return s.notFound(err, "request code %d", w.RequestCode)
	}
	now := s.clock()
	if rec.TriggerTime(s.loc).After(now) {
		err := s.armLocked(rec)
		s.mu.Unlock()
		s.log.Debug("stale wake-up re-armed", logx.Int("request_code", rec.RequestCode))
		return err
	}
	if _, busy := s.inflight[rec.RequestCode]; busy {
		s.mu.Unlock()
		s.log.Debug("duplicate wake-up dropped", logx.Int("request_code", rec.RequestCode))
		return nil
	}
	s.inflight[rec.RequestCode] = struct{}{}
	s.mu.Unlock()

	if err := s.presenter.Present(ctx, rec); err != nil {
		s.log.Warn("reminder not presented", logx.Int("request_code", rec.RequestCode), logx.Err(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, rec.RequestCode)
	current, err := s.store.Get(ctx, rec.RequestCode)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted while it was being presented.
		return nil
	}
	if err != nil {
		return err
	}
	if current.Trigger != rec.Trigger || current.RepeatMode != rec.RepeatMode {
		return nil
	}
	// Reconcile strictly after the fired instant so a repeat never lands on it.
	ref := s.clock()
	if floor := rec.TriggerTime(s.loc).Add(time.Millisecond); ref.Before(floor) {
		ref = floor
	}
	_, err = s.reconcileLocked(ctx, current, ref)
	return err
}

// Run dispatches wake-ups until ctx is done or wakeups is closed.
func (s *Service) Run(ctx context.Context, wakeups <-chan Wakeup) {
	for {
		select {
		case <-ctx.Done():
			return
		case w, ok := <-wakeups:
			if !ok {
				return
			}
			if err := s.HandleWakeup(ctx, w); err != nil && !errors.Is(err, ErrRecordNotFound) {
				s.log.Error("wake-up handling failed", logx.Int("request_code", w.RequestCode), logx.Err(err))
			}
		}
	}
}

// Sweep arms records that lost their registration, for example after a
// dropped wake-up or once exact scheduling is permitted again, and delivers
// records that are past due by more than the grace period. While exact
// wake-ups are refused nothing is delivered and passed records stay stored.
func (s *Service) Sweep(ctx context.Context) error {
	s.mu.Lock()
	records, err := s.store.All(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sweep: %w", err)
	}
	now := s.clock()
	exact := s.alarms.CanScheduleExact()
	var due []Wakeup
	rearmed := 0
	for _, rec := range records {
		if _, ok := s.alarms.Armed(rec.RequestCode); ok {
			continue
		}
		if _, busy := s.inflight[rec.RequestCode]; busy {
			continue
		}
		at := rec.TriggerTime(s.loc)
		if !exact && !at.After(now) {
			s.refusedLocked(rec.RequestCode, at)
			continue
		}
		if at.After(now) {
			if err := s.armLocked(rec); err == nil {
				if _, refused := s.unarmed[rec.RequestCode]; !refused {
					rearmed++
				}
			}
			continue
		}
		if now.Sub(at) > s.grace {
			due = append(due, Wakeup{RequestCode: rec.RequestCode, At: at})
		}
	}
	s.mu.Unlock()

	if rearmed > 0 || len(due) > 0 {
		s.log.Info("sweep", logx.Int("rearmed", rearmed), logx.Int("due", len(due)))
	}
	var errs []error
	for _, w := range due {
		if err := s.HandleWakeup(ctx, w); err != nil && !errors.Is(err, ErrRecordNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unarmed lists request codes whose last arm attempt was refused.
func (s *Service) Unarmed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.unarmed))
	for code := range s.unarmed {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

func (s *Service) Pending(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		at, ok := s.alarms.Armed(rec.RequestCode)
		out = append(out, Entry{Notification: rec, Armed: ok, ArmedAt: at})
	}
	return out, nil
}

func (s *Service) Agenda(ctx context.Context, from, to time.Time) ([]model.AgendaEntry, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return model.Agenda(records, from.In(s.loc), to.In(s.loc))
}

func (s *Service) IndicatorDates(ctx context.Context, today time.Time) ([]time.Time, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return model.IndicatorDates(records, today.In(s.loc)), nil
}

// NextRequestCode allocates a code for a new reminder.
func (s *Service) NextRequestCode(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.NextRequestCode(ctx)
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) snapshot(ctx context.Context) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All(ctx)
}

type outcome int

const (
	outcomeRearmed outcome = iota
	outcomeAdvanced
	outcomeExpired
)

// reconcileLocked moves rec to its next occurrence relative to ref, or deletes
// it when a one-shot has passed.
func (s *Service) reconcileLocked(ctx context.Context, rec model.Notification, ref time.Time) (outcome, error) {
	old := rec.TriggerTime(s.loc)
	next, err := model.NextOccurrence(old, rec.RepeatMode, ref)
	if errors.Is(err, model.ErrOccurrenceExhausted) {
		s.cancelLocked(rec.RequestCode)
		if err := s.store.Remove(ctx, rec.RequestCode); err != nil {
			return outcomeExpired, fmt.Errorf("expire %d: %w", rec.RequestCode, err)
		}
		s.log.Debug("one-shot notification expired", logx.Int("request_code", rec.RequestCode))
		return outcomeExpired, nil
	}
	if err != nil {
		return outcomeRearmed, fmt.Errorf("reconcile %d: %w", rec.RequestCode, err)
	}

	result := outcomeRearmed
	if !next.Equal(old) {
		if err := s.store.UpdateTime(ctx, rec.RequestCode, next.UnixMilli(), rec.RepeatMode); err != nil {
			return outcomeRearmed, s.notFound(err, "request code %d", rec.RequestCode)
		}
		rec = rec.WithTrigger(next)
		result = outcomeAdvanced
	}
	return result, s.armLocked(rec)
}

// armLocked registers rec's wake-up. A refused capability is logged and
// recorded in Unarmed but not returned.
func (s *Service) armLocked(rec model.Notification) error {
	at := rec.TriggerTime(s.loc)
	if !s.alarms.CanScheduleExact() {
		s.refusedLocked(rec.RequestCode, at)
		return nil
	}
	if err := s.alarms.Arm(rec.RequestCode, at); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			s.refusedLocked(rec.RequestCode, at)
			return nil
		}
		return fmt.Errorf("arm %d: %w", rec.RequestCode, err)
	}
	delete(s.unarmed, rec.RequestCode)
	return nil
}

func (s *Service) refusedLocked(code int, at time.Time) {
	if _, seen := s.unarmed[code]; seen {
		return
	}
	s.unarmed[code] = struct{}{}
	s.log.Warn("exact wake-up refused; reminder will not fire",
		logx.Int("request_code", code),
		logx.Time("trigger", at),
	)
}

func (s *Service) cancelLocked(code int) {
	s.alarms.Cancel(code)
	delete(s.unarmed, code)
}

func (s *Service) notFound(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{ErrRecordNotFound}, args...)...)
	}
	return err
}

// CombineDateTime takes the calendar day of date and the time of day of clock
// in loc.
func CombineDateTime(date, clock time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
}
