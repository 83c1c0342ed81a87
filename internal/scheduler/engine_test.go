package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Arm(2, now.Add(80*time.Millisecond)); err != nil {
		t.Fatalf("arm later: %v", err)
	}
	if err := engine.Arm(1, now.Add(20*time.Millisecond)); err != nil {
		t.Fatalf("arm sooner: %v", err)
	}

	first := waitWakeup(t, engine.C(), time.Second)
	second := waitWakeup(t, engine.C(), time.Second)
	if first.RequestCode != 1 || second.RequestCode != 2 {
		t.Fatalf("unexpected order: first=%d second=%d", first.RequestCode, second.RequestCode)
	}
	if engine.Pending() != 0 {
		t.Fatalf("fired registrations must be released, pending=%d", engine.Pending())
	}
}

func TestEngineArmReplacesExistingRegistration(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Arm(5, now.Add(20*time.Millisecond)); err != nil {
		t.Fatalf("arm: %v", err)
	}
	moved := now.Add(time.Hour)
	if err := engine.Arm(5, moved); err != nil {
		t.Fatalf("re-arm: %v", err)
	}
	if engine.Pending() != 1 {
		t.Fatalf("expected a single registration, got %d", engine.Pending())
	}
	if at, ok := engine.Armed(5); !ok || !at.Equal(moved) {
		t.Fatalf("expected registration moved to %v, got %v (%v)", moved, at, ok)
	}

	select {
	case w := <-engine.C():
		t.Fatalf("replaced registration still fired: %+v", w)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestEngineCancel(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	if err := engine.Arm(9, time.Now().Add(30*time.Millisecond)); err != nil {
		t.Fatalf("arm: %v", err)
	}
	engine.Cancel(9)
	engine.Cancel(9)
	engine.Cancel(404)
	if _, ok := engine.Armed(9); ok {
		t.Fatal("expected cancelled registration to be gone")
	}
	select {
	case w := <-engine.C():
		t.Fatalf("cancelled registration fired: %+v", w)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestEnginePastInstantFiresImmediately(t *testing.T) {
	engine := NewEngine(2)
	engine.Start()
	defer engine.Stop()

	past := time.Now().Add(-48 * time.Hour)
	if err := engine.Arm(3, past); err != nil {
		t.Fatalf("arm past: %v", err)
	}
	w := waitWakeup(t, engine.C(), 200*time.Millisecond)
	if w.RequestCode != 3 || !w.At.Equal(past) {
		t.Fatalf("unexpected wakeup: %+v", w)
	}
}

func TestEngineRefusesWithoutExactPermission(t *testing.T) {
	engine := NewEngine(1)
	engine.SetExactAllowed(false)
	if engine.CanScheduleExact() {
		t.Fatal("expected capability to be off")
	}
	if err := engine.Arm(1, time.Now().Add(time.Minute)); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if engine.Pending() != 0 {
		t.Fatal("refused arm must not register")
	}
	engine.SetExactAllowed(true)
	if err := engine.Arm(1, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("arm after grant: %v", err)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Arm(i, at); err != nil {
			t.Fatalf("arm %d: %v", i, err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped wakeups > 0, got %d", engine.Dropped())
	}
}

func TestArmValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Arm(1, time.Time{}); !errors.Is(err, ErrInvalidTriggerTime) {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func TestArmAfterStop(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	if err := engine.Arm(1, time.Now()); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func waitWakeup(t *testing.T, ch <-chan Wakeup, timeout time.Duration) Wakeup {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for wakeup")
		return Wakeup{}
	}
}
