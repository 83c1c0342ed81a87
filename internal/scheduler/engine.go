package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrPermissionDenied   = errors.New("scheduler: exact wake-ups not permitted")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

// Wakeup is emitted when a registration's instant has been reached.
type Wakeup struct {
	RequestCode int
	At          time.Time
}

type queueItem struct {
	id    int
	at    time.Time
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].at.Equal(pq[j].at) {
		return pq[i].id < pq[j].id
	}
	return pq[i].at.Before(pq[j].at)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// Engine holds at most one pending registration per id. Arming an id that is
// already registered moves it to the new instant.
type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	byID    map[int]*queueItem
	out     chan Wakeup
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	exact   atomic.Bool
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	e := &Engine{
		queue:  make(priorityQueue, 0),
		byID:   make(map[int]*queueItem),
		out:    make(chan Wakeup, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	e.exact.Store(true)
	return e
}

func (e *Engine) C() <-chan Wakeup {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// CanScheduleExact reports whether Arm currently accepts registrations.
func (e *Engine) CanScheduleExact() bool {
	return e.exact.Load()
}

func (e *Engine) SetExactAllowed(allowed bool) {
	e.exact.Store(allowed)
}

// Arm registers id to fire at at, replacing any earlier registration for id.
// An instant in the past fires on the next loop iteration.
func (e *Engine) Arm(id int, at time.Time) error {
	if at.IsZero() {
		return ErrInvalidTriggerTime
	}
	if !e.exact.Load() {
		return ErrPermissionDenied
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	if item, ok := e.byID[id]; ok {
		item.at = at
		heap.Fix(&e.queue, item.index)
	} else {
		item := &queueItem{id: id, at: at}
		heap.Push(&e.queue, item)
		e.byID[id] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel drops the registration for id. Unknown ids are ignored.
func (e *Engine) Cancel(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byID[id]
	if !ok {
		return
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byID, id)
	e.signalWakeup()
}

func (e *Engine) Armed(id int) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byID[id]
	if !ok {
		return time.Time{}, false
	}
	return item.at, true
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now())
			for _, w := range due {
				select {
				case e.out <- w:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return time.Time{}, false
	}
	return e.queue[0].at, true
}

func (e *Engine) popDue(now time.Time) []Wakeup {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Wakeup, 0)
	for len(e.queue) > 0 {
		next := e.queue[0]
		if next.at.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		delete(e.byID, item.id)
		out = append(out, Wakeup{RequestCode: item.id, At: item.at})
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
