package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/remindd/internal/model"
)

// Delivery is a reminder as it was presented.
type Delivery struct {
	Notification model.Notification
	Channel      Channel
	At           time.Time
}

// FeedPresenter hands deliveries to an in-process consumer such as the
// console. Sends never block; a full feed counts the delivery as dropped.
type FeedPresenter struct {
	channels
	out     chan Delivery
	now     func() time.Time
	dropped atomic.Uint64
}

func NewFeedPresenter(buffer int) *FeedPresenter {
	if buffer <= 0 {
		buffer = 1
	}
	return &FeedPresenter{out: make(chan Delivery, buffer), now: time.Now}
}

func (f *FeedPresenter) C() <-chan Delivery { return f.out }

func (f *FeedPresenter) Dropped() uint64 { return f.dropped.Load() }

func (f *FeedPresenter) RegisterChannel(ch Channel) error {
	return f.register(ch)
}

func (f *FeedPresenter) Present(_ context.Context, n model.Notification) error {
	d := Delivery{Notification: n, Channel: f.active(), At: f.now()}
	select {
	case f.out <- d:
	default:
		f.dropped.Add(1)
	}
	return nil
}
