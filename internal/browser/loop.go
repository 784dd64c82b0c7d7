package browser

import (
	"context"
	"time"
)

// Loop serialises events onto one goroutine. Post may be called from any
// goroutine.
type Loop struct {
	events chan Event
	tick   time.Duration
	done   chan struct{}
}

// NewLoop creates a loop with a queue of the given size. A positive tick
// makes Run emit TickEvents at that interval.
func NewLoop(buffer int, tick time.Duration) *Loop {
	return &Loop{
		events: make(chan Event, buffer),
		tick:   tick,
		done:   make(chan struct{}),
	}
}

// Post queues ev. It blocks while the queue is full and drops ev once the
// loop has stopped.
func (l *Loop) Post(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// Run hands events to handle until handle returns true or ctx ends.
func (l *Loop) Run(ctx context.Context, handle func(Event) (stop bool)) error {
	defer close(l.done)

	var tick <-chan time.Time
	if l.tick > 0 {
		t := time.NewTicker(l.tick)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			if handle(ev) {
				return nil
			}
		case now := <-tick:
			if handle(TickEvent{Now: now}) {
				return nil
			}
		}
	}
}
