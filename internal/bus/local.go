package bus

import (
	"context"
	"sync"
)

// subscriber owns a buffered delivery channel drained by its own
// goroutine, so one slow handler cannot stall the fan-out loop.
type subscriber struct {
	ch chan Event
}

// Local is the in-process bus for single-binary deployments. A single
// goroutine owns the subscriber table; registration, removal, and
// fan-out all flow through its channels.
type Local struct {
	register   chan *subscriber
	unregister chan *subscriber
	publish    chan Event
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewLocal builds a local bus and starts its fan-out loop.
func NewLocal() *Local {
	l := &Local{
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		publish:    make(chan Event),
		stop:       make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Local) run() {
	subs := make(map[*subscriber]bool)
	for {
		select {
		case s := <-l.register:
			subs[s] = true
		case s := <-l.unregister:
			if subs[s] {
				delete(subs, s)
				close(s.ch)
			}
		case ev := <-l.publish:
			for s := range subs {
				select {
				case s.ch <- ev:
				default:
					// Subscriber fell too far behind; drop it.
					delete(subs, s)
					close(s.ch)
				}
			}
		case <-l.stop:
			for s := range subs {
				close(s.ch)
			}
			return
		}
	}
}

// Publish delivers the event to every current subscriber.
func (l *Local) Publish(ctx context.Context, ev Event) error {
	select {
	case l.publish <- ev:
		return nil
	case <-l.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a handler. The returned cancel stops delivery; it
// is safe to call more than once.
func (l *Local) Subscribe(h Handler) func() {
	s := &subscriber{ch: make(chan Event, 64)}
	go func() {
		for ev := range s.ch {
			h(context.Background(), ev)
		}
	}()

	select {
	case l.register <- s:
	case <-l.stop:
		close(s.ch)
		return func() {}
	}

	return func() {
		select {
		case l.unregister <- s:
		case <-l.stop:
		}
	}
}

// Close shuts the bus down and releases all subscribers. Idempotent.
func (l *Local) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}
