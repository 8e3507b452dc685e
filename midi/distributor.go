package midi

import (
	"context"
	"sync"
)

// Distributor fans events out from one producer to any number of
// subscriptions. Send never blocks: every subscription buffers without
// limit, so a slow consumer costs memory instead of dropped events.
type Distributor struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewDistributor creates an open distributor with no subscribers.
func NewDistributor() *Distributor {
	return &Distributor{}
}

// Subscribe registers a new consumer. Events sent before the call are not
// replayed, so subscribe before starting the source.
func (d *Distributor) Subscribe() *Subscription {
	s := newSubscription()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		s.close()
		return s
	}
	d.subs = append(d.subs, s)
	return s
}

// Send queues ev on every subscription. It returns false once the
// distributor is closed.
func (d *Distributor) Send(ev RawEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	for _, s := range d.subs {
		s.push(ev)
	}
	return true
}

// Close ends the stream. Subscribers still receive everything queued before
// the close, then ErrClosed. Safe to call more than once.
func (d *Distributor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, s := range d.subs {
		s.close()
	}
}

// Subscription is one consumer's ordered view of the stream.
type Subscription struct {
	mu     sync.Mutex
	queue  []RawEvent
	closed bool

	ready chan struct{} // capacity 1, poked on push
	done  chan struct{} // closed on close
}

func newSubscription() *Subscription {
	return &Subscription{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (s *Subscription) push(ev RawEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.poke()
}

func (s *Subscription) poke() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// TryRecv pops the oldest queued event without blocking.
func (s *Subscription) TryRecv() (RawEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked()
}

func (s *Subscription) popLocked() (RawEvent, bool) {
	if len(s.queue) == 0 {
		return RawEvent{}, false
	}
	ev := s.queue[0]
	s.queue[0] = RawEvent{}
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil // let the backing array go
	}
	return ev, true
}

// Recv blocks until an event is available, the stream is closed and
// drained (ErrClosed), or ctx is done (ctx.Err()). Queued events are always
// returned before either terminal error.
func (s *Subscription) Recv(ctx context.Context) (RawEvent, error) {
	for {
		s.mu.Lock()
		ev, ok := s.popLocked()
		more := len(s.queue) > 0
		closed := s.closed
		s.mu.Unlock()

		if ok {
			if more {
				s.poke()
			}
			return ev, nil
		}
		if closed {
			return RawEvent{}, ErrClosed
		}

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return RawEvent{}, ctx.Err()
		}
	}
}
