package presence

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrReceiverClosed is returned by Send once the consumer end is gone.
var ErrReceiverClosed = errors.New("event receiver closed")

// queue is an unbounded FIFO shared by one Sender and one Receiver.
type queue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	ready  chan struct{}
}

// Sender is the producer end of a change channel.
type Sender struct {
	q *queue
}

// Receiver is the consumer end of a change channel.
type Receiver struct {
	q *queue
}

// NewChannel creates an unbounded, ordered event channel.
func NewChannel() (*Sender, *Receiver) {
	q := &queue{ready: make(chan struct{}, 1)}
	return &Sender{q: q}, &Receiver{q: q}
}

// Send enqueues e without blocking.
func (s *Sender) Send(e Event) error {
	q := s.q
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrReceiverClosed
	}
	q.events = append(q.events, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
		// Receiver already signalled
	}
	return nil
}

// Receive waits up to timeout for the next event.
// Returns false on timeout or when ctx is done.
func (r *Receiver) Receive(ctx context.Context, timeout time.Duration) (Event, bool) {
	if e, ok := r.pop(); ok {
		return e, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-r.q.ready:
			if e, ok := r.pop(); ok {
				return e, true
			}
		case <-timer.C:
			return Event{}, false
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// Len returns the number of queued events.
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.events)
}

// Close tears down the consumer end. Pending events are discarded and
// later sends fail with ErrReceiverClosed.
func (r *Receiver) Close() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	r.q.closed = true
	r.q.events = nil
}

func (r *Receiver) pop() (Event, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	if len(r.q.events) == 0 {
		return Event{}, false
	}
	e := r.q.events[0]
	r.q.events[0] = Event{}
	r.q.events = r.q.events[1:]
	return e, true
}
