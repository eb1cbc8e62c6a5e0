package presence

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ObserverTimeout bounds the context handed to each observer call.
const ObserverTimeout = 10 * time.Second

// mirrorIdle is how long a mirror waits before rechecking its context.
const mirrorIdle = time.Minute

// mirror feeds one observer from its own goroutine. Events are queued
// without blocking, so a slow observer delays only itself.
type mirror struct {
	observer Observer
	events   *Sender
	logger   *zap.Logger
}

// startMirrors starts one goroutine per observer. They stop once ctx is
// done and any observer call in flight has returned.
func startMirrors(ctx context.Context, observers []Observer, logger *zap.Logger) []*mirror {
	mirrors := make([]*mirror, 0, len(observers))
	for _, o := range observers {
		tx, rx := NewChannel()
		m := &mirror{observer: o, events: tx, logger: logger}
		mirrors = append(mirrors, m)
		go m.run(ctx, rx)
	}
	return mirrors
}

// forward queues e for the observer. Send only fails once the mirror has
// stopped, which happens on shutdown.
func (m *mirror) forward(e Event) {
	if err := m.events.Send(e); err != nil {
		m.logger.Debug("mirror stopped, event dropped", zap.Stringer("event", e))
	}
}

func (m *mirror) run(ctx context.Context, rx *Receiver) {
	defer rx.Close()
	for {
		e, ok := rx.Receive(ctx, mirrorIdle)
		if ctx.Err() != nil {
			return
		}
		if ok {
			m.apply(ctx, e)
		}
	}
}

func (m *mirror) apply(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, ObserverTimeout)
	defer cancel()

	switch e.Kind {
	case EventStarted:
		if err := m.observer.TrackStarted(ctx, e.Track); err != nil {
			m.logger.Warn("observer failed on track start", zap.Error(err))
		}
	case EventStopped:
		if err := m.observer.TrackStopped(ctx); err != nil {
			m.logger.Warn("observer failed on track stop", zap.Error(err))
		}
	}
}
