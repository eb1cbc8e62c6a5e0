package presence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GraceDelay is how long the publisher waits after a clear before it
// drops the connection. Discord needs it to settle before the reconnect.
const GraceDelay = 1000 * time.Millisecond

// Connection is a live handle to the presence service.
type Connection interface {
	// SetStatus shows a two-line status. done receives the service's reply.
	SetStatus(state, details string, done func(error))
	// ClearStatus removes the status. done receives the service's reply.
	ClearStatus(done func(error))
	// RunCallbacks services pending replies. It must be called regularly.
	RunCallbacks() error
	Close() error
}

// Dialer opens presence connections bound to one client identity.
type Dialer interface {
	Open(ctx context.Context) (Connection, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Connection, error)

// Open calls f.
func (f DialerFunc) Open(ctx context.Context) (Connection, error) {
	return f(ctx)
}

// Observer mirrors playback edges into a secondary status service.
// Each observer is called from its own goroutine, in event order, with a
// context bounded by ObserverTimeout. Errors are logged and never affect
// the publisher's state.
type Observer interface {
	TrackStarted(ctx context.Context, track TrackInfo) error
	TrackStopped(ctx context.Context) error
}

// Publisher owns the presence connection and applies playback events.
type Publisher struct {
	dialer    Dialer
	events    *Receiver
	interval  time.Duration
	logger    *zap.Logger
	observers []Observer

	mirrors       []*mirror
	conn          Connection
	state         State
	onStateChange func(StateChange)
}

// NewPublisher creates a publisher. interval bounds each wait for an event
// and therefore sets the cadence of the callback pump.
func NewPublisher(dialer Dialer, events *Receiver, interval time.Duration, logger *zap.Logger, observers ...Observer) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		dialer:    dialer,
		events:    events,
		interval:  interval,
		logger:    logger,
		observers: observers,
		state:     StateActive,
	}
}

// OnStateChange registers fn to be called on every state transition.
// Must be called before Run.
func (p *Publisher) OnStateChange(fn func(StateChange)) {
	p.onStateChange = fn
}

// Run opens the connection and processes events until ctx is cancelled
// or the connection cannot be serviced. The receiver is closed on return.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.events.Close()

	mirrorCtx, stopMirrors := context.WithCancel(ctx)
	defer stopMirrors()
	p.mirrors = startMirrors(mirrorCtx, p.observers, p.logger)

	conn, err := p.dialer.Open(ctx)
	if err != nil {
		return fmt.Errorf("open presence connection: %w", err)
	}
	p.conn = conn
	p.logger.Info("presence connected", zap.Duration("interval", p.interval))

	for {
		if ctx.Err() != nil {
			return p.shutdown()
		}

		if e, ok := p.events.Receive(ctx, p.interval); ok {
			if err := p.handle(ctx, e); err != nil {
				p.closeConn()
				return err
			}
		}

		if ctx.Err() != nil {
			return p.shutdown()
		}

		if err := p.conn.RunCallbacks(); err != nil {
			p.closeConn()
			return fmt.Errorf("run callbacks: %w", err)
		}
	}
}

func (p *Publisher) handle(ctx context.Context, e Event) error {
	p.logger.Debug("event", zap.Stringer("event", e), zap.Stringer("state", p.state))

	switch e.Kind {
	case EventStarted:
		p.showTrack(e.Track)
	case EventStopped:
		if err := p.clearAndReconnect(ctx); err != nil {
			return err
		}
	}
	for _, m := range p.mirrors {
		m.forward(e)
	}
	return nil
}

func (p *Publisher) showTrack(track TrackInfo) {
	state, details := track.StatusLines()
	p.conn.SetStatus(state, details, func(err error) {
		if err != nil {
			p.logger.Error("update status failed",
				zap.String("title", track.Title),
				zap.Error(err),
			)
		}
	})
}

// clearAndReconnect clears the status, waits GraceDelay, then replaces
// the connection. A plain clear leaves a default status visible on
// Discord; only a fresh connection removes it.
func (p *Publisher) clearAndReconnect(ctx context.Context) error {
	p.conn.ClearStatus(func(err error) {
		if err != nil {
			p.logger.Warn("clear status failed", zap.Error(err))
		}
	})
	p.setState(StateAwaitingClear)

	if err := p.conn.RunCallbacks(); err != nil {
		return fmt.Errorf("run callbacks: %w", err)
	}

	timer := time.NewTimer(GraceDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil
	case <-timer.C:
	}

	// Late replies to the clear arrive here rather than failing on close
	if err := p.conn.RunCallbacks(); err != nil {
		return fmt.Errorf("run callbacks: %w", err)
	}

	p.setState(StateReconnecting)
	p.closeConn()

	conn, err := p.dialer.Open(ctx)
	if err != nil {
		return fmt.Errorf("reconnect presence: %w", err)
	}
	p.conn = conn
	p.setState(StateActive)
	return nil
}

func (p *Publisher) shutdown() error {
	if p.conn == nil {
		return nil
	}
	p.conn.ClearStatus(nil)
	if err := p.conn.RunCallbacks(); err != nil {
		p.logger.Debug("run callbacks on shutdown", zap.Error(err))
	}
	p.closeConn()
	p.logger.Info("presence disconnected")
	return nil
}

func (p *Publisher) closeConn() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Close(); err != nil {
		p.logger.Warn("close presence connection", zap.Error(err))
	}
	p.conn = nil
}

func (p *Publisher) setState(s State) {
	prev := p.state
	p.state = s
	p.logger.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	if p.onStateChange != nil {
		p.onStateChange(StateChange{Previous: prev, Current: s})
	}
}
