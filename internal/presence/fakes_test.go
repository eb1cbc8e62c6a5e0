package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/llehouerou/plexpresence/internal/plex"
)

// callLog records connection and dialer calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
	pumps int
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) pumpCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pumps
}

var errFakeClosed = errors.New("fake connection closed")

type fakeConn struct {
	id        int
	log       *callLog
	setErr    error
	pumpErr   error
	lateClear bool
	pending   []func(error)
	delayed   []func(error)
}

func (c *fakeConn) SetStatus(state, details string, done func(error)) {
	c.log.add("set#%d %s | %s", c.id, state, details)
	if done != nil {
		err := c.setErr
		c.pending = append(c.pending, func(closed error) {
			if closed != nil {
				done(closed)
				return
			}
			done(err)
		})
	}
}

func (c *fakeConn) ClearStatus(done func(error)) {
	c.log.add("clear#%d", c.id)
	if done == nil {
		return
	}
	if c.lateClear {
		c.delayed = append(c.delayed, done)
		return
	}
	c.pending = append(c.pending, done)
}

func (c *fakeConn) RunCallbacks() error {
	c.log.mu.Lock()
	c.log.pumps++
	c.log.mu.Unlock()
	if c.pumpErr != nil {
		return c.pumpErr
	}
	pending := c.pending
	c.pending, c.delayed = c.delayed, nil
	for _, fn := range pending {
		fn(nil)
	}
	return nil
}

// Close fails replies still outstanding, as the real connection does.
func (c *fakeConn) Close() error {
	c.log.add("close#%d", c.id)
	outstanding := append(c.pending, c.delayed...)
	c.pending, c.delayed = nil, nil
	for _, fn := range outstanding {
		fn(errFakeClosed)
	}
	return nil
}

// fakeDialer opens fakeConns; failOn maps a 1-based attempt to an error.
// With lateClear, clear replies need a second pump to arrive.
type fakeDialer struct {
	log       *callLog
	opened    int
	failOn    map[int]error
	setErr    error
	pumpErr   error
	lateClear bool
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{log: &callLog{}, failOn: map[int]error{}}
}

func (d *fakeDialer) Open(_ context.Context) (Connection, error) {
	d.opened++
	if err := d.failOn[d.opened]; err != nil {
		d.log.add("open#%d failed", d.opened)
		return nil, err
	}
	d.log.add("open#%d", d.opened)
	return &fakeConn{id: d.opened, log: d.log, setErr: d.setErr, pumpErr: d.pumpErr, lateClear: d.lateClear}, nil
}

// fakeObserver records mirror calls. delay makes TrackStarted slow.
type fakeObserver struct {
	mu     sync.Mutex
	calls  []string
	errOut error
	delay  time.Duration
}

func (o *fakeObserver) TrackStarted(_ context.Context, track TrackInfo) error {
	time.Sleep(o.delay)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, "started "+track.Title)
	return o.errOut
}

func (o *fakeObserver) TrackStopped(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, "stopped")
	return o.errOut
}

func (o *fakeObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	copy(out, o.calls)
	return out
}

// pollResult is one scripted answer of fakeLister.
type pollResult struct {
	sessions []plex.Session
	err      error
}

// fakeLister replays results; the last one repeats once exhausted.
type fakeLister struct {
	mu      sync.Mutex
	results []pollResult
	calls   int
}

func (f *fakeLister) Sessions(_ context.Context) ([]plex.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if len(f.results) == 0 {
		return nil, nil
	}
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].sessions, f.results[i].err
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func playingTrack(title, artist, album string) plex.Session {
	return plex.Session{
		Type:             plex.MediaTypeTrack,
		Title:            title,
		GrandparentTitle: artist,
		ParentTitle:      album,
		Player:           plex.Player{State: plex.PlayerStatePlaying},
	}
}

func idle() pollResult {
	return pollResult{}
}

func playing(sessions ...plex.Session) pollResult {
	return pollResult{sessions: sessions}
}
