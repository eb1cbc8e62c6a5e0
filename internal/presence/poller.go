package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/plexpresence/internal/plex"
)

// ErrUntitledTrack is returned by PollOnce when the first playing track
// carries no title.
var ErrUntitledTrack = errors.New("playing track has no title")

// SessionLister lists the active playback sessions of one media server.
type SessionLister interface {
	Sessions(ctx context.Context) ([]plex.Session, error)
}

// Poller detects playback edges on a fixed interval.
type Poller struct {
	server   SessionLister
	events   *Sender
	interval time.Duration
	logger   *zap.Logger

	playing bool
}

// NewPoller creates a poller that starts in the "not playing" state.
func NewPoller(server SessionLister, events *Sender, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		server:   server,
		events:   events,
		interval: interval,
		logger:   logger,
	}
}

// Playing reports the last observed playback state.
func (p *Poller) Playing() bool {
	return p.playing
}

// PollOnce fetches sessions and returns the first playing audio track.
func (p *Poller) PollOnce(ctx context.Context) (TrackInfo, bool, error) {
	sessions, err := p.server.Sessions(ctx)
	if err != nil {
		return TrackInfo{}, false, err
	}
	track, ok := FirstPlayingTrack(sessions)
	if ok && track.Title == "" {
		return TrackInfo{}, false, ErrUntitledTrack
	}
	return track, ok, nil
}

// Step runs one poll cycle and emits an event on a playback edge.
// Fetch errors and untitled tracks are logged and skipped; only a failed
// send is returned.
func (p *Poller) Step(ctx context.Context) error {
	track, ok, err := p.PollOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUntitledTrack) {
			p.logger.Warn("skipping poll", zap.Error(err))
			return nil
		}
		p.logger.Warn("failed to fetch sessions", zap.Error(err))
		return nil
	}

	if ok {
		p.logger.Debug("poll",
			zap.String("title", track.Title),
			zap.String("artist", track.Artist),
			zap.String("album", track.Album),
		)
	} else {
		p.logger.Debug("poll: nothing playing")
	}

	switch {
	case ok && !p.playing:
		p.playing = true
		p.logger.Info("playback started",
			zap.String("title", track.Title),
			zap.String("artist", track.Artist),
		)
		return p.send(Started(track))
	case !ok && p.playing:
		p.playing = false
		p.logger.Info("playback stopped")
		return p.send(Stopped())
	}
	// Still playing (even a different track) or still idle: no edge.
	return nil
}

func (p *Poller) send(e Event) error {
	if err := p.events.Send(e); err != nil {
		return fmt.Errorf("send %s: %w", e.Kind, err)
	}
	return nil
}

// Run polls until ctx is cancelled or an event cannot be delivered.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	for {
		if err := p.Step(ctx); err != nil {
			return err
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
