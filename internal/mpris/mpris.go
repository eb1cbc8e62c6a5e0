//go:build linux

// Package mpris exposes the mirrored Plex track as a read-only MPRIS player.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"

	"github.com/llehouerou/plexpresence/internal/presence"
)

// errReadOnly is returned for every playback control request.
var errReadOnly = errors.New("plexpresence mirrors a remote player and cannot control it")

const (
	playerName = "plexpresence"
	busName    = "org.mpris.MediaPlayer2." + playerName

	// claimTimeout bounds the wait for the bus name at startup.
	claimTimeout = 2 * time.Second
	claimPoll    = 20 * time.Millisecond
)

// changeEmitter sends PropertiesChanged for the player interface.
type changeEmitter interface {
	OnTitle() error
	OnPlayback() error
}

// Mirror publishes the current track on the session bus.
type Mirror struct {
	server  *server.Server
	player  *playerAdapter
	emitter changeEmitter
}

// New claims org.mpris.MediaPlayer2.plexpresence on the session bus.
// It fails when there is no session bus or the name cannot be claimed.
func New(logger *zap.Logger) (*Mirror, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	m := &Mirror{player: &playerAdapter{}}
	m.server = server.NewServer(playerName, &rootAdapter{}, m.player)
	m.emitter = events.NewEventHandler(m.server).Player

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- m.server.Listen()
	}()

	if err := waitForName(conn, listenErr); err != nil {
		return nil, fmt.Errorf("mpris: %w", err)
	}

	go func() {
		if err := <-listenErr; err != nil {
			logger.Warn("mpris server stopped", zap.Error(err))
		}
	}()

	return m, nil
}

// waitForName returns once the bus reports busName as owned, or with the
// error Listen failed with.
func waitForName(conn *dbus.Conn, listenErr <-chan error) error {
	deadline := time.NewTimer(claimTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(claimPoll)
	defer ticker.Stop()

	for {
		var owned bool
		err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, busName).Store(&owned)
		if err == nil && owned {
			return nil
		}

		select {
		case err := <-listenErr:
			if err == nil {
				err = errors.New("server stopped before claiming " + busName)
			}
			return err
		case <-deadline.C:
			return errors.New("timed out claiming " + busName)
		case <-ticker.C:
		}
	}
}

// TrackStarted implements presence.Observer.
func (m *Mirror) TrackStarted(_ context.Context, track presence.TrackInfo) error {
	m.player.setTrack(&track)
	return m.emitChanges()
}

// TrackStopped implements presence.Observer.
func (m *Mirror) TrackStopped(_ context.Context) error {
	m.player.setTrack(nil)
	return m.emitChanges()
}

func (m *Mirror) emitChanges() error {
	return errors.Join(m.emitter.OnTitle(), m.emitter.OnPlayback())
}

// Close releases the bus name.
func (m *Mirror) Close() error {
	return m.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return "Plex Presence", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) { return []string{}, nil }

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) { return []string{}, nil }

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter. D-Bus calls
// arrive on the server's goroutines, so the track is guarded.
type playerAdapter struct {
	mu    sync.RWMutex
	track *presence.TrackInfo
}

func (p *playerAdapter) setTrack(track *presence.TrackInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.track = track
}

func (p *playerAdapter) current() *presence.TrackInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.track
}

func (p *playerAdapter) Next() error { return errReadOnly }

func (p *playerAdapter) Previous() error { return errReadOnly }

func (p *playerAdapter) Pause() error { return errReadOnly }

func (p *playerAdapter) PlayPause() error { return errReadOnly }

func (p *playerAdapter) Stop() error { return errReadOnly }

func (p *playerAdapter) Play() error { return errReadOnly }

func (p *playerAdapter) Seek(_ types.Microseconds) error { return errReadOnly }

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error { return errReadOnly }

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return errReadOnly }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	if p.current() == nil {
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusPlaying, nil
}

func (p *playerAdapter) Rate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) SetRate(_ float64) error { return errReadOnly }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.current()
	if track == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(*track)),
		Title:   track.Title,
		Album:   track.Album,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) { return 1.0, nil }

func (p *playerAdapter) SetVolume(_ float64) error { return errReadOnly }

func (p *playerAdapter) Position() (int64, error) { return 0, nil }

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) CanGoNext() (bool, error) { return false, nil }

func (p *playerAdapter) CanGoPrevious() (bool, error) { return false, nil }

func (p *playerAdapter) CanPlay() (bool, error) { return false, nil }

func (p *playerAdapter) CanPause() (bool, error) { return false, nil }

func (p *playerAdapter) CanSeek() (bool, error) { return false, nil }

func (p *playerAdapter) CanControl() (bool, error) { return false, nil }

func formatTrackID(track presence.TrackInfo) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", track.Artist, track.Album, track.Title)
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
