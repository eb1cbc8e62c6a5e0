package lastfm

import (
	"context"

	"github.com/llehouerou/plexpresence/internal/presence"
)

type nowPlayingUpdater interface {
	UpdateNowPlaying(track NowPlayingTrack) error
}

// NowPlaying is a presence.Observer that forwards started tracks.
// Last.fm expires "now playing" by itself, so stops are ignored.
type NowPlaying struct {
	client nowPlayingUpdater
}

// NewNowPlaying wraps an authenticated client.
func NewNowPlaying(c *Client) *NowPlaying {
	return &NowPlaying{client: c}
}

// TrackStarted updates "now playing". Tracks without an artist are
// skipped since Last.fm requires one.
func (n *NowPlaying) TrackStarted(_ context.Context, track presence.TrackInfo) error {
	if track.Artist == "" {
		return nil
	}
	return n.client.UpdateNowPlaying(NowPlayingTrack{
		Artist: track.Artist,
		Track:  track.Title,
		Album:  track.Album,
	})
}

// TrackStopped does nothing.
func (n *NowPlaying) TrackStopped(_ context.Context) error {
	return nil
}
