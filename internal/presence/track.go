// Package presence mirrors Plex playback into a Discord rich presence.
//
// A Poller watches the media server and emits playback edges over a
// Channel. A Publisher consumes them and owns the Discord connection,
// including the clear-then-reconnect cycle that removes the residual
// "Playing" status Discord leaves behind after a plain clear.
package presence

import (
	"github.com/llehouerou/plexpresence/internal/plex"
)

// TrackInfo identifies the track being played.
type TrackInfo struct {
	Title  string
	Artist string
	Album  string
}

// StatusLines returns the state and details lines shown on Discord.
func (t TrackInfo) StatusLines() (state, details string) {
	return "Track: " + t.Title, "Artist: " + t.Artist
}

// ExtractTrack builds a TrackInfo from a session.
// The original title is set on compilation tracks and wins over the
// album artist carried by the grandparent title.
func ExtractTrack(s plex.Session) TrackInfo {
	artist := s.OriginalTitle
	if artist == "" {
		artist = s.GrandparentTitle
	}
	return TrackInfo{
		Title:  s.Title,
		Artist: artist,
		Album:  s.ParentTitle,
	}
}

// isPlayingTrack reports whether a session is an audio track currently playing.
func isPlayingTrack(s plex.Session) bool {
	return s.Type == plex.MediaTypeTrack && s.Player.State == plex.PlayerStatePlaying
}

// FirstPlayingTrack returns the first playing audio session in list order.
// The returned title may be empty when the server omitted it.
func FirstPlayingTrack(sessions []plex.Session) (TrackInfo, bool) {
	for i := range sessions {
		if isPlayingTrack(sessions[i]) {
			return ExtractTrack(sessions[i]), true
		}
	}
	return TrackInfo{}, false
}
