package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/llehouerou/plexpresence/internal/presence"
)

const (
	trackIcon    = "audio-x-generic"
	trackTimeout = 5000 // ms
)

// TrackNotifier announces each started track and withdraws the
// notification when playback stops.
type TrackNotifier struct {
	notifier Notifier
	current  uint32
}

// NewTrackNotifier wraps n as a presence.Observer.
func NewTrackNotifier(n Notifier) *TrackNotifier {
	return &TrackNotifier{notifier: n}
}

// TrackStarted shows the track, replacing the previous notification.
func (t *TrackNotifier) TrackStarted(_ context.Context, track presence.TrackInfo) error {
	id, err := t.notifier.Notify(Notification{
		Title:      track.Title,
		Body:       trackBody(track),
		Icon:       trackIcon,
		Timeout:    trackTimeout,
		ReplacesID: t.current,
		Urgency:    UrgencyLow,
	})
	if err != nil {
		return fmt.Errorf("notify track: %w", err)
	}
	t.current = id
	return nil
}

// TrackStopped closes the last notification, if any.
func (t *TrackNotifier) TrackStopped(_ context.Context) error {
	if t.current == 0 {
		return nil
	}
	id := t.current
	t.current = 0
	if err := t.notifier.Close(id); err != nil {
		return fmt.Errorf("close notification: %w", err)
	}
	return nil
}

func trackBody(track presence.TrackInfo) string {
	parts := make([]string, 0, 2)
	if track.Artist != "" {
		parts = append(parts, track.Artist)
	}
	if track.Album != "" {
		parts = append(parts, track.Album)
	}
	return strings.Join(parts, " - ")
}
