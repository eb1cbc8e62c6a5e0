package presence

import "fmt"

// EventKind distinguishes playback edges.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventStopped
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "Started"
	case EventStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Event is a single detected playback transition.
// Track is only meaningful for EventStarted.
type Event struct {
	Kind  EventKind
	Track TrackInfo
}

// Started returns a Started event carrying track.
func Started(track TrackInfo) Event {
	return Event{Kind: EventStarted, Track: track}
}

// Stopped returns a Stopped event.
func Stopped() Event {
	return Event{Kind: EventStopped}
}

func (e Event) String() string {
	if e.Kind == EventStarted {
		return fmt.Sprintf("Started(%q by %q)", e.Track.Title, e.Track.Artist)
	}
	return e.Kind.String()
}
