package plex

import "strings"

// Media types and player states reported in sessions.
const (
	MediaTypeTrack   = "track"
	MediaTypeMovie   = "movie"
	MediaTypeEpisode = "episode"
	MediaTypePhoto   = "photo"

	PlayerStatePlaying   = "playing"
	PlayerStatePaused    = "paused"
	PlayerStateBuffering = "buffering"
)

// Session is one active playback stream on a server.
// Optional titles are empty when the server omits them.
type Session struct {
	Type             string `json:"type"`
	RatingKey        string `json:"ratingKey"`
	Title            string `json:"title"`
	ParentTitle      string `json:"parentTitle"`      // album
	GrandparentTitle string `json:"grandparentTitle"` // album artist
	OriginalTitle    string `json:"originalTitle"`    // track artist on compilations
	Duration         int64  `json:"duration"`         // ms
	ViewOffset       int64  `json:"viewOffset"`       // ms
	Player           Player `json:"Player"`
	User             User   `json:"User"`
}

// Player is the client device playing a session.
type Player struct {
	Title             string `json:"title"`
	Product           string `json:"product"`
	Platform          string `json:"platform"`
	State             string `json:"state"`
	MachineIdentifier string `json:"machineIdentifier"`
}

// User is the account a session belongs to.
type User struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Device is a resource registered on a plex.tv account.
type Device struct {
	Name             string       `json:"name"`
	Product          string       `json:"product"`
	Provides         string       `json:"provides"`
	ClientIdentifier string       `json:"clientIdentifier"`
	AccessToken      string       `json:"accessToken"`
	Owned            bool         `json:"owned"`
	Connections      []Connection `json:"connections"`
}

// IsServer reports whether the device provides a media server.
func (d Device) IsServer() bool {
	for _, p := range strings.Split(d.Provides, ",") {
		if strings.TrimSpace(p) == "server" {
			return true
		}
	}
	return false
}

// Connection is one address a device can be reached at.
type Connection struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	URI      string `json:"uri"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
}

type signInResponse struct {
	User struct {
		Username  string `json:"username"`
		AuthToken string `json:"authToken"`
	} `json:"user"`
}

type sessionsResponse struct {
	MediaContainer struct {
		Size     int       `json:"size"`
		Metadata []Session `json:"Metadata"`
	} `json:"MediaContainer"`
}
