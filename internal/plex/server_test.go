package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionsBody = `{
  "MediaContainer": {
    "size": 2,
    "Metadata": [
      {
        "type": "track",
        "ratingKey": "42",
        "title": "Song",
        "parentTitle": "Album",
        "grandparentTitle": "Various Artists",
        "originalTitle": "Band",
        "duration": 215000,
        "viewOffset": 1000,
        "Player": {"title": "Desktop", "state": "playing", "product": "Plexamp"},
        "User": {"id": "1", "title": "alice"}
      },
      {
        "type": "episode",
        "title": "Pilot",
        "Player": {"state": "paused"}
      }
    ]
  }
}`

func TestServer_Sessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/sessions", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionsBody))
	}))
	defer srv.Close()

	s := NewClient(DefaultURL, "c").NewServer("Home", srv.URL+"/", "tok")
	assert.Equal(t, srv.URL, s.URL())

	sessions, err := s.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	track := sessions[0]
	assert.Equal(t, MediaTypeTrack, track.Type)
	assert.Equal(t, "Song", track.Title)
	assert.Equal(t, "Album", track.ParentTitle)
	assert.Equal(t, "Various Artists", track.GrandparentTitle)
	assert.Equal(t, "Band", track.OriginalTitle)
	assert.Equal(t, int64(215000), track.Duration)
	assert.Equal(t, PlayerStatePlaying, track.Player.State)
	assert.Equal(t, "alice", track.User.Title)

	assert.Equal(t, MediaTypeEpisode, sessions[1].Type)
	assert.Empty(t, sessions[1].OriginalTitle)
}

func TestServer_SessionsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":0}}`))
	}))
	defer srv.Close()

	sessions, err := NewClient(DefaultURL, "c").NewServer("Home", srv.URL, "tok").Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestServer_SessionsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(DefaultURL, "c").NewServer("Home", srv.URL, "tok").Sessions(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDevice_IsServer(t *testing.T) {
	assert.True(t, Device{Provides: "client, server"}.IsServer())
	assert.False(t, Device{Provides: "player"}.IsServer())
	assert.False(t, Device{}.IsServer())
}
