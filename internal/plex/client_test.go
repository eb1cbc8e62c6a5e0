package plex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/sign_in.json", r.URL.Path)
		assert.Equal(t, "client-1", r.Header.Get("X-Plex-Client-Identifier"))
		assert.Equal(t, "plexpresence", r.Header.Get("X-Plex-Product"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("user[login]"))
		assert.Equal(t, "secret", r.PostForm.Get("user[password]"))

		writeJSON(t, w, map[string]any{
			"user": map[string]any{"username": "alice", "authToken": "tok-1"},
		})
	}))
	defer srv.Close()

	acct, err := NewClient(srv.URL, "client-1").SignIn(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, "tok-1", acct.Token())
}

func TestSignIn_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "client-1").SignIn(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSignIn_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"user": map[string]any{"username": "alice"}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "client-1").SignIn(context.Background(), "alice", "secret")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "c").AccountFromToken("tok").Devices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "boom")
}

func TestFindDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/resources", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("includeRelay"))
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))

		writeJSON(t, w, []map[string]any{
			{"name": "Phone", "provides": "client,player"},
			{"name": "Home", "provides": "server", "accessToken": "srv-tok"},
		})
	}))
	defer srv.Close()

	acct := NewClient(srv.URL, "c").AccountFromToken("tok")

	d, err := acct.FindDevice(context.Background(), "Home")
	require.NoError(t, err)
	assert.Equal(t, "srv-tok", d.AccessToken)
	assert.True(t, d.IsServer())

	_, err = acct.FindDevice(context.Background(), "Office")
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestOrderConnections(t *testing.T) {
	conns := []Connection{
		{URI: "relay", Relay: true},
		{URI: "remote"},
		{URI: "local", Local: true},
	}

	got := orderConnections(conns)

	uris := make([]string, len(got))
	for i, c := range got {
		uris[i] = c.URI
	}
	assert.Equal(t, []string{"local", "remote", "relay"}, uris)
	assert.Equal(t, "relay", conns[0].URI, "input must not be reordered")
}

func TestConnect_FallsBackToReachableConnection(t *testing.T) {
	var (
		mu           sync.Mutex
		probedTokens []string
	)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identity", r.URL.Path)
		mu.Lock()
		probedTokens = append(probedTokens, r.Header.Get("X-Plex-Token"))
		mu.Unlock()
		writeJSON(t, w, map[string]any{"MediaContainer": map[string]any{}})
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	d := Device{
		Name:        "Home",
		AccessToken: "srv-tok",
		Connections: []Connection{
			{URI: good.URL},
			{URI: bad.URL, Local: true},
		},
	}

	s, err := NewClient("http://unused", "c").AccountFromToken("acct-tok").Connect(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, good.URL, s.URL())
	assert.Equal(t, "Home", s.Name)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"srv-tok"}, probedTokens)
}

func TestConnect_Unreachable(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	d := Device{Name: "Home", Connections: []Connection{{URI: bad.URL}}}

	_, err := NewClient("http://unused", "c").AccountFromToken("tok").Connect(context.Background(), d)
	require.ErrorIs(t, err, ErrUnreachable)
	assert.Contains(t, err.Error(), bad.URL)
}

func TestConnect_NoConnections(t *testing.T) {
	_, err := NewClient("http://unused", "c").AccountFromToken("tok").Connect(context.Background(), Device{Name: "Home"})
	require.ErrorIs(t, err, ErrUnreachable)
}
