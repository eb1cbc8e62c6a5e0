// Package plex provides a minimal client for plex.tv and Plex Media Server.
package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultURL is the plex.tv API root.
const DefaultURL = "https://plex.tv"

const (
	product = "plexpresence"
	version = "1.0"
)

var (
	// ErrUnauthorized is returned when plex.tv rejects the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDeviceNotFound is returned when no device matches the requested name.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrUnreachable is returned when none of a device's connections answer.
	ErrUnreachable = errors.New("no reachable connection")
)

// Client talks to plex.tv on behalf of one client identifier.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a plex.tv client. clientID should be stable per install.
func NewClient(baseURL, clientID string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Account is an authenticated plex.tv account.
type Account struct {
	client   *Client
	Username string
	token    string
}

// Token returns the account's auth token.
func (a *Account) Token() string {
	return a.token
}

// SignIn authenticates with username and password.
func (c *Client) SignIn(ctx context.Context, username, password string) (*Account, error) {
	form := url.Values{}
	form.Set("user[login]", username)
	form.Set("user[password]", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/sign_in.json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setHeaders(req, "")

	var result signInResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if result.User.AuthToken == "" {
		return nil, fmt.Errorf("sign in: %w", ErrUnauthorized)
	}

	return &Account{
		client:   c,
		Username: result.User.Username,
		token:    result.User.AuthToken,
	}, nil
}

// AccountFromToken returns an account for an existing auth token.
func (c *Client) AccountFromToken(token string) *Account {
	return &Account{client: c, token: token}
}

// Devices lists the resources registered on the account.
func (a *Account) Devices(ctx context.Context) ([]Device, error) {
	c := a.client
	reqURL := c.baseURL + "/api/v2/resources?includeHttps=1&includeRelay=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, a.token)

	var devices []Device
	if err := c.do(req, &devices); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// FindDevice returns the first device named name.
func (a *Account) FindDevice(ctx context.Context, name string) (Device, error) {
	devices, err := a.Devices(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q: %w", name, ErrDeviceNotFound)
}

// connectTimeout bounds each connection probe.
const connectTimeout = 5 * time.Second

// Connect probes the device's connections and returns a server bound to
// the first one that answers. Local connections are tried first, relays last.
func (a *Account) Connect(ctx context.Context, d Device) (*Server, error) {
	token := d.AccessToken
	if token == "" {
		token = a.token
	}

	conns := orderConnections(d.Connections)
	var errs []error
	for _, conn := range conns {
		s := a.client.newServer(d.Name, conn.URI, token)
		probeCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := s.Identity(probeCtx)
		cancel()
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", conn.URI, err))
	}
	return nil, fmt.Errorf("connect %q: %w", d.Name, errors.Join(append([]error{ErrUnreachable}, errs...)...))
}

func orderConnections(conns []Connection) []Connection {
	ordered := make([]Connection, len(conns))
	copy(ordered, conns)
	rank := func(c Connection) int {
		switch {
		case c.Relay:
			return 2
		case c.Local:
			return 0
		default:
			return 1
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})
	return ordered
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Version", version)
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
