package plex

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Server is a Plex Media Server reachable at one base URL.
type Server struct {
	client  *Client
	Name    string
	baseURL string
	token   string
}

// NewServer returns a server bound to baseURL, authenticated with token.
func (c *Client) NewServer(name, baseURL, token string) *Server {
	return c.newServer(name, baseURL, token)
}

func (c *Client) newServer(name, baseURL, token string) *Server {
	return &Server{
		client:  c,
		Name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.baseURL
}

// Identity checks that the server answers and accepts the token.
func (s *Server) Identity(ctx context.Context) error {
	req, err := s.newRequest(ctx, "/identity")
	if err != nil {
		return err
	}
	return s.client.do(req, nil)
}

// Sessions lists the active playback sessions.
func (s *Server) Sessions(ctx context.Context) ([]Session, error) {
	req, err := s.newRequest(ctx, "/status/sessions")
	if err != nil {
		return nil, err
	}

	var result sessionsResponse
	if err := s.client.do(req, &result); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return result.MediaContainer.Metadata, nil
}

func (s *Server) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.client.setHeaders(req, s.token)
	return req, nil
}
