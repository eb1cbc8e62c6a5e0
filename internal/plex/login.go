package plex

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Credentials authenticate against plex.tv. A token skips the sign-in.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Login returns the account for creds.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Account, error) {
	if creds.Token != "" {
		return c.AccountFromToken(creds.Token), nil
	}
	return c.SignIn(ctx, creds.Username, creds.Password)
}

// ConnectByName looks up the named device and connects to it.
func (a *Account) ConnectByName(ctx context.Context, name string) (*Server, error) {
	device, err := a.FindDevice(ctx, name)
	if err != nil {
		return nil, err
	}
	if !device.IsServer() {
		return nil, fmt.Errorf("%q does not provide a media server: %w", name, ErrDeviceNotFound)
	}
	return a.Connect(ctx, device)
}

// StableClientID derives a client identifier from the host name so that
// plex.tv sees the same device across restarts.
func StableClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(product+"."+host)).String()
}
