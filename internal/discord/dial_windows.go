//go:build windows

package discord

import (
	"context"
	"net"
)

// dial is not supported on Windows, where Discord listens on a named pipe.
func dial(_ context.Context) (net.Conn, error) {
	return nil, ErrNotConnected
}
