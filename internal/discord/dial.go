//go:build !windows

package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// socketDirs returns the directories Discord may create its socket in.
func socketDirs() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, "/tmp")
}

// socketPaths lists candidate sockets in probe order.
func socketPaths() []string {
	var paths []string
	for _, dir := range socketDirs() {
		for i := range 10 {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return paths
}

func dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range socketPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		sock, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return sock, nil
		}
	}
	return nil, ErrNotConnected
}
