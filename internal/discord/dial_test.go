//go:build !windows

package discord

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketPaths_Order(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("TMPDIR", "")
	t.Setenv("TMP", "")
	t.Setenv("TEMP", "/var/tmp")

	paths := socketPaths()

	require.Len(t, paths, 30)
	assert.Equal(t, "/run/user/1000/discord-ipc-0", paths[0])
	assert.Equal(t, "/run/user/1000/discord-ipc-9", paths[9])
	assert.Equal(t, "/var/tmp/discord-ipc-0", paths[10])
	assert.Equal(t, "/tmp/discord-ipc-9", paths[29])
}

func TestDial_FindsSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "dipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	t.Setenv("XDG_RUNTIME_DIR", dir)
	ln, err := net.Listen("unix", filepath.Join(dir, "discord-ipc-3"))
	require.NoError(t, err)
	defer ln.Close()

	sock, err := dial(context.Background())
	require.NoError(t, err)
	assert.NoError(t, sock.Close())
}

func TestDial_NothingListening(t *testing.T) {
	empty := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", empty)
	t.Setenv("TMPDIR", empty)
	t.Setenv("TMP", empty)
	t.Setenv("TEMP", empty)

	for _, path := range socketPaths() {
		if _, err := os.Stat(path); err == nil {
			t.Skip("a Discord client is running on this machine")
		}
	}

	_, err := dial(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}
