// Package discord is a client for Discord's local rich presence IPC.
//
// Commands are written immediately; replies are only read, and their
// callbacks only invoked, from RunCallbacks. Callers must pump it
// regularly, as with the official game SDK.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotConnected is returned when no Discord client is listening.
	ErrNotConnected = errors.New("discord not running")
	// ErrClosed is returned once the connection has been closed.
	ErrClosed = errors.New("connection closed")
)

const (
	handshakeTimeout = 10 * time.Second
	// pollWait bounds how long RunCallbacks waits for more data.
	pollWait = 10 * time.Millisecond
)

// Conn is one IPC connection bound to an application client ID.
type Conn struct {
	sock     net.Conn
	clientID string
	pid      int
	pending  map[string]func(error)
	buf      []byte
	closed   bool
}

// Open connects to the local Discord client and performs the handshake.
func Open(ctx context.Context, clientID string) (*Conn, error) {
	sock, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return handshake(ctx, sock, clientID)
}

// OpenPath is Open against an explicit socket path.
func OpenPath(ctx context.Context, path, clientID string) (*Conn, error) {
	var d net.Dialer
	sock, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return handshake(ctx, sock, clientID)
}

func handshake(ctx context.Context, sock net.Conn, clientID string) (*Conn, error) {
	c := &Conn{
		sock:     sock,
		clientID: clientID,
		pid:      os.Getpid(),
		pending:  make(map[string]func(error)),
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = sock.SetDeadline(deadline)

	if err := c.write(opHandshake, map[string]any{"v": 1, "client_id": clientID}); err != nil {
		sock.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	op, payload, err := readFrame(sock)
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if op == opClose {
		sock.Close()
		return nil, fmt.Errorf("handshake: %w", decodeError(payload))
	}

	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		sock.Close()
		return nil, fmt.Errorf("handshake: decode: %w", err)
	}
	if msg.Evt != "READY" {
		sock.Close()
		if msg.Evt == "ERROR" {
			return nil, fmt.Errorf("handshake: %w", decodeError(msg.Data))
		}
		return nil, fmt.Errorf("handshake: unexpected event %q", msg.Evt)
	}

	_ = sock.SetDeadline(time.Time{})
	return c, nil
}

// ClientID returns the application ID the connection is bound to.
func (c *Conn) ClientID() string {
	return c.clientID
}

// SetActivity replaces the presence. done, if not nil, is called from
// RunCallbacks with Discord's verdict.
func (c *Conn) SetActivity(a Activity, done func(error)) {
	a = a.sanitized()
	c.command("SET_ACTIVITY", map[string]any{"pid": c.pid, "activity": a}, done)
}

// ClearActivity removes the presence.
func (c *Conn) ClearActivity(done func(error)) {
	c.command("SET_ACTIVITY", map[string]any{"pid": c.pid}, done)
}

func (c *Conn) command(cmd string, args any, done func(error)) {
	if c.closed {
		if done != nil {
			done(ErrClosed)
		}
		return
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		if done != nil {
			done(fmt.Errorf("marshal args: %w", err))
		}
		return
	}

	nonce := uuid.NewString()
	if err := c.write(opFrame, message{Cmd: cmd, Nonce: nonce, Args: rawArgs}); err != nil {
		if done != nil {
			done(err)
		}
		return
	}
	if done != nil {
		c.pending[nonce] = done
	}
}

// RunCallbacks reads every reply available and invokes pending callbacks.
// It returns an error when the connection is no longer usable.
func (c *Conn) RunCallbacks() error {
	if c.closed {
		return ErrClosed
	}

	chunk := make([]byte, 4096)
	for {
		_ = c.sock.SetReadDeadline(time.Now().Add(pollWait))
		n, err := c.sock.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
			if perr := c.dispatch(); perr != nil {
				return perr
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			c.failPending(ErrClosed)
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (c *Conn) dispatch() error {
	for {
		op, payload, rest, ok, err := splitFrame(c.buf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.buf = rest

		switch op {
		case opFrame:
			c.handleReply(payload)
		case opPing:
			if err := c.writeRaw(opPong, payload); err != nil {
				return err
			}
		case opClose:
			err := decodeError(payload)
			c.failPending(err)
			return err
		}
	}
}

func (c *Conn) handleReply(payload []byte) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	done, ok := c.pending[msg.Nonce]
	if !ok {
		return
	}
	delete(c.pending, msg.Nonce)

	if msg.Evt == "ERROR" {
		done(decodeError(msg.Data))
		return
	}
	done(nil)
}

func (c *Conn) failPending(err error) {
	for nonce, done := range c.pending {
		delete(c.pending, nonce)
		done(err)
	}
}

// Close sends a close frame and releases the socket.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.sock.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.write(opClose, map[string]any{})
	c.failPending(ErrClosed)
	return c.sock.Close()
}

func (c *Conn) write(op uint32, v any) error {
	frame, err := encodeFrame(op, v)
	if err != nil {
		return err
	}
	if _, err := c.sock.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Conn) writeRaw(op uint32, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return c.write(op, json.RawMessage(payload))
}

func decodeError(data []byte) error {
	var e rpcError
	if err := json.Unmarshal(data, &e); err != nil || (e.Code == 0 && e.Message == "") {
		return ErrClosed
	}
	return &e
}
