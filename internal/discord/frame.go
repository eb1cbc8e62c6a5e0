package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Opcodes of the local IPC framing.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
	opPing      uint32 = 3
	opPong      uint32 = 4
)

const (
	headerSize = 8
	// maxPayload guards against a corrupt length prefix.
	maxPayload = 64 * 1024
)

var errFrameTooLarge = errors.New("frame too large")

// message is the JSON envelope of every command and reply.
type message struct {
	Cmd   string          `json:"cmd,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// rpcError is the payload of an ERROR event or a CLOSE frame.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

// encodeFrame prefixes payload with its opcode and length.
func encodeFrame(op uint32, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload))) //nolint:gosec // payload is bounded by marshal of small structs
	copy(buf[headerSize:], payload)
	return buf, nil
}

// readFrame reads one whole frame from r.
func readFrame(r io.Reader) (uint32, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	n := binary.LittleEndian.Uint32(header[4:8])
	if n > maxPayload {
		return 0, nil, errFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return op, payload, nil
}

// splitFrame extracts one frame from the head of buf.
// ok is false when buf does not yet hold a complete frame.
func splitFrame(buf []byte) (op uint32, payload, rest []byte, ok bool, err error) {
	if len(buf) < headerSize {
		return 0, nil, buf, false, nil
	}
	op = binary.LittleEndian.Uint32(buf[0:4])
	n := binary.LittleEndian.Uint32(buf[4:8])
	if n > maxPayload {
		return 0, nil, buf, false, errFrameTooLarge
	}
	end := headerSize + int(n)
	if len(buf) < end {
		return 0, nil, buf, false, nil
	}
	return op, buf[headerSize:end], buf[end:], true, nil
}
