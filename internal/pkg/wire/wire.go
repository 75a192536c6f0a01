// Package wire defines the client/server message protocol: JSON payloads
// framed as [length uint32 little-endian][payload bytes].
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sievelabs/sieve/internal/model"
)

// MaxFrameSize bounds a single message payload. Larger frames are rejected
// before allocation.
const MaxFrameSize = 1 << 20

// Client message types.
const (
	TypeHandshake   = "handshake"
	TypeListKeys    = "list_keys"
	TypeCreateIndex = "create_index"
)

// Server message types.
const (
	TypeHandshakeOk = "handshake_ok"
	TypeKeyList     = "key_list"
	TypeStatus      = "status"
	TypeError       = "error"
)

// ClientMessage is any message sent by a client. Type selects which of the
// remaining fields are meaningful.
type ClientMessage struct {
	Type string `json:"type"`

	// Token authenticates a handshake.
	Token string `json:"token,omitempty"`
	// Conditions define the index method of a create_index request.
	Conditions []model.FieldCondition `json:"conditions,omitempty"`
}

// ServerMessage is any message sent by the server.
type ServerMessage struct {
	Type string `json:"type"`

	// Keys lists the registered index methods of a key_list response.
	Keys []model.IndexMethod `json:"keys,omitempty"`
	// Status carries the periodic status feed.
	Status *Status `json:"status,omitempty"`
	// Error describes a rejected request.
	Error string `json:"error,omitempty"`
}

// Status reports ingestion progress to clients.
type Status struct {
	FileName      string  `json:"file_name"`
	LinesIndexed  int64   `json:"lines_indexed"`
	IngestionRate float64 `json:"ingestion_rate"`
}

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("message of %d bytes exceeds frame limit", len(payload))
	}

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadMessage reads one framed message into msg.
func ReadMessage(r io.Reader, msg any) error {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return err
	}

	length := binary.LittleEndian.Uint32(lenBuf)
	if length > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read frame payload: %w", err)
	}
	if err := json.Unmarshal(payload, msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
