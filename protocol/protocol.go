// Package protocol implements the binary frame protocol spoken on a mesh-rpc
// connection and the response grammars layered on top of it.
//
// Every frame has a fixed 26-byte header followed by a variable-length body.
// The receiver reads the header first to learn the body length, then reads
// exactly that many bytes.
//
// Frame format:
//
//	0      3  4  5  6              14             22        26
//	┌──────┬──┬──┬──┬──────────────┬──────────────┬─────────┬──────────────┐
//	│magic │v │ct│k │   call id    │     type     │ bodyLen │   body ...   │
//	│ mrp  │01│  │  │    uint64    │    uint64    │ uint32  │ bodyLen bytes│
//	└──────┴──┴──┴──┴──────────────┴──────────────┴─────────┴──────────────┘
//
// For a request, type is the method id. For a response, type is the message
// type of the call's protocol (see DecodePrimitive and DecodeStreaming).
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"mesh-rpc/codec"
)

// Magic number bytes: "mrp".
// Used to reject non-protocol peers early (e.g. an HTTP client on the wrong port).
const (
	MagicNumber byte = 0x6d // 'm'
	MagicByte2  byte = 0x72 // 'r'
	MagicByte3  byte = 0x70 // 'p'
	Version     byte = 0x01
	HeaderSize  int  = 26 // 3 (magic) + 1 (version) + 1 (codec) + 1 (kind) + 8 (call id) + 8 (type) + 4 (bodyLen)

	// MaxBodySize bounds a single frame body.
	MaxBodySize uint32 = 16 << 20
)

// Kind distinguishes request, response, and heartbeat frames.
type Kind byte

const (
	KindRequest   Kind = 0 // Client → Server call
	KindResponse  Kind = 1 // Server → Client frame for an outstanding call
	KindHeartbeat Kind = 2 // KeepAlive probe (no body)
)

// Header represents the fixed frame header.
type Header struct {
	CodecType byte   // Serialization format of the body
	Kind      Kind   // Request, Response, or Heartbeat
	CallID    uint64 // Call identifier: the key to multiplexing
	Type      uint64 // Method id (request) or message type (response)
	BodyLen   uint32
}

// Encode writes a complete frame (header + body) to w.
// The caller must hold a write lock if multiple goroutines share the same
// writer, otherwise frames from different calls interleave.
func Encode(w io.Writer, h *Header, body []byte) error {
	if uint64(len(body)) > uint64(MaxBodySize) {
		return fmt.Errorf("frame body too large: %d bytes", len(body))
	}

	buf := make([]byte, HeaderSize+len(body))
	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = h.CodecType
	buf[5] = byte(h.Kind)
	binary.BigEndian.PutUint64(buf[6:14], h.CallID)
	binary.BigEndian.PutUint64(buf[14:22], h.Type)
	binary.BigEndian.PutUint32(buf[22:26], uint32(len(body)))
	copy(buf[HeaderSize:], body)

	// Single write so a frame is never split across concurrent writers.
	_, err := w.Write(buf)
	return err
}

// Decode reads a complete frame (header + body) from r.
// It validates the magic number, version, codec type, kind and body length.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:3])
	}

	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[3])
	}

	if !codec.Valid(headerBuf[4]) {
		return nil, nil, fmt.Errorf("unsupported codec type: %d", headerBuf[4])
	}

	kind := Kind(headerBuf[5])
	if kind != KindRequest && kind != KindResponse && kind != KindHeartbeat {
		return nil, nil, fmt.Errorf("unsupported frame kind: %d", kind)
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[22:26])
	if bodyLen > MaxBodySize {
		return nil, nil, fmt.Errorf("frame body too large: %d bytes", bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: headerBuf[4],
		Kind:      kind,
		CallID:    binary.BigEndian.Uint64(headerBuf[6:14]),
		Type:      binary.BigEndian.Uint64(headerBuf[14:22]),
		BodyLen:   bodyLen,
	}, body, nil
}
