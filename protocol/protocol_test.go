package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	header := Header{
		CodecType: 0,
		Kind:      KindResponse,
		CallID:    1 << 40,
		Type:      StreamingClose,
		BodyLen:   11,
	}
	body := []byte("hello world")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &header, body))
	require.Equal(t, HeaderSize+len(body), buf.Len())

	decodedHeader, decodedBody, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, header, *decodedHeader)
	require.Equal(t, body, decodedBody)
}

func TestEncodeSetsBodyLen(t *testing.T) {
	// BodyLen on the wire always reflects the actual body.
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{Kind: KindRequest, BodyLen: 99}, []byte("abc")))

	h, body, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(3), h.BodyLen)
	require.Equal(t, []byte("abc"), body)
}

func TestDecodeInvalidMagic(t *testing.T) {
	frame := make([]byte, HeaderSize)
	frame[3] = Version

	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "invalid magic number")
}

func TestDecodeInvalidVersion(t *testing.T) {
	frame := make([]byte, HeaderSize)
	copy(frame, []byte{MagicNumber, MagicByte2, MagicByte3, 0xFF})

	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "unsupported version")
}

func TestDecodeInvalidCodecAndKind(t *testing.T) {
	frame := make([]byte, HeaderSize)
	copy(frame, []byte{MagicNumber, MagicByte2, MagicByte3, Version, 9})
	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "unsupported codec type")

	frame[4] = 0
	frame[5] = 7
	_, _, err = Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "unsupported frame kind")
}

func TestDecodeOversizedBody(t *testing.T) {
	frame := make([]byte, HeaderSize)
	copy(frame, []byte{MagicNumber, MagicByte2, MagicByte3, Version, 0, byte(KindResponse)})
	binary.BigEndian.PutUint32(frame[22:26], MaxBodySize+1)

	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "too large")
}

func TestDecodeEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{Kind: KindHeartbeat}, nil))

	h, body, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, KindHeartbeat, h.Kind)
	require.Empty(t, body)
}

func TestDecodeTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{Kind: KindResponse}, []byte("hello")))
	truncated := buf.Bytes()[:buf.Len()-2]

	_, _, err := Decode(bytes.NewReader(truncated))
	require.Error(t, err)
}

func TestDecodeLargeBody(t *testing.T) {
	largeBody := make([]byte, 1024*1024)
	for i := range largeBody {
		largeBody[i] = byte(i % 256)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{Kind: KindRequest, CallID: 999}, largeBody))

	_, decodedBody, err := Decode(&buf)
	require.NoError(t, err)
	require.True(t, bytes.Equal(decodedBody, largeBody))
}
