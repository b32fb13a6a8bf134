package protocol

import (
	"errors"
	"testing"

	"mesh-rpc/codec"
	"mesh-rpc/message"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `msgpack:"name" json:"name"`
	Count int    `msgpack:"count" json:"count"`
}

func payload(t *testing.T, v any) message.Payload {
	t.Helper()
	p, err := message.NewPayload(&codec.MsgpackCodec{}, v)
	require.NoError(t, err)
	return p
}

func TestDecodePrimitiveValue(t *testing.T) {
	v, err := DecodePrimitive[sample](PrimitiveValue, payload(t, sample{Name: "a", Count: 2}))
	require.NoError(t, err)
	require.Equal(t, sample{Name: "a", Count: 2}, v)
}

func TestDecodePrimitiveRemoteError(t *testing.T) {
	_, err := DecodePrimitive[sample](PrimitiveError, payload(t, map[string]any{
		"category": "core",
		"message":  "not found",
	}))

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	require.Equal(t, RemoteError{Category: "core", Message: "not found"}, *remote)
	require.Equal(t, "remote error [core]: not found", remote.Error())
}

func TestDecodePrimitiveSchemaMismatch(t *testing.T) {
	_, err := DecodePrimitive[sample](PrimitiveValue, payload(t, "not a sample"))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, PrimitiveValue, decodeErr.Type)
}

func TestDecodePrimitiveUnknownType(t *testing.T) {
	_, err := DecodePrimitive[sample](42, payload(t, sample{}))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, uint64(42), decodeErr.Type)
}

func TestDecodePrimitiveMalformedError(t *testing.T) {
	_, err := DecodePrimitive[sample](PrimitiveError, payload(t, 17))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
}

func TestDecodeStreaming(t *testing.T) {
	env, err := DecodeStreaming[sample](StreamingChunk, payload(t, sample{Name: "x"}))
	require.NoError(t, err)
	require.Equal(t, EnvelopeChunk, env.Kind)
	require.False(t, env.Terminal())
	require.Equal(t, "x", env.Value.Name)

	env, err = DecodeStreaming[sample](StreamingError, payload(t, RemoteError{Category: "app", Code: 3, Message: "boom"}))
	require.NoError(t, err)
	require.Equal(t, EnvelopeError, env.Kind)
	require.True(t, env.Terminal())
	require.EqualError(t, env.Err, "remote error [app:3]: boom")

	env, err = DecodeStreaming[sample](StreamingClose, message.Payload{})
	require.NoError(t, err)
	require.Equal(t, EnvelopeClose, env.Kind)
	require.True(t, env.Terminal())

	_, err = DecodeStreaming[sample](StreamingChunk, payload(t, "not a sample"))
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))

	_, err = DecodeStreaming[sample](9, payload(t, sample{}))
	require.True(t, errors.As(err, &decodeErr))
}

func TestCancelled(t *testing.T) {
	require.Equal(t, ErrCancelled, Cancelled(nil))

	cause := errors.New("connection reset")
	err := Cancelled(cause)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, cause)

	// Wrapping twice does not stack the prefix.
	require.Equal(t, err, Cancelled(err))
}
