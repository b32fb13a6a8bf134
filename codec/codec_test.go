package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type pair struct {
	_msgpack struct{} `msgpack:",as_array"`
	Name     string
	Port     uint16
}

type document struct {
	Name    string            `msgpack:"name" json:"name"`
	Version uint64            `msgpack:"version" json:"version"`
	Methods map[uint64]string `msgpack:"methods" json:"methods"`
}

func TestGetCodec(t *testing.T) {
	c, err := GetCodec(CodecTypeMsgpack)
	require.NoError(t, err)
	require.Equal(t, CodecTypeMsgpack, c.Type())

	c, err = GetCodec(CodecTypeJSON)
	require.NoError(t, err)
	require.Equal(t, CodecTypeJSON, c.Type())

	_, err = GetCodec(CodecType(7))
	require.Error(t, err)
	require.False(t, Valid(7))
}

func TestMsgpackCodec(t *testing.T) {
	c := &MsgpackCodec{}

	in := document{
		Name:    "storage",
		Version: 3,
		Methods: map[uint64]string{0: "read", 1: "write"},
	}
	data, err := c.Encode(&in)
	require.NoError(t, err)

	var out document
	require.NoError(t, c.Decode(data, &out))
	require.Equal(t, in, out)
}

func TestMsgpackCodecTuple(t *testing.T) {
	c := &MsgpackCodec{}

	// A tuple is a plain two-element array on the wire.
	data, err := c.Encode([]any{"127.0.0.1", 10053})
	require.NoError(t, err)

	var out pair
	require.NoError(t, c.Decode(data, &out))
	require.Equal(t, "127.0.0.1", out.Name)
	require.Equal(t, uint16(10053), out.Port)
}

func TestJSONCodec(t *testing.T) {
	c := &JSONCodec{}

	in := document{
		Name:    "storage",
		Version: 3,
		Methods: map[uint64]string{0: "read"},
	}
	data, err := c.Encode(&in)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"storage","version":3,"methods":{"0":"read"}}`, string(data))

	var out document
	require.NoError(t, c.Decode(data, &out))
	require.Equal(t, in, out)
}

func TestParseCodecType(t *testing.T) {
	ct, err := ParseCodecType("json")
	require.NoError(t, err)
	require.Equal(t, CodecTypeJSON, ct)

	ct, err = ParseCodecType("")
	require.NoError(t, err)
	require.Equal(t, CodecTypeMsgpack, ct)

	_, err = ParseCodecType("xml")
	require.Error(t, err)
}
