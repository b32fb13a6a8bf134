package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec is the default codec. MessagePack is self-describing, so a
// payload can be inspected without knowing its schema, and it keeps integer
// map keys as integers.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgpackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgpackCodec) Type() CodecType {
	return CodecTypeMsgpack
}
