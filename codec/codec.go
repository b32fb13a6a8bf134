// Package codec provides the value codecs used for request arguments and
// response payloads.
//
// The codec type travels in every frame header, so both peers always agree on
// how a body must be decoded.
package codec

import "fmt"

type CodecType byte

const (
	CodecTypeMsgpack CodecType = 0
	CodecTypeJSON    CodecType = 1
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=Msgpack, 1=JSON
}

// GetCodec returns the codec registered for codecType.
func GetCodec(codecType CodecType) (Codec, error) {
	switch codecType {
	case CodecTypeMsgpack:
		return &MsgpackCodec{}, nil
	case CodecTypeJSON:
		return &JSONCodec{}, nil
	}
	return nil, fmt.Errorf("codec: unsupported codec type %d", codecType)
}

// Valid reports whether codecType names a known codec.
func Valid(codecType byte) bool {
	return CodecType(codecType) == CodecTypeMsgpack || CodecType(codecType) == CodecTypeJSON
}

func (t CodecType) String() string {
	switch t {
	case CodecTypeMsgpack:
		return "msgpack"
	case CodecTypeJSON:
		return "json"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}

// ParseCodecType maps a codec name ("msgpack", "json") to its type.
func ParseCodecType(name string) (CodecType, error) {
	switch name {
	case "msgpack", "":
		return CodecTypeMsgpack, nil
	case "json":
		return CodecTypeJSON, nil
	}
	return 0, fmt.Errorf("codec: unknown codec %q", name)
}
