package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec implements the Codec interface using MessagePack, encoding
// structs as maps keyed by field name. It is the default codec on native
// targets.
type MsgpackCodec struct{}

func (m *MsgpackCodec) Name() string { return "msgpack" }

func (m *MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Codec: m.Name(), Err: err}
	}
	return data, nil
}

func (m *MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return &DecodeError{Codec: m.Name(), Err: err}
	}
	return nil
}
