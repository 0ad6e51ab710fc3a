package codec

import (
	"encoding/json"
)

// JSONCodec implements the Codec interface using encoding/json. It is the
// default codec in the browser, where stored values follow the host's
// structured value model.
type JSONCodec struct{}

func (j *JSONCodec) Name() string { return "json" }

func (j *JSONCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Codec: j.Name(), Err: err}
	}
	return data, nil
}

func (j *JSONCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Codec: j.Name(), Err: err}
	}
	return nil
}
