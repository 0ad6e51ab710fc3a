package custom

import "encoding/binary"

// SpanID is a composite key with its own order preserving encoding.
type SpanID struct {
	Trace uint64
	Span  uint64
}

func (s SpanID) MarshalKey() ([]byte, error) {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out, s.Trace)
	binary.BigEndian.PutUint64(out[8:], s.Span)
	return out, nil
}

func (s *SpanID) UnmarshalKey(data []byte) error {
	s.Trace = binary.BigEndian.Uint64(data)
	s.Span = binary.BigEndian.Uint64(data[8:])
	return nil
}

// Span keys on the marshaler type directly, no conversion.
type Span struct {
	ID        SpanID `store:"key"`
	Operation string `store:"index"`
}
