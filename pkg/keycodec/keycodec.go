// Package keycodec defines the canonical byte encoding for collection keys.
// The encoding is order preserving: for two keys a and b of the same type,
// a sorts before b in the type's natural order exactly when Encode(a) sorts
// before Encode(b) under bytes.Compare.
package keycodec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrUnsupported = errors.New("keycodec: unsupported key type")
	ErrEmptyKey    = errors.New("keycodec: key must not be empty")
	ErrKeyLength   = errors.New("keycodec: key length mismatch")
)

// KeyMarshaler is implemented by custom key types. MarshalKey must be order
// preserving over the type's natural order, must never return empty bytes
// for a valid key, and must use a value receiver.
type KeyMarshaler interface {
	MarshalKey() ([]byte, error)
}

// KeyUnmarshaler is the decoding side of KeyMarshaler, implemented on the
// pointer type.
type KeyUnmarshaler interface {
	UnmarshalKey(data []byte) error
}

// Encode returns the canonical byte form of key.
//
// Supported types: string and []byte (raw bytes, non-empty), fixed width
// unsigned integers (big endian), fixed width signed integers (big endian
// with the sign bit flipped so negatives sort first), int and uint (encoded
// as 64 bit), and any type implementing KeyMarshaler.
func Encode(key interface{}) ([]byte, error) {
	switch k := key.(type) {
	case string:
		if k == "" {
			return nil, ErrEmptyKey
		}
		return []byte(k), nil
	case []byte:
		if len(k) == 0 {
			return nil, ErrEmptyKey
		}
		out := make([]byte, len(k))
		copy(out, k)
		return out, nil
	case uint8:
		return []byte{k}, nil
	case uint16:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, k)
		return out, nil
	case uint32:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, k)
		return out, nil
	case uint64:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, k)
		return out, nil
	case uint:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(k))
		return out, nil
	case int8:
		return []byte{uint8(k) ^ 0x80}, nil
	case int16:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(k)^0x8000)
		return out, nil
	case int32:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(k)^0x80000000)
		return out, nil
	case int64:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(k)^0x8000000000000000)
		return out, nil
	case int:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(k)^0x8000000000000000)
		return out, nil
	case KeyMarshaler:
		out, err := k.MarshalKey()
		if err != nil {
			return nil, fmt.Errorf("marshal key: %w", err)
		}
		if len(out) == 0 {
			return nil, ErrEmptyKey
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, key)
	}
}

// Decode parses data into the key pointed to by into, reversing Encode.
func Decode(data []byte, into interface{}) error {
	switch k := into.(type) {
	case *string:
		*k = string(data)
		return nil
	case *[]byte:
		out := make([]byte, len(data))
		copy(out, data)
		*k = out
		return nil
	case *uint8:
		if err := wantLen(data, 1); err != nil {
			return err
		}
		*k = data[0]
		return nil
	case *uint16:
		if err := wantLen(data, 2); err != nil {
			return err
		}
		*k = binary.BigEndian.Uint16(data)
		return nil
	case *uint32:
		if err := wantLen(data, 4); err != nil {
			return err
		}
		*k = binary.BigEndian.Uint32(data)
		return nil
	case *uint64:
		if err := wantLen(data, 8); err != nil {
			return err
		}
		*k = binary.BigEndian.Uint64(data)
		return nil
	case *uint:
		if err := wantLen(data, 8); err != nil {
			return err
		}
		*k = uint(binary.BigEndian.Uint64(data))
		return nil
	case *int8:
		if err := wantLen(data, 1); err != nil {
			return err
		}
		*k = int8(data[0] ^ 0x80)
		return nil
	case *int16:
		if err := wantLen(data, 2); err != nil {
			return err
		}
		*k = int16(binary.BigEndian.Uint16(data) ^ 0x8000)
		return nil
	case *int32:
		if err := wantLen(data, 4); err != nil {
			return err
		}
		*k = int32(binary.BigEndian.Uint32(data) ^ 0x80000000)
		return nil
	case *int64:
		if err := wantLen(data, 8); err != nil {
			return err
		}
		*k = int64(binary.BigEndian.Uint64(data) ^ 0x8000000000000000)
		return nil
	case *int:
		if err := wantLen(data, 8); err != nil {
			return err
		}
		*k = int(binary.BigEndian.Uint64(data) ^ 0x8000000000000000)
		return nil
	case KeyUnmarshaler:
		if err := k.UnmarshalKey(data); err != nil {
			return fmt.Errorf("unmarshal key: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, into)
	}
}

// Check reports whether K values have a canonical encoding. It is the
// runtime analogue of the code generator's field type validation.
func Check[K any]() error {
	var k K
	switch interface{}(k).(type) {
	case string, []byte, uint8, uint16, uint32, uint64, uint, int8, int16, int32, int64, int:
		return nil
	}
	_, marshals := interface{}(k).(KeyMarshaler)
	_, unmarshals := interface{}(&k).(KeyUnmarshaler)
	if marshals && unmarshals {
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, k)
}

// FixedWidth reports whether values of key's type always encode to the same
// length, making them safe inside composite keys regardless of content.
func FixedWidth(key interface{}) bool {
	switch key.(type) {
	case uint8, uint16, uint32, uint64, uint, int8, int16, int32, int64, int:
		return true
	}
	return false
}

func wantLen(data []byte, n int) error {
	if len(data) != n {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrKeyLength, n, len(data))
	}
	return nil
}
