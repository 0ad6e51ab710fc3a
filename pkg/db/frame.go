package db

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Stored values carry a small header so that reads can tell engine-level
// damage apart from codec-level garbage: a format tag followed by a
// truncated blake2b digest of the payload.
const (
	frameTag       = 0x01
	frameDigestLen = 8
	frameHeaderLen = 1 + frameDigestLen
)

// Frame wraps payload with the stored-value header. Backends apply it on
// every Put.
func Frame(payload []byte) []byte {
	out := make([]byte, frameHeaderLen+len(payload))
	out[0] = frameTag
	sum := blake2b.Sum256(payload)
	copy(out[1:frameHeaderLen], sum[:frameDigestLen])
	copy(out[frameHeaderLen:], payload)
	return out
}

// Unframe verifies and strips the stored-value header, returning a copy of
// the payload. Any mismatch reports ErrCorrupt.
func Unframe(stored []byte) ([]byte, error) {
	if len(stored) < frameHeaderLen {
		return nil, fmt.Errorf("%w: truncated value of %d bytes", ErrCorrupt, len(stored))
	}
	if stored[0] != frameTag {
		return nil, fmt.Errorf("%w: unknown format tag 0x%02x", ErrCorrupt, stored[0])
	}
	payload := stored[frameHeaderLen:]
	sum := blake2b.Sum256(payload)
	if !bytes.Equal(sum[:frameDigestLen], stored[1:frameHeaderLen]) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
