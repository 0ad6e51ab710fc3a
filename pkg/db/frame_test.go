package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		{},
		{0x00},
		make([]byte, 4096),
	}

	for _, p := range payloads {
		stored := Frame(p)
		got, err := Unframe(stored)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestUnframeCorrupt(t *testing.T) {
	stored := Frame([]byte("payload bytes"))

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{name: "empty", mutate: func(b []byte) []byte { return nil }},
		{name: "truncated_header", mutate: func(b []byte) []byte { return b[:frameHeaderLen-1] }},
		{name: "truncated_payload", mutate: func(b []byte) []byte { return b[:len(b)-1] }},
		{name: "unknown_tag", mutate: func(b []byte) []byte { b[0] = 0x7f; return b }},
		{name: "damaged_digest", mutate: func(b []byte) []byte { b[1] ^= 0x01; return b }},
		{name: "damaged_payload", mutate: func(b []byte) []byte { b[frameHeaderLen] ^= 0x80; return b }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, len(stored))
			copy(buf, stored)

			_, err := Unframe(tc.mutate(buf))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
