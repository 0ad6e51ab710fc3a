package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID      string
	Count   int
	Tags    []string
	Comment *string
}

func TestCodecRoundTrip(t *testing.T) {
	comment := "needs review"
	tests := []struct {
		name  string
		codec Codec
	}{
		{name: "msgpack", codec: &MsgpackCodec{}},
		{name: "json", codec: &JSONCodec{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values := []record{
				{ID: "a1", Count: 3, Tags: []string{"x", "y"}, Comment: &comment},
				{ID: "a2", Count: -1},
			}
			for _, v := range values {
				data, err := tc.codec.Marshal(v)
				require.NoError(t, err)

				var got record
				require.NoError(t, tc.codec.Unmarshal(data, &got))
				assert.Equal(t, v, got)
			}
		})
	}
}

func TestMarshalDeterministic(t *testing.T) {
	v := record{ID: "a1", Count: 3, Tags: []string{"x"}}

	for _, c := range []Codec{&MsgpackCodec{}, &JSONCodec{}} {
		first, err := c.Marshal(v)
		require.NoError(t, err)

		second, err := c.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, second, c.Name())
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	for _, c := range []Codec{&MsgpackCodec{}, &JSONCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var got record
			err := c.Unmarshal([]byte("\x00\x01 garbage"), &got)
			require.Error(t, err)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, c.Name(), decodeErr.Codec)
		})
	}
}

func TestMarshalUnsupported(t *testing.T) {
	for _, c := range []Codec{&MsgpackCodec{}, &JSONCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			_, err := c.Marshal(make(chan int))
			require.Error(t, err)

			var encodeErr *EncodeError
			require.ErrorAs(t, err, &encodeErr)
			assert.Equal(t, c.Name(), encodeErr.Codec)
		})
	}
}
