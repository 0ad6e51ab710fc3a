package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/bramble/pkg/codec"
	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/db/pebble"
)

func newBackend(t *testing.T) db.Backend {
	t.Helper()

	backend, err := pebble.New(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func newCodec() codec.Codec { return &codec.MsgpackCodec{} }

func TestCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)

	// a fresh key is absent, not an error
	_, ok, err := entries.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, entries.Put(ctx, event{ID: 1, Name: "a"}))

	got, ok, err := entries.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, event{ID: 1, Name: "a"}, got)

	// putting under the same key overwrites
	require.NoError(t, entries.Put(ctx, event{ID: 1, Name: "b"}))

	got, ok, err = entries.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, event{ID: 1, Name: "b"}, got)

	require.NoError(t, entries.Delete(ctx, 1))

	_, ok, err = entries.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting an absent key stays silent
	require.NoError(t, entries.Delete(ctx, 1))
}

func TestCollectionContainsLen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)

	n, err := entries.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, e := range []event{{ID: 4, Name: "d"}, {ID: 2, Name: "b"}} {
		require.NoError(t, entries.Put(ctx, e))
	}

	ok, err := entries.Contains(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = entries.Contains(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = entries.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListOrdersByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)

	// inserted out of order, listed in order
	for _, e := range []event{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}, {ID: 2, Name: "b"}} {
		require.NoError(t, entries.Put(ctx, e))
	}

	items := entries.List(ctx, Full[uint32]())
	defer items.Close()

	var ids []uint32
	for items.Next() {
		key, err := items.Key()
		require.NoError(t, err)

		value, err := items.Value()
		require.NoError(t, err)
		assert.Equal(t, key, value.ID)

		ids = append(ids, key)
	}
	require.NoError(t, items.Err())
	assert.Equal(t, []uint32{1, 2, 3}, ids)
}

func TestListRanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)

	for id := uint32(1); id <= 9; id++ {
		require.NoError(t, entries.Put(ctx, event{ID: id, Name: "n"}))
	}

	tests := []struct {
		name string
		r    KeyRange[uint32]
		want []uint32
	}{
		{name: "full", r: Full[uint32](), want: []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "from", r: From[uint32](7), want: []uint32{7, 8, 9}},
		{name: "after", r: After[uint32](7), want: []uint32{8, 9}},
		{name: "until", r: Until[uint32](4), want: []uint32{1, 2, 3}},
		{name: "through", r: Through[uint32](4), want: []uint32{1, 2, 3, 4}},
		{name: "between", r: Between[uint32](3, 7), want: []uint32{3, 4, 5, 6}},
		{name: "closed_between", r: KeyRange[uint32]{From: ptr(uint32(3)), To: ptr(uint32(7)), ToClosed: true}, want: []uint32{3, 4, 5, 6, 7}},
		{name: "empty_window", r: Between[uint32](5, 5), want: nil},
		{name: "inverted_window", r: Between[uint32](7, 3), want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items := entries.List(ctx, tc.r)
			defer items.Close()

			var ids []uint32
			for items.Next() {
				key, err := items.Key()
				require.NoError(t, err)
				ids = append(ids, key)
			}
			require.NoError(t, items.Err())
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestPrefixListing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	type session struct {
		Token string `msgpack:"token" json:"token"`
		User  string `msgpack:"user" json:"user"`
	}
	sessions, err := NewCollection(s, "sessions", func(v session) string { return v.Token })
	require.NoError(t, err)

	for _, v := range []session{
		{Token: "alpha:1", User: "ada"},
		{Token: "alpha:2", User: "ada"},
		{Token: "beta:1", User: "bob"},
	} {
		require.NoError(t, sessions.Put(ctx, v))
	}

	items := sessions.Prefix(ctx, "alpha:")
	defer items.Close()

	var tokens []string
	for items.Next() {
		key, err := items.Key()
		require.NoError(t, err)
		tokens = append(tokens, key)
	}
	require.NoError(t, items.Err())
	assert.Equal(t, []string{"alpha:1", "alpha:2"}, tokens)
}

func TestGetDecodeError(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	s, err := OpenWith(ctx, Location{}, backend, newCodec())
	require.NoError(t, err)
	defer s.Close()

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)
	require.NoError(t, entries.Put(ctx, event{ID: 7, Name: "ok"}))

	// clobber the stored payload beneath the typed layer
	kb := []byte{0, 0, 0, 7}
	require.NoError(t, backend.Put(ctx, "entries", kb, []byte("\x00\x01 not a record")))

	_, _, err = entries.Get(ctx, 7)
	require.Error(t, err)

	var decodeErr *codec.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestListContinuesPastBadRecord(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	s, err := OpenWith(ctx, Location{}, backend, newCodec())
	require.NoError(t, err)
	defer s.Close()

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)

	for id := uint32(1); id <= 3; id++ {
		require.NoError(t, entries.Put(ctx, event{ID: id, Name: "n"}))
	}
	// damage the middle record's payload only
	require.NoError(t, backend.Put(ctx, "entries", []byte{0, 0, 0, 2}, []byte("garbage")))

	items := entries.List(ctx, Full[uint32]())
	defer items.Close()

	var good, bad []uint32
	for items.Next() {
		key, err := items.Key()
		require.NoError(t, err)

		if _, err := items.Value(); err != nil {
			var decodeErr *codec.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			bad = append(bad, key)
			continue
		}
		good = append(good, key)
	}
	require.NoError(t, items.Err())

	assert.Equal(t, []uint32{1, 3}, good)
	assert.Equal(t, []uint32{2}, bad)
}

func TestCancelledPutLeavesValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries, err := NewCollection(s, "entries", eventKey)
	require.NoError(t, err)
	require.NoError(t, entries.Put(ctx, event{ID: 1, Name: "before"}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err = entries.Put(cancelled, event{ID: 1, Name: "after"})
	assert.ErrorIs(t, err, context.Canceled)

	got, ok, err := entries.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "before", got.Name)
}

func TestCodecParity(t *testing.T) {
	// the same operation sequence is observably identical under both codecs
	ctx := context.Background()

	run := func(t *testing.T, c codec.Codec) ([]event, event) {
		s, err := OpenWith(ctx, Location{}, newBackend(t), c)
		require.NoError(t, err)
		defer s.Close()

		entries, err := NewCollection(s, "entries", eventKey)
		require.NoError(t, err)

		for _, e := range []event{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}, {ID: 2, Name: "b"}} {
			require.NoError(t, entries.Put(ctx, e))
		}
		require.NoError(t, entries.Put(ctx, event{ID: 2, Name: "b2"}))
		require.NoError(t, entries.Delete(ctx, 3))

		var listed []event
		items := entries.List(ctx, Full[uint32]())
		defer items.Close()
		for items.Next() {
			value, err := items.Value()
			require.NoError(t, err)
			listed = append(listed, value)
		}
		require.NoError(t, items.Err())

		got, ok, err := entries.Get(ctx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return listed, got
	}

	msgpackList, msgpackGot := run(t, &codec.MsgpackCodec{})
	jsonList, jsonGot := run(t, &codec.JSONCodec{})

	assert.Equal(t, msgpackList, jsonList)
	assert.Equal(t, msgpackGot, jsonGot)
	assert.Equal(t, []event{{ID: 1, Name: "a"}, {ID: 2, Name: "b2"}}, msgpackList)
}

func TestNewCollectionValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := NewCollection(s, "Entries", eventKey)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewCollection(s, "7days", eventKey)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewCollection(s, "", eventKey)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewCollection[uint32, event](s, "entries", nil)
	require.Error(t, err)

	// float64 has no canonical order-preserving encoding
	_, err = NewCollection(s, "entries", func(v event) float64 { return float64(v.ID) })
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestInvalidKeyOperations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	type named struct {
		Name string `msgpack:"name" json:"name"`
	}
	items, err := NewCollection(s, "named", func(v named) string { return v.Name })
	require.NoError(t, err)

	// the empty string has no encoding, so it can never be a key
	_, _, err = items.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, items.Put(ctx, named{Name: ""}), ErrInvalidKey)
	assert.ErrorIs(t, items.Delete(ctx, ""), ErrInvalidKey)

	seq := items.Prefix(ctx, "")
	assert.False(t, seq.Next())
	assert.ErrorIs(t, seq.Err(), ErrInvalidKey)
	require.NoError(t, seq.Close())
}

func ptr[T any](v T) *T { return &v }
