package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixRange(t *testing.T) {
	r := PrefixRange([]byte("ab"))
	assert.Equal(t, []byte("ab"), r.Start)
	assert.Equal(t, []byte("ac"), r.End)

	r = PrefixRange([]byte{0x01, 0xff})
	assert.Equal(t, []byte{0x02}, r.End)

	// no upper bound exists past an all-0xff prefix
	r = PrefixRange([]byte{0xff, 0xff})
	assert.Nil(t, r.End)
}
