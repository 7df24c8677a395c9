package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/buffer"
)

func TestTypedColumnInt64AppendGet(t *testing.T) {
	c := buffer.NewTypedColumn[int64]()
	c.Append(1)
	c.Append(-2)
	c.Append(9223372036854775807)

	require.Equal(t, 3, c.Len())
	assert.Equal(t, int64(1), c.Get(0))
	assert.Equal(t, int64(-2), c.Get(1))
	assert.Equal(t, int64(9223372036854775807), c.Get(2))
}

func TestTypedColumnFloat64RoundTrip(t *testing.T) {
	c := buffer.NewTypedColumn[float64]()
	c.Append(3.14159)
	c.Append(-0.5)
	assert.InDelta(t, 3.14159, c.Get(0), 1e-9)
	assert.InDelta(t, -0.5, c.Get(1), 1e-9)
}

func TestTypedColumnUint8NarrowWidth(t *testing.T) {
	c := buffer.NewTypedColumn[uint8]()
	c.Append(255)
	c.Append(0)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, uint8(255), c.Get(0))
	assert.Equal(t, uint8(0), c.Get(1))
}

func TestTypedColumnSetOverwritesInPlace(t *testing.T) {
	c := buffer.NewTypedColumn[int32]()
	c.Append(10)
	c.Append(20)
	c.Set(0, 99)
	assert.Equal(t, int32(99), c.Get(0))
	assert.Equal(t, int32(20), c.Get(1))
}

func TestTypedColumnValues(t *testing.T) {
	c := buffer.NewTypedColumn[int16]()
	for _, v := range []int16{1, 2, 3, -4} {
		c.Append(v)
	}
	assert.Equal(t, []int16{1, 2, 3, -4}, c.Values())
}

func TestTypedColumnTruncate(t *testing.T) {
	c := buffer.NewTypedColumn[uint32]()
	c.Append(42)
	c.Truncate()
	assert.Equal(t, uint32(42), c.Get(0))
	assert.Equal(t, 1, c.Len())
}
