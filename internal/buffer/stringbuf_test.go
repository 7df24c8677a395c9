package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/buffer"
)

func TestStringColumnEmpty(t *testing.T) {
	sc := buffer.NewStringColumn()
	assert.Equal(t, 0, sc.Len())
	assert.Equal(t, 0, sc.ByteLen())
}

func TestStringColumnAppendGet(t *testing.T) {
	sc := buffer.NewStringColumn()
	sc.Append([]byte("hello"))
	sc.Append([]byte(""))
	sc.Append([]byte("world!"))

	require.Equal(t, 3, sc.Len())
	assert.Equal(t, "hello", string(sc.Get(0)))
	assert.Equal(t, "", string(sc.Get(1)))
	assert.Equal(t, "world!", string(sc.Get(2)))
	assert.Equal(t, len("hello")+len("world!"), sc.ByteLen())
}

func TestStringColumnValues(t *testing.T) {
	sc := buffer.NewStringColumn()
	want := []string{"a", "bb", "ccc"}
	for _, s := range want {
		sc.Append([]byte(s))
	}
	got := sc.Values()
	require.Len(t, got, 3)
	for i, w := range want {
		assert.Equal(t, w, string(got[i]))
	}
}

func TestStringColumnTruncate(t *testing.T) {
	sc := buffer.NewStringColumn()
	sc.Append([]byte("abc"))
	sc.Truncate()
	assert.Equal(t, "abc", string(sc.Get(0)))
	assert.Equal(t, 1, sc.Len())
}
