package storage_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

func testSchema(t *testing.T) *types.Schema {
	t.Helper()
	schema, err := types.NewSchema(
		types.Field{Name: "id", Kind: types.KindInt64},
		types.Field{Name: "price", Kind: types.KindFloat64},
		types.Field{Name: "name", Kind: types.KindString},
	)
	require.NoError(t, err)
	return schema
}

func le64(v int64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}

func leFloat64(v float64) []byte {
	bits := math.Float64bits(v)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * uint(i)))
	}
	return out
}

func TestBlockInsertRecordAndRead(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)

	slot, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(42)},
		{Raw: leFloat64(3.5)},
		{Raw: []byte("widget")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	assert.Equal(t, 1, b.NumRows())
	assert.True(t, b.Valid(0))

	assert.Equal(t, int64(42), b.Int64At(0, 0))
	assert.InDelta(t, 3.5, b.Float64At(1, 0), 1e-9)
	assert.Equal(t, "widget", string(b.StringAt(2, 0)))
}

func TestBlockInsertRecordRejectsWrongFieldCount(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	_, err := b.InsertRecord([]storage.FieldEntry{{Raw: le64(1)}})
	assert.Error(t, err)
}

func TestBlockHasRoomAndNotEnoughSpace(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 24)
	_, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(1)},
		{Raw: leFloat64(1)},
		{Raw: []byte("this-is-a-long-string-value")},
	})
	assert.ErrorIs(t, err, hustleerr.ErrNotEnoughSpace)
}

func TestBlockUpdateColumnValueInPlace(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	_, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(1)},
		{Raw: leFloat64(1)},
		{Raw: []byte("a")},
	})
	require.NoError(t, err)

	require.NoError(t, b.UpdateColumnValue(0, 0, le64(99), 8))
	assert.Equal(t, int64(99), b.Int64At(0, 0))
}

func TestBlockUpdateColumnValueRejectsStringColumn(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	_, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(1)},
		{Raw: leFloat64(1)},
		{Raw: []byte("a")},
	})
	require.NoError(t, err)
	assert.Error(t, b.UpdateColumnValue(2, 0, []byte("b"), 1))
}

func TestBlockSetValidAndInvalidateMetadata(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	_, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(5)},
		{Raw: leFloat64(1)},
		{Raw: []byte("a")},
	})
	require.NoError(t, err)
	require.True(t, b.Metadata().Search(0, types.OpEQ, 5))

	b.SetValid(0, false)
	assert.False(t, b.Valid(0))
	assert.False(t, b.Metadata().Search(0, types.OpEQ, 5))
}

func TestBlockMetadataMinMax(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	for _, v := range []int64{5, 1, 9, 3} {
		_, err := b.InsertRecord([]storage.FieldEntry{
			{Raw: le64(v)},
			{Raw: leFloat64(float64(v))},
			{Raw: []byte("x")},
		})
		require.NoError(t, err)
	}

	meta := b.Metadata()
	require.True(t, meta.OK(0))
	assert.True(t, meta.Search(0, types.OpEQ, 9))
	assert.False(t, meta.Search(0, types.OpEQ, 100))
	assert.True(t, meta.Search(0, types.OpGT, 0))
	assert.False(t, meta.Search(0, types.OpGT, 9))
}

func TestBlockMetadataInvalidatesOnMutation(t *testing.T) {
	b := storage.NewBlock(0, testSchema(t), 1<<16)
	_, err := b.InsertRecord([]storage.FieldEntry{
		{Raw: le64(1)},
		{Raw: leFloat64(1)},
		{Raw: []byte("a")},
	})
	require.NoError(t, err)

	first := b.Metadata()
	require.NoError(t, b.UpdateColumnValue(0, 0, le64(1000), 8))
	b.InvalidateMetadata()
	second := b.Metadata()

	assert.True(t, second.Search(0, types.OpEQ, 1000))
	_ = first
}
