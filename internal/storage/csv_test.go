package storage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/storage"
)

func TestLoadCSVInsertsRows(t *testing.T) {
	tbl := storage.NewTable("t", testSchema(t), 1<<16)
	csv := "1|1.5|alpha\n2|2.5|beta\n3|3.5|gamma\n"

	ids, err := storage.LoadCSV(tbl, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, 3, tbl.NumRows())

	blockID, slot, ok := tbl.Lookup(ids[1])
	require.True(t, ok)
	b := tbl.GetBlock(blockID)
	assert.Equal(t, int64(2), b.Int64At(0, slot))
	assert.InDelta(t, 2.5, b.Float64At(1, slot), 1e-9)
	assert.Equal(t, "beta", string(b.StringAt(2, slot)))
}

func TestLoadCSVSkipsBlankLines(t *testing.T) {
	tbl := storage.NewTable("t", testSchema(t), 1<<16)
	csv := "1|1.0|a\n\n2|2.0|b\n"
	ids, err := storage.LoadCSV(tbl, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestLoadCSVRejectsWrongFieldCount(t *testing.T) {
	tbl := storage.NewTable("t", testSchema(t), 1<<16)
	csv := "1|1.0\n"
	_, err := storage.LoadCSV(tbl, strings.NewReader(csv))
	assert.Error(t, err)
}

func TestLoadCSVRejectsMalformedInt(t *testing.T) {
	tbl := storage.NewTable("t", testSchema(t), 1<<16)
	csv := "notanumber|1.0|a\n"
	_, err := storage.LoadCSV(tbl, strings.NewReader(csv))
	assert.Error(t, err)
}
