package operators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/lazytable"
	"github.com/hustledb/hustle/internal/operators"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

func newLIPFactTable(t *testing.T) *storage.Table {
	t.Helper()
	schema, err := types.NewSchema(
		types.Field{Name: "order_id", Kind: types.KindInt64},
		types.Field{Name: "cust_key", Kind: types.KindInt64},
	)
	require.NoError(t, err)
	tbl := storage.NewTable("lineorder", schema, 1<<16)
	rows := [][2]int64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}
	for _, r := range rows {
		_, err := tbl.InsertRecord([]storage.FieldEntry{{Raw: le64b(r[0])}, {Raw: le64b(r[1])}})
		require.NoError(t, err)
	}
	return tbl
}

func newLIPDimTable(t *testing.T, keys []int64) *storage.Table {
	t.Helper()
	schema, err := types.NewSchema(types.Field{Name: "cust_key", Kind: types.KindInt64})
	require.NoError(t, err)
	tbl := storage.NewTable("customer", schema, 1<<16)
	for _, k := range keys {
		_, err := tbl.InsertRecord([]storage.FieldEntry{{Raw: le64b(k)}})
		require.NoError(t, err)
	}
	return tbl
}

func TestLIPPrunesFactRowsNotInDimension(t *testing.T) {
	fact := newLIPFactTable(t)
	dim := newLIPDimTable(t, []int64{10, 30})

	l := &operators.LIP{
		FactTable: fact,
		FactView:  lazytable.New(fact),
		Dimensions: []operators.DimensionFilter{
			{View: lazytable.New(dim), PKColumn: "cust_key", FKColumn: "cust_key"},
		},
		FPRate: 1e-6,
		Memory: 10,
	}

	out, err := l.Run(nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	rows := out[0].LiveRows()
	// The filter guarantees no false negatives: every fact row whose
	// cust_key is actually in the dimension must survive. False positives
	// are permitted, so this only asserts the lower bound.
	survivors := make(map[int64]bool, len(rows))
	for _, r := range rows {
		survivors[fact.GetBlock(r.Block).Int64At(1, r.Slot)] = true
	}
	assert.True(t, survivors[10])
	assert.True(t, survivors[30])
	assert.LessOrEqual(t, len(rows), 4)
}

func TestLIPWithNoDimensionsPassesAllRowsThrough(t *testing.T) {
	fact := newLIPFactTable(t)
	l := &operators.LIP{
		FactTable:  fact,
		FactView:   lazytable.New(fact),
		Dimensions: nil,
		FPRate:     1e-3,
		Memory:     10,
	}
	out, err := l.Run(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0].LiveRows(), 4)
}
