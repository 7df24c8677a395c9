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

func newJoinLeftTable(t *testing.T) *storage.Table {
	t.Helper()
	schema, err := types.NewSchema(
		types.Field{Name: "order_id", Kind: types.KindInt64},
		types.Field{Name: "date_key", Kind: types.KindInt64},
	)
	require.NoError(t, err)
	tbl := storage.NewTable("lineorder", schema, 1<<16)
	rows := [][2]int64{{1, 100}, {2, 200}, {3, 100}, {4, 300}}
	for _, r := range rows {
		_, err := tbl.InsertRecord([]storage.FieldEntry{{Raw: le64b(r[0])}, {Raw: le64b(r[1])}})
		require.NoError(t, err)
	}
	return tbl
}

func newJoinRightTable(t *testing.T) *storage.Table {
	t.Helper()
	schema, err := types.NewSchema(
		types.Field{Name: "date_key", Kind: types.KindInt64},
		types.Field{Name: "year", Kind: types.KindInt64},
	)
	require.NoError(t, err)
	tbl := storage.NewTable("date", schema, 1<<16)
	rows := [][2]int64{{100, 1993}, {200, 1994}}
	for _, r := range rows {
		_, err := tbl.InsertRecord([]storage.FieldEntry{{Raw: le64b(r[0])}, {Raw: le64b(r[1])}})
		require.NoError(t, err)
	}
	return tbl
}

func TestJoinMatchesOnEqualityAndBackPropagates(t *testing.T) {
	left := newJoinLeftTable(t)
	right := newJoinRightTable(t)

	j := &operators.Join{Predicates: []operators.EqJoinPredicate{
		{Left: operators.ColumnRef{View: 0, Column: "date_key"}, Right: operators.ColumnRef{View: 1, Column: "date_key"}},
	}}

	in := operators.Result{lazytable.New(left), lazytable.New(right)}
	out, err := j.Run(in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	leftRows := out[0].LiveRows()
	rightRows := out[1].LiveRows()
	// order_id 1 and 3 both carry date_key 100, which matches the date
	// table's first row; order_id 2 matches the second; order_id 4 has no
	// match at all.
	assert.Len(t, leftRows, 3)
	assert.Len(t, rightRows, 3)
}

func TestJoinWithNoMatchesProducesEmptyIndices(t *testing.T) {
	left := newJoinLeftTable(t)
	right := newJoinRightTable(t)

	j := &operators.Join{Predicates: []operators.EqJoinPredicate{
		{Left: operators.ColumnRef{View: 0, Column: "order_id"}, Right: operators.ColumnRef{View: 1, Column: "year"}},
	}}

	in := operators.Result{lazytable.New(left), lazytable.New(right)}
	out, err := j.Run(in)
	require.NoError(t, err)

	assert.Len(t, out[0].LiveRows(), 0)
	assert.Len(t, out[1].LiveRows(), 0)
}

func TestJoinBackPropagatesToThirdView(t *testing.T) {
	left := newJoinLeftTable(t)
	right := newJoinRightTable(t)
	bystander := lazytable.New(left)

	j := &operators.Join{Predicates: []operators.EqJoinPredicate{
		{Left: operators.ColumnRef{View: 0, Column: "date_key"}, Right: operators.ColumnRef{View: 1, Column: "date_key"}},
	}}

	in := operators.Result{lazytable.New(left), lazytable.New(right), bystander}
	out, err := j.Run(in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// The bystander view had no prior indices, so it directly adopts the
	// surviving left-side indices.
	assert.Equal(t, out[0].LiveRows(), out[2].LiveRows())
}
