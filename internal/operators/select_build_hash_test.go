package operators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/operators"
	"github.com/hustledb/hustle/internal/types"
)

func TestSelectBuildHashBuildsHashTableOverSelectedRows(t *testing.T) {
	tbl := newSelectTestTable(t)
	op := &operators.SelectBuildHash{
		Table:      tbl,
		Predicate:  operators.Leaf("qty", types.OpGE, 10),
		HashColumn: "id",
	}
	out, err := op.Run(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.NotNil(t, out[0].Hash)
	entries, ok := out[0].Hash[1]
	require.True(t, ok)
	assert.Len(t, entries, 1)

	// id 4 has qty 5, excluded by the predicate, so it must not appear.
	_, excluded := out[0].Hash[4]
	assert.False(t, excluded)
}

func TestSelectBuildHashAppendsToExistingResult(t *testing.T) {
	tbl := newSelectTestTable(t)
	op := &operators.SelectBuildHash{
		Table:      tbl,
		Predicate:  operators.Leaf("id", types.OpEQ, 1),
		HashColumn: "id",
	}
	out, err := op.Run(operators.Result{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
