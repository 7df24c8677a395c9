package operators

import (
	"context"

	"github.com/hustledb/hustle/internal/lazytable"
	"github.com/hustledb/hustle/internal/storage"
)

// SelectBuildHash is the fused Select + hash-build operator (spec §4.9): it
// computes the usual block filters, then builds a hash map on the selected
// rows' values of a named join column, so a downstream FilterJoin can probe
// it without rebuilding.
type SelectBuildHash struct {
	Table      *storage.Table
	Predicate  *Predicate
	HashColumn string
}

// Run implements Operator.
func (s *SelectBuildHash) Run(in Result) (Result, error) {
	filter, err := EvalPredicate(context.Background(), s.Table, s.Predicate)
	if err != nil {
		return nil, err
	}

	lt := lazytable.New(s.Table)
	lt.Filter = filter

	colIdx := s.Table.Schema.IndexOf(s.HashColumn)
	ht := make(lazytable.HashTable)
	offsets := s.Table.BlockRowOffsets()
	for _, id := range s.Table.BlockIDs() {
		b := s.Table.GetBlock(id)
		bm := filter[id]
		base := offsets[id]
		n := b.NumRows()
		for row := 0; row < n; row++ {
			if !b.Valid(row) {
				continue
			}
			if bm != nil && !bm.Get(row) {
				continue
			}
			v := b.Int64At(colIdx, row)
			ht[v] = append(ht[v], lazytable.HashEntry{Row: base + row, BlockID: id})
		}
	}
	lt.Hash = ht

	out := make(Result, len(in), len(in)+1)
	copy(out, in)
	return append(out, lt), nil
}
