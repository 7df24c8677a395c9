package operators

import (
	"sort"

	"github.com/hustledb/hustle/internal/bloom"
	"github.com/hustledb/hustle/internal/lazytable"
	"github.com/hustledb/hustle/internal/storage"
)

// lipBatchSize bounds how many fact rows each probe batch covers before
// filters are re-sorted by rolling hit rate (spec §4.7 "Probe").
const lipBatchSize = 4096

// DimensionFilter is one dimension table's Bloom-filter input to LIP: its
// lazy view, the named primary-key column to index, and the fact-table
// foreign-key column the resulting filter gates.
type DimensionFilter struct {
	View     *lazytable.LazyTable
	PKColumn string
	FKColumn string
}

// LIP prunes a fact-table lazy view against a set of dimension filters
// before a conventional Join sees it (spec §4.7).
type LIP struct {
	FactTable  *storage.Table
	FactView   *lazytable.LazyTable
	Dimensions []DimensionFilter
	FPRate     float64 // default 1e-3 per spec §6.4 unless overridden
	Memory     int      // rolling-history window length, default 10
}

// Run implements Operator. in is ignored; LIP's inputs are FactView and
// Dimensions, supplied at construction (the caller already concatenated any
// upstream context it needed into those views).
func (l *LIP) Run(Result) (Result, error) {
	fpRate := l.FPRate
	if fpRate <= 0 {
		fpRate = 1e-3
	}

	filters := make([]*bloom.Filter, len(l.Dimensions))
	for i, d := range l.Dimensions {
		rows := d.View.LiveRows()
		idx := d.View.Table.Schema.IndexOf(d.PKColumn)
		f := bloom.New(len(rows), fpRate, l.Memory, d.FKColumn)
		for _, r := range rows {
			v := d.View.Table.GetBlock(r.Block).Int64At(idx, r.Slot)
			f.Insert(uint64(v))
		}
		filters[i] = f
	}

	fkIdx := make([]int, len(filters))
	for i, d := range l.Dimensions {
		fkIdx[i] = l.FactTable.Schema.IndexOf(d.FKColumn)
	}

	// order holds filter indices, reordered ascending by rolling hit rate
	// after each batch so cheaper (lower hit-rate) filters probe first.
	order := make([]int, len(filters))
	for i := range order {
		order[i] = i
	}

	factRows := l.FactView.LiveRows()
	surviving := make([]lazytable.RowRef, 0, len(factRows))

	for start := 0; start < len(factRows); start += lipBatchSize {
		end := start + lipBatchSize
		if end > len(factRows) {
			end = len(factRows)
		}
		live := make([]lazytable.RowRef, end-start)
		copy(live, factRows[start:end])
		liveLen := len(live)

		for oi, fi := range order {
			filt := filters[fi]
			col := fkIdx[fi]
			if oi == 0 {
				newLen := 0
				for k := 0; k < liveLen; k++ {
					v := l.FactTable.GetBlock(live[k].Block).Int64At(col, live[k].Slot)
					if filt.Probe(uint64(v)) {
						live[newLen] = live[k]
						newLen++
					}
				}
				liveLen = newLen
				continue
			}
			// Two-pointer partition (spec §4.7 "a branchless-friendly
			// reorder that avoids an auxiliary buffer"): matches stay in the
			// live prefix, misses get swapped to the tail.
			i, j := 0, liveLen-1
			for i <= j {
				v := l.FactTable.GetBlock(live[i].Block).Int64At(col, live[i].Slot)
				if filt.Probe(uint64(v)) {
					i++
				} else {
					live[i], live[j] = live[j], live[i]
					j--
				}
			}
			liveLen = i
		}

		surviving = append(surviving, live[:liveLen]...)

		for _, f := range filters {
			f.Update()
		}
		sort.SliceStable(order, func(a, b int) bool {
			return filters[order[a]].HitRate() < filters[order[b]].HitRate()
		})
	}

	factOut := l.FactView.Clone()
	factOut.Filter = nil
	factOut.Indices = surviving

	out := make(Result, 0, 1+len(l.Dimensions))
	out = append(out, factOut)
	for _, d := range l.Dimensions {
		out = append(out, d.View)
	}
	return out, nil
}
