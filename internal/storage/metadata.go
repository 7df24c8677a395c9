// Package storage implements the columnar block/table store: fixed-
// capacity column blocks, per-block SMA metadata for block pruning, and
// the table directory that ties blocks together under a shared schema.
package storage

import "github.com/hustledb/hustle/internal/types"

// smaStatus tracks whether a column's metadata entry was successfully
// constructed. Search only consults an entry when status is OK; unbuilt
// or unsupported columns (e.g. strings) fall back to "maybe" by default.
type smaStatus uint8

const (
	smaUnbuilt smaStatus = iota
	smaOK
	smaUnsupported
)

// smaEntry is one column's min/max small-materialized-aggregate for one
// block (spec §4.2).
type smaEntry struct {
	status  smaStatus
	isFloat bool
	minI    int64
	maxI    int64
	minF    float64
	maxF    float64
}

// BlockMetadata holds one smaEntry per column of a block.
type BlockMetadata struct {
	entries []smaEntry
}

// buildBlockMetadata computes min/max over the live (valid) rows of every
// supported column. Invalid rows are skipped; string columns get an
// smaUnsupported entry (Search always returns true for those).
func buildBlockMetadata(b *Block) *BlockMetadata {
	meta := &BlockMetadata{entries: make([]smaEntry, len(b.Schema.Fields))}
	for i, f := range b.Schema.Fields {
		if !f.Kind.IsNumeric() {
			meta.entries[i] = smaEntry{status: smaUnsupported}
			continue
		}
		e := smaEntry{status: smaUnbuilt, isFloat: f.Kind == types.KindFloat64}
		first := true
		for row := 0; row < b.numRows; row++ {
			if !b.Valid(row) {
				continue
			}
			if e.isFloat {
				v := b.Float64At(i, row)
				if first {
					e.minF, e.maxF = v, v
					first = false
					continue
				}
				if v < e.minF {
					e.minF = v
				}
				if v > e.maxF {
					e.maxF = v
				}
			} else {
				v := b.Int64At(i, row)
				if first {
					e.minI, e.maxI = v, v
					first = false
					continue
				}
				if v < e.minI {
					e.minI = v
				}
				if v > e.maxI {
					e.maxI = v
				}
			}
		}
		e.status = smaOK
		meta.entries[i] = e
	}
	return meta
}

// Search reports whether the block identified by this metadata may
// contain a row matching (colIdx, op, value). It is conservative: it
// never returns false when a live row could actually match (spec §4.2,
// P4). value is the int64 literal of an integer comparison; KindFloat64
// columns are searched with SearchFloat instead, and Search returns true
// for them, as for every column without an OK entry.
func (m *BlockMetadata) Search(colIdx int, op types.CompareOp, value int64) bool {
	e := m.entries[colIdx]
	if e.status != smaOK || e.isFloat {
		return true
	}
	return searchInt(e, op, value)
}

// SearchFloat is the float64 counterpart of Search.
func (m *BlockMetadata) SearchFloat(colIdx int, op types.CompareOp, value float64) bool {
	e := m.entries[colIdx]
	if e.status != smaOK || !e.isFloat {
		return true
	}
	return searchFloat(e, op, value)
}

func searchInt(e smaEntry, op types.CompareOp, value int64) bool {
	switch op {
	case types.OpGT:
		return e.maxI > value
	case types.OpGE:
		return e.maxI >= value
	case types.OpLT:
		return e.minI < value
	case types.OpLE:
		return e.minI <= value
	case types.OpEQ:
		return e.minI <= value && value <= e.maxI
	case types.OpNE:
		return true
	default:
		return true
	}
}

func searchFloat(e smaEntry, op types.CompareOp, value float64) bool {
	switch op {
	case types.OpGT:
		return e.maxF > value
	case types.OpGE:
		return e.maxF >= value
	case types.OpLT:
		return e.minF < value
	case types.OpLE:
		return e.minF <= value
	case types.OpEQ:
		return e.minF <= value && value <= e.maxF
	case types.OpNE:
		return true
	default:
		return true
	}
}

// OK reports whether the column's entry was successfully constructed
// (i.e. whether Select may consult it at all — spec §4.2: "a Select
// consults metadata only when all entries for the column report OK").
func (m *BlockMetadata) OK(colIdx int) bool {
	return m.entries[colIdx].status == smaOK
}
