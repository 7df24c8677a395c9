// Package lazytable implements the lazy view abstraction (spec §3/§4.4):
// a (table, filter, indices) tuple whose active rows are those satisfying
// filter AND listed in indices, materialized only on demand.
package lazytable

import (
	"fmt"

	"github.com/hustledb/hustle/internal/buffer"
	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

// HashEntry is one bucket of a hash table built on a lazy view by
// Select-Build-Hash (spec §4.9): value -> the rows carrying it.
type HashEntry struct {
	Row     int // global row position over the chunked column
	BlockID storage.BlockID
}

// HashTable maps a join column's int64 values to the rows that carry
// them. Built single-writer, then read-only during probe (spec §9
// "Hash table concurrency").
type HashTable map[int64][]HashEntry

// LazyTable is the engine's lazy view: a table plus an optional filter
// (one boolean per physical row, chunked like the table) and an optional
// index array restricting which global row positions are live. Either may
// be nil, meaning "no restriction". Each entry of Indices carries its
// originating block id (RowRef.Block), so no separate index-chunk array is
// kept.
type LazyTable struct {
	Table *storage.Table

	// Filter maps a block id to one *buffer.Bitmap, or is nil for "no
	// filter"; a block with no entry in the map is unrestricted.
	Filter map[storage.BlockID]*buffer.Bitmap

	// Indices holds explicit global row positions (as (blockID, slot)
	// pairs) still alive, or nil for "no restriction".
	Indices []RowRef

	Hash HashTable
}

// RowRef addresses one physical row by (block, slot).
type RowRef struct {
	Block storage.BlockID
	Slot  int
}

// New returns an unrestricted lazy view over t.
func New(t *storage.Table) *LazyTable {
	return &LazyTable{Table: t}
}

// Clone returns a shallow copy sharing the same table and hash table but
// independent Filter/Indices references (operators update a view's
// restrictions without mutating siblings that haven't been touched yet).
func (lt *LazyTable) Clone() *LazyTable {
	return &LazyTable{Table: lt.Table, Filter: lt.Filter, Indices: lt.Indices, Hash: lt.Hash}
}

// HasIndices reports whether the view already carries an explicit index
// restriction.
func (lt *LazyTable) HasIndices() bool { return lt.Indices != nil }

// LiveRows enumerates every row position currently alive under this view:
// filter applied, then indices intersected. With Indices set, rows come in
// Indices order; otherwise in Table.BlockIDs order, then by slot.
func (lt *LazyTable) LiveRows() []RowRef {
	if lt.Indices != nil {
		if lt.Filter == nil {
			return lt.Indices
		}
		out := make([]RowRef, 0, len(lt.Indices))
		for _, r := range lt.Indices {
			if lt.rowPasses(r) {
				out = append(out, r)
			}
		}
		return out
	}

	var out []RowRef
	for _, id := range lt.Table.BlockIDs() {
		b := lt.Table.GetBlock(id)
		n := b.NumRows()
		for slot := 0; slot < n; slot++ {
			if !b.Valid(slot) {
				continue
			}
			ref := RowRef{Block: id, Slot: slot}
			if lt.rowPasses(ref) {
				out = append(out, ref)
			}
		}
	}
	return out
}

func (lt *LazyTable) rowPasses(r RowRef) bool {
	b := lt.Table.GetBlock(r.Block)
	if !b.Valid(r.Slot) {
		return false
	}
	if lt.Filter == nil {
		return true
	}
	bm, ok := lt.Filter[r.Block]
	if !ok {
		return true
	}
	return bm.Get(r.Slot)
}

// MaterializedColumn is a gathered, concrete column value for one
// requested column reference: exactly one of Int64s/Float64s/Strings is
// populated, depending on the column's kind.
type MaterializedColumn struct {
	Name    string
	Int64s  []int64
	Float64s []float64
	Strings [][]byte
}

// Materialize collapses the view's filter and indices and gathers the
// named columns into concrete arrays (spec §4.4).
func (lt *LazyTable) Materialize(columns []string) ([]MaterializedColumn, error) {
	rows := lt.LiveRows()
	out := make([]MaterializedColumn, len(columns))
	for ci, name := range columns {
		idx := lt.Table.Schema.IndexOf(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: no such column %q", hustleerr.ErrSchema, name)
		}
		f := lt.Table.Schema.Fields[idx]
		mc := MaterializedColumn{Name: name}
		switch {
		case f.Kind.IsVariableWidth():
			mc.Strings = make([][]byte, len(rows))
			for i, r := range rows {
				mc.Strings[i] = lt.Table.GetBlock(r.Block).StringAt(idx, r.Slot)
			}
		case f.Kind == types.KindFloat64:
			mc.Float64s = make([]float64, len(rows))
			for i, r := range rows {
				mc.Float64s[i] = lt.Table.GetBlock(r.Block).Float64At(idx, r.Slot)
			}
		default:
			mc.Int64s = make([]int64, len(rows))
			for i, r := range rows {
				mc.Int64s[i] = lt.Table.GetBlock(r.Block).Int64At(idx, r.Slot)
			}
		}
		out[ci] = mc
	}
	return out, nil
}
