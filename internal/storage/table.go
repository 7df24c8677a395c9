package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/types"
)

// slot identifies a row's physical location within its block.
type slot struct {
	block BlockID
	index int
}

// Table is an ordered collection of blocks under a shared schema (spec §3
// "Table"). Block creation and insert-pool acquisition are serialized by
// two independent mutexes, acquired independently and never nested in the
// opposite order (spec §5).
type Table struct {
	Name           string
	Schema         *types.Schema
	BlockCapacity  int

	blockMu sync.Mutex
	blocks  map[BlockID]*Block
	order   []BlockID // insertion order, for stable iteration/offsets
	nextID  BlockID

	poolMu     sync.Mutex
	insertPool map[BlockID]bool

	dirMu     sync.RWMutex
	directory map[RowID]slot
	nextRowID RowID

	rowsMu  sync.RWMutex
	numRows int

	dirtyMu sync.Mutex
	dirty   map[BlockID]bool // blocks mutated since last GenerateIndices
}

// NewTable creates an empty table. blockCapacityBytes is the fixed
// per-block byte capacity (spec §6.4 default: 1<<20).
func NewTable(name string, schema *types.Schema, blockCapacityBytes int) *Table {
	return &Table{
		Name:          name,
		Schema:        schema,
		BlockCapacity: blockCapacityBytes,
		blocks:        make(map[BlockID]*Block),
		insertPool:    make(map[BlockID]bool),
		directory:     make(map[RowID]slot),
		dirty:         make(map[BlockID]bool),
	}
}

// NumRows returns the table's total live-row count.
func (t *Table) NumRows() int {
	t.rowsMu.RLock()
	defer t.rowsMu.RUnlock()
	return t.numRows
}

// NumBlocks returns the number of blocks currently in the table.
func (t *Table) NumBlocks() int {
	t.blockMu.Lock()
	defer t.blockMu.Unlock()
	return len(t.order)
}

// createBlockLocked allocates a fresh block and admits it to the table; the
// caller adds it to the insert pool. Must be called with blockMu held.
func (t *Table) createBlockLocked() *Block {
	id := t.nextID
	t.nextID++
	b := NewBlock(id, t.Schema, t.BlockCapacity)
	t.blocks[id] = b
	t.order = append(t.order, id)
	return b
}

// acquireInsertTarget returns a block with room for at least
// recordBytesEstimate, creating one if the insert pool is empty.
func (t *Table) acquireInsertTarget(recordBytesEstimate int) *Block {
	t.poolMu.Lock()
	for id := range t.insertPool {
		b := t.blocks[id]
		if b.HasRoom(recordBytesEstimate) {
			t.poolMu.Unlock()
			return b
		}
		delete(t.insertPool, id)
	}
	t.poolMu.Unlock()

	t.blockMu.Lock()
	b := t.createBlockLocked()
	t.blockMu.Unlock()

	t.poolMu.Lock()
	t.insertPool[b.ID] = true
	t.poolMu.Unlock()
	return b
}

func (t *Table) markFull(b *Block) {
	if !b.HasRoom(t.Schema.FixedRecordWidth()) {
		t.poolMu.Lock()
		delete(t.insertPool, b.ID)
		t.poolMu.Unlock()
	}
}

func (t *Table) markDirty(id BlockID) {
	t.dirtyMu.Lock()
	t.dirty[id] = true
	t.dirtyMu.Unlock()
}

// InsertRecord inserts one record (field order matching the schema) and
// returns its new external row id.
func (t *Table) InsertRecord(fields []FieldEntry) (RowID, error) {
	estimate := t.Schema.FixedRecordWidth()
	for i, f := range t.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			estimate += len(fields[i].Raw)
		}
	}

	b := t.acquireInsertTarget(estimate)
	idx, err := b.InsertRecord(fields)
	if err != nil {
		return 0, err
	}

	t.dirMu.Lock()
	id := t.nextRowID
	t.nextRowID++
	t.directory[id] = slot{block: b.ID, index: idx}
	t.dirMu.Unlock()

	b.SetRowID(idx, id)
	t.markFull(b)
	t.markDirty(b.ID)

	t.rowsMu.Lock()
	t.numRows++
	t.rowsMu.Unlock()

	return id, nil
}

// InsertRecords bulk-inserts column-major data, splitting the input across
// as many blocks as needed (spec §4.3: walk row-by-row accumulating a
// record-size estimate; flush into the current block when it would
// overflow, then create the next block).
func (t *Table) InsertRecords(cols []ColumnData) error {
	if len(cols) != len(t.Schema.Fields) {
		return fmt.Errorf("%w: table bulk insert expects %d columns, got %d", hustleerr.ErrSchema, len(t.Schema.Fields), len(cols))
	}
	n := 0
	for i, f := range t.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			n = len(cols[i].StringValues)
		} else {
			n = len(cols[i].FixedValues)
		}
		break
	}

	fixedWidth := t.Schema.FixedRecordWidth()
	start := 0
	for start < n {
		b := t.acquireInsertTarget(fixedWidth)

		end := start
		used := b.numBytesUsed
		for end < n {
			rowBytes := fixedWidth
			for i, f := range t.Schema.Fields {
				if f.Kind.IsVariableWidth() {
					rowBytes += len(cols[i].StringValues[end])
				}
			}
			if used+rowBytes > b.Capacity {
				break
			}
			used += rowBytes
			end++
		}
		if end == start {
			// A single record doesn't fit even in an empty block's
			// capacity; insufficient-space is fatal to this insert.
			return hustleerr.ErrNotEnoughSpace
		}

		slice := make([]ColumnData, len(cols))
		for i, f := range t.Schema.Fields {
			if f.Kind.IsVariableWidth() {
				slice[i] = ColumnData{StringValues: cols[i].StringValues[start:end]}
			} else {
				slice[i] = ColumnData{FixedValues: cols[i].FixedValues[start:end]}
			}
		}

		firstSlot, err := b.InsertRecords(slice)
		if err != nil {
			return err
		}
		firstSlotStart := firstSlot - (end - start) + 1

		t.dirMu.Lock()
		for j := 0; j < end-start; j++ {
			id := t.nextRowID
			t.nextRowID++
			t.directory[id] = slot{block: b.ID, index: firstSlotStart + j}
			b.SetRowID(firstSlotStart+j, id)
		}
		t.dirMu.Unlock()

		t.markFull(b)
		t.markDirty(b.ID)

		t.rowsMu.Lock()
		t.numRows += end - start
		t.rowsMu.Unlock()

		start = end
	}
	return nil
}

// Lookup resolves an external row id to its current (block, slot).
func (t *Table) Lookup(id RowID) (BlockID, int, bool) {
	t.dirMu.RLock()
	defer t.dirMu.RUnlock()
	s, ok := t.directory[id]
	return s.block, s.index, ok
}

// GetBlock returns the block with the given id.
func (t *Table) GetBlock(id BlockID) *Block {
	t.blockMu.Lock()
	defer t.blockMu.Unlock()
	return t.blocks[id]
}

// BlockIDs returns the table's block ids in insertion order.
func (t *Table) BlockIDs() []BlockID {
	t.blockMu.Lock()
	defer t.blockMu.Unlock()
	out := make([]BlockID, len(t.order))
	copy(out, t.order)
	return out
}

// BlockRowOffsets returns, for each block in insertion order, the prefix
// sum of the row counts (used slots, Block.NumRows) of all earlier blocks
// (spec §3, "block_row_offsets").
func (t *Table) BlockRowOffsets() map[BlockID]int {
	t.blockMu.Lock()
	defer t.blockMu.Unlock()
	offsets := make(map[BlockID]int, len(t.order))
	running := 0
	for _, id := range t.order {
		offsets[id] = running
		running += t.blocks[id].NumRows()
	}
	return offsets
}

// Update overwrites affectedColumns of row id with newValues. Columns that
// are fixed-width and unchanged in width are updated in place; any
// string-touching update performs delete-then-insert (spec §4.3).
func (t *Table) Update(id RowID, affectedColumns []string, newValues []FieldEntry, byteWidths []int) error {
	blockID, idx, ok := t.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: no such row id %d", hustleerr.ErrSchema, id)
	}
	b := t.GetBlock(blockID)

	touchesString := false
	for _, name := range affectedColumns {
		ci := t.Schema.IndexOf(name)
		if ci < 0 {
			return fmt.Errorf("%w: no such column %q", hustleerr.ErrSchema, name)
		}
		if t.Schema.Fields[ci].Kind.IsVariableWidth() {
			touchesString = true
			break
		}
	}

	if !touchesString {
		for i, name := range affectedColumns {
			ci := t.Schema.IndexOf(name)
			if err := b.UpdateColumnValue(ci, idx, newValues[i].Raw, byteWidths[i]); err != nil {
				return err
			}
		}
		t.markDirty(blockID)
		return nil
	}

	// Read the full current record, apply the update, delete, re-insert.
	full := t.readFullRecord(b, idx)
	for i, name := range affectedColumns {
		ci := t.Schema.IndexOf(name)
		full[ci] = newValues[i]
	}
	if err := t.Delete(id); err != nil {
		return err
	}
	_, err := t.InsertRecord(full)
	return err
}

func (t *Table) readFullRecord(b *Block, idx int) []FieldEntry {
	out := make([]FieldEntry, len(t.Schema.Fields))
	for i, f := range t.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			v := b.StringAt(i, idx)
			cp := make([]byte, len(v))
			copy(cp, v)
			out[i] = FieldEntry{Raw: cp}
		} else {
			v := b.RawAt(i, idx)
			cp := make([]byte, len(v))
			copy(cp, v)
			out[i] = FieldEntry{Raw: cp}
		}
	}
	return out
}

// Delete removes row id: clears its valid bit, then rebuilds the owning
// block by compacting away invalid rows into a fresh same-capacity block
// (spec §4.3). Surviving row ids keep resolving to the same logical
// values even though their slots may move.
func (t *Table) Delete(id RowID) error {
	blockID, idx, ok := t.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: no such row id %d", hustleerr.ErrSchema, id)
	}
	old := t.GetBlock(blockID)
	old.SetValid(idx, false)

	cols := make([]ColumnData, len(t.Schema.Fields))
	validMask := make([]bool, old.numRows)
	rowMap := make([]RowID, old.numRows)
	for r := 0; r < old.numRows; r++ {
		validMask[r] = old.Valid(r)
		rowMap[r] = old.RowIDAt(r)
	}
	for i, f := range t.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			vals := make([][]byte, old.numRows)
			for r := 0; r < old.numRows; r++ {
				vals[r] = old.StringAt(i, r)
			}
			cols[i] = ColumnData{StringValues: vals}
		} else {
			vals := make([][]byte, old.numRows)
			for r := 0; r < old.numRows; r++ {
				vals[r] = old.RawAt(i, r)
			}
			cols[i] = ColumnData{FixedValues: vals}
		}
	}

	fresh := NewBlock(blockID, t.Schema, t.BlockCapacity)
	t.dirMu.Lock()
	err := fresh.InsertRecordsMasked(cols, rowMap, validMask, func(newSlot int, rowID RowID) {
		t.directory[rowID] = slot{block: blockID, index: newSlot}
	})
	delete(t.directory, id)
	t.dirMu.Unlock()
	if err != nil {
		return err
	}

	t.blockMu.Lock()
	t.blocks[blockID] = fresh
	t.blockMu.Unlock()

	if fresh.HasRoom(t.Schema.FixedRecordWidth()) {
		t.poolMu.Lock()
		t.insertPool[blockID] = true
		t.poolMu.Unlock()
	}

	t.rowsMu.Lock()
	t.numRows--
	t.rowsMu.Unlock()

	t.markDirty(blockID)
	return nil
}

// ForEachBatch partitions the table's block id space into roughly
// runtime.NumCPU() chunks and invokes fn(batchIndex, blockIDs) once per
// chunk, in parallel (spec §4.3: "the standard fan-out used by Select").
func (t *Table) ForEachBatch(ctx context.Context, fn func(batchIndex int, blockIDs []BlockID) error) error {
	ids := t.BlockIDs()
	if len(ids) == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers < 1 {
		workers = 1
	}
	batchSize := (len(ids) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for batch := 0; batch*batchSize < len(ids); batch++ {
		lo := batch * batchSize
		hi := lo + batchSize
		if hi > len(ids) {
			hi = len(ids)
		}
		batchIdx := batch
		chunk := ids[lo:hi]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(batchIdx, chunk)
		})
	}
	return g.Wait()
}

// GenerateIndices rebuilds SMA metadata for every block that was mutated
// since the last call (spec §4.2 "generate_indices"; §9 "Metadata dirty
// list" — tracked here as an explicit per-table dirty set rather than the
// source's dormant start/end-of-query signal).
func (t *Table) GenerateIndices() {
	t.dirtyMu.Lock()
	dirty := t.dirty
	t.dirty = make(map[BlockID]bool)
	t.dirtyMu.Unlock()

	for id := range dirty {
		b := t.GetBlock(id)
		if b != nil {
			b.InvalidateMetadata()
			b.Metadata()
		}
	}
}

// ChunkedColumn exposes column colName as the virtual concatenation of its
// per-block arrays across every block of the table, without copying
// (spec §3 GLOSSARY "Chunked column").
type ChunkedColumn struct {
	table   *Table
	colIdx  int
	blockIDs []BlockID
}

// GetColumn returns the chunked view of the named column.
func (t *Table) GetColumn(name string) (*ChunkedColumn, error) {
	idx := t.Schema.IndexOf(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no such column %q", hustleerr.ErrSchema, name)
	}
	return &ChunkedColumn{table: t, colIdx: idx, blockIDs: t.BlockIDs()}, nil
}

// NumChunks returns the number of blocks backing this chunked column.
func (c *ChunkedColumn) NumChunks() int { return len(c.blockIDs) }

// ChunkBlockID returns the block id of chunk i.
func (c *ChunkedColumn) ChunkBlockID(i int) BlockID { return c.blockIDs[i] }

// ChunkLen returns the row count of chunk i.
func (c *ChunkedColumn) ChunkLen(i int) int {
	return c.table.GetBlock(c.blockIDs[i]).NumRows()
}

// ColumnIndex returns the schema index this chunked column addresses.
func (c *ChunkedColumn) ColumnIndex() int { return c.colIdx }

// Int64At reads the widened int64 value of global row position within the
// chunk pair (blockIdxInChunks, rowInBlock).
func (c *ChunkedColumn) Int64At(chunkIdx, row int) int64 {
	return c.table.GetBlock(c.blockIDs[chunkIdx]).Int64At(c.colIdx, row)
}

// Float64At is the float64 counterpart of Int64At.
func (c *ChunkedColumn) Float64At(chunkIdx, row int) float64 {
	return c.table.GetBlock(c.blockIDs[chunkIdx]).Float64At(c.colIdx, row)
}

// StringAt reads the raw string bytes at (chunkIdx, row).
func (c *ChunkedColumn) StringAt(chunkIdx, row int) []byte {
	return c.table.GetBlock(c.blockIDs[chunkIdx]).StringAt(c.colIdx, row)
}
