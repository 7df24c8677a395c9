package storage

import (
	"fmt"

	"github.com/hustledb/hustle/internal/buffer"
	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/types"
)

// BlockID identifies a block within its owning table's dense id space.
type BlockID uint32

// RowID is a table-level external row identifier, stable across block
// rebuilds (spec §4.3's delete-compaction rebuild preserves every
// surviving row's RowID even though its (block, slot) may change).
type RowID uint64

// Block is one physical storage unit holding one chunk of every column of
// one schema, a valid bitmap, and a row-id mapping (spec §3 "Block").
type Block struct {
	ID       BlockID
	Schema   *types.Schema
	Capacity int // capacity_bytes

	columns   []*column
	valid     *buffer.Bitmap
	rowIDMap  []RowID // slot -> external row id

	numRows      int
	numBytesUsed int

	meta      *BlockMetadata // nil until (re)built
	metaDirty bool
}

// NewBlock allocates an empty block with room for the given byte capacity.
func NewBlock(id BlockID, schema *types.Schema, capacityBytes int) *Block {
	cols := make([]*column, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = newColumn(f)
	}
	return &Block{
		ID:        id,
		Schema:    schema,
		Capacity:  capacityBytes,
		columns:   cols,
		valid:     buffer.NewBitmap(0),
		metaDirty: true,
	}
}

// NumRows returns the block's live+dead row count (slots used).
func (b *Block) NumRows() int { return b.numRows }

// NumBytesUsed returns the block's current logical byte usage.
func (b *Block) NumBytesUsed() int { return b.numBytesUsed }

// HasRoom reports whether a record of fixedWidth bytes (the schema's fixed
// fields) plus the given variable-length bytes would still fit.
func (b *Block) HasRoom(recordBytesEstimate int) bool {
	return b.Capacity-b.numBytesUsed >= recordBytesEstimate
}

// Valid returns the valid bit for slot row.
func (b *Block) Valid(row int) bool { return b.valid.Get(row) }

// SetValid sets the valid bit for slot row.
func (b *Block) SetValid(row int, v bool) {
	b.valid.Set(row, v)
	b.metaDirty = true
}

// RowIDAt returns the external row id stored at slot.
func (b *Block) RowIDAt(slot int) RowID { return b.rowIDMap[slot] }

// FieldEntry is one decoded field ready for Block.InsertRecord: either a
// fixed-width value (native-endian raw bytes, zero-extended from
// byteWidth) or a string value.
type FieldEntry struct {
	// Raw holds the native-width, little-endian bytes for fixed-width
	// fields (already zero-extended/byte-reversed by the caller — see
	// serialtype.go for the §6.3 wire decode that produces these), or the
	// raw string bytes for string fields.
	Raw []byte
}

// InsertRecord appends one record (one value per schema field, in field
// order) to the block. Returns hustleerr.ErrNotEnoughSpace if the record
// would exceed Capacity; the table recovers by trying another block.
func (b *Block) InsertRecord(fields []FieldEntry) (int, error) {
	if len(fields) != len(b.columns) {
		return 0, fmt.Errorf("%w: block insert expects %d fields, got %d", hustleerr.ErrSchema, len(b.columns), len(fields))
	}

	recordBytes := 0
	for i, f := range b.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			recordBytes += len(fields[i].Raw)
		} else {
			recordBytes += f.Width()
		}
	}
	if !b.HasRoom(recordBytes) {
		return 0, hustleerr.ErrNotEnoughSpace
	}

	row := b.numRows
	for i, col := range b.columns {
		if col.kind.IsVariableWidth() {
			col.appendString(fields[i].Raw)
		} else {
			col.appendFixed(fields[i].Raw)
		}
	}
	b.valid.PushTrue()
	b.rowIDMap = append(b.rowIDMap, 0)
	b.numRows++
	b.numBytesUsed += recordBytes
	b.metaDirty = true
	return row, nil
}

// SetRowID records the external row id assigned to slot (the table does
// this right after InsertRecord succeeds).
func (b *Block) SetRowID(slot int, id RowID) {
	b.rowIDMap[slot] = id
}

// ColumnData is one column's worth of bulk input for InsertRecords: either
// FixedValues (native-width raw bytes, one FixedWidth()-sized slice per
// row) or StringValues.
type ColumnData struct {
	FixedValues  [][]byte
	StringValues [][]byte
}

// InsertRecords bulk-inserts rows from column-major data (spec §4.1: "For
// each column, resize its buffers once, then copy slice-wise"). All
// ColumnData entries must have equal length. Returns the last inserted row
// index, or -1 if cols is empty or has zero rows.
func (b *Block) InsertRecords(cols []ColumnData) (int, error) {
	if len(cols) != len(b.columns) {
		return -1, fmt.Errorf("%w: block bulk insert expects %d columns, got %d", hustleerr.ErrSchema, len(b.columns), len(cols))
	}
	n := 0
	for i, f := range b.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			n = len(cols[i].StringValues)
		} else {
			n = len(cols[i].FixedValues)
		}
		break
	}
	if n == 0 {
		return -1, nil
	}

	startRow := b.numRows
	for i, col := range b.columns {
		if col.kind.IsVariableWidth() {
			for _, v := range cols[i].StringValues {
				col.appendString(v)
			}
		} else {
			for _, v := range cols[i].FixedValues {
				col.appendFixed(v)
			}
		}
	}
	for j := 0; j < n; j++ {
		b.valid.PushTrue()
		b.rowIDMap = append(b.rowIDMap, 0)
		b.numRows++
	}
	b.numBytesUsed = b.recomputeBytesUsed()
	b.metaDirty = true
	return startRow + n - 1, nil
}

// InsertRecordsMasked bulk-inserts only the rows where validMask is set,
// compacting away invalid rows while rewriting the table's row-id
// directory for every admitted row (spec §4.1 / §4.3: this is the
// mechanism behind Table.Delete's compacting block rebuild).
//
// rowMap[srcPos] is the original external row id of source row srcPos;
// onInsert(slot, rowID) is invoked once per admitted row so the caller
// (Table) can update its directory atomically with the block write.
func (b *Block) InsertRecordsMasked(cols []ColumnData, rowMap []RowID, validMask []bool, onInsert func(slot int, id RowID)) error {
	if len(cols) != len(b.columns) {
		return fmt.Errorf("%w: block masked insert expects %d columns, got %d", hustleerr.ErrSchema, len(b.columns), len(cols))
	}
	total := len(validMask)
	for srcPos := 0; srcPos < total; srcPos++ {
		if !validMask[srcPos] {
			continue
		}
		fields := make([]FieldEntry, len(b.columns))
		for i, f := range b.Schema.Fields {
			if f.Kind.IsVariableWidth() {
				fields[i] = FieldEntry{Raw: cols[i].StringValues[srcPos]}
			} else {
				fields[i] = FieldEntry{Raw: cols[i].FixedValues[srcPos]}
			}
		}
		slot, err := b.InsertRecord(fields)
		if err != nil {
			return err
		}
		id := rowMap[srcPos]
		b.SetRowID(slot, id)
		if onInsert != nil {
			onInsert(slot, id)
		}
	}
	return nil
}

// UpdateColumnValue overwrites the fixed-width slot (col, row) in place,
// zero-extending if byteWidth is narrower than the column's native width.
// String columns are never updated in place (spec §4.1); Table.Update
// performs a delete+insert instead.
func (b *Block) UpdateColumnValue(colIdx, row int, raw []byte, byteWidth int) error {
	col := b.columns[colIdx]
	if col.kind.IsVariableWidth() {
		return fmt.Errorf("%w: string column %d cannot be updated in place", hustleerr.ErrSchema, colIdx)
	}
	col.setFixed(row, raw, byteWidth)
	b.metaDirty = true
	return nil
}

// TruncateBuffers shrinks every buffer to its used size, preserving data.
// Invoked before flushing a block to disk (spec §4.1, §6.1).
func (b *Block) TruncateBuffers() {
	for _, c := range b.columns {
		c.truncate()
	}
}

// NumColumns returns the number of columns in the block's schema.
func (b *Block) NumColumns() int { return len(b.columns) }

// Int64At reads column colIdx row row as a widened int64 (numeric kinds
// only).
func (b *Block) Int64At(colIdx, row int) int64 { return b.columns[colIdx].int64At(row) }

// Float64At reads column colIdx row row as a float64 (KindFloat64 only).
func (b *Block) Float64At(colIdx, row int) float64 { return b.columns[colIdx].float64At(row) }

// StringAt reads column colIdx row row as raw string bytes.
func (b *Block) StringAt(colIdx, row int) []byte { return b.columns[colIdx].getString(row) }

// RawAt reads the raw native-width bytes of a fixed-width column's row.
func (b *Block) RawAt(colIdx, row int) []byte { return b.columns[colIdx].getFixed(row) }

func (b *Block) recomputeBytesUsed() int {
	total := 0
	for i, f := range b.Schema.Fields {
		if f.Kind.IsVariableWidth() {
			total += b.columns[i].str.ByteLen()
		} else {
			total += b.columns[i].Len() * f.Width()
		}
	}
	return total
}

// Metadata returns the block's current SMA metadata, rebuilding it first
// if it has been invalidated by a mutation since the last build (spec §4.2:
// "mutation invalidates the entry").
func (b *Block) Metadata() *BlockMetadata {
	if b.meta == nil || b.metaDirty {
		b.meta = buildBlockMetadata(b)
		b.metaDirty = false
	}
	return b.meta
}

// InvalidateMetadata marks the block's SMA stale without rebuilding it;
// the next Metadata() call rebuilds. Used by the table's dirty-block
// tracking (spec §9 "Metadata dirty list").
func (b *Block) InvalidateMetadata() { b.metaDirty = true }
