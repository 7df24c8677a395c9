// Package ipc persists blocks as Arrow IPC file-format record batches
// (spec §6.1): a length-prefixed schema followed by repeated batches. On
// load, each batch's rows are bulk-inserted with Table.InsertRecords, which
// packs them into blocks of the given capacity: a batch may span several
// blocks, and a block left with room also takes rows of the next batch, so
// batches and blocks do not correspond one to one. Every loaded row is
// valid (deleted rows are never persisted — a block is compacted before it
// is written). On store, every block's buffers are truncated to their used
// size first.
package ipc

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

var alloc = memory.NewGoAllocator()

// ToArrowSchema converts a Hustle schema into its Arrow equivalent.
func ToArrowSchema(s *types.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(f types.Field) arrow.DataType {
	switch f.Kind {
	case types.KindInt8:
		return arrow.PrimitiveTypes.Int8
	case types.KindInt16:
		return arrow.PrimitiveTypes.Int16
	case types.KindInt32:
		return arrow.PrimitiveTypes.Int32
	case types.KindInt64:
		return arrow.PrimitiveTypes.Int64
	case types.KindUint8:
		return arrow.PrimitiveTypes.Uint8
	case types.KindUint16:
		return arrow.PrimitiveTypes.Uint16
	case types.KindUint32:
		return arrow.PrimitiveTypes.Uint32
	case types.KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case types.KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case types.KindFixedBinary:
		return &arrow.FixedSizeBinaryType{ByteWidth: f.BinaryWidth}
	case types.KindString:
		return arrow.BinaryTypes.String
	default:
		return arrow.Null
	}
}

// WriteTable writes every block of t, in block order, as one Arrow IPC
// file-format batch each, truncating each block's buffers to their used
// size before writing (spec §6.1 "On store").
func WriteTable(w io.Writer, t *storage.Table) error {
	schema := ToArrowSchema(t.Schema)
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	if err != nil {
		return fmt.Errorf("%w: opening arrow file writer: %v", hustleerr.ErrIO, err)
	}
	defer fw.Close()

	for _, id := range t.BlockIDs() {
		b := t.GetBlock(id)
		b.TruncateBuffers()
		rec, err := blockToRecord(schema, t.Schema, b)
		if err != nil {
			return err
		}
		if err := fw.Write(rec); err != nil {
			rec.Release()
			return fmt.Errorf("%w: writing batch for block %d: %v", hustleerr.ErrIO, id, err)
		}
		rec.Release()
	}
	return nil
}

func blockToRecord(aschema *arrow.Schema, schema *types.Schema, b *storage.Block) (array.Record, error) {
	n := b.NumRows()
	cols := make([]array.Interface, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = buildArrowColumn(f, b, i, n)
	}
	rec := array.NewRecord(aschema, cols, int64(n))
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}

func buildArrowColumn(f types.Field, b *storage.Block, colIdx, n int) array.Interface {
	switch f.Kind {
	case types.KindString:
		bld := array.NewStringBuilder(alloc)
		defer bld.Release()
		for row := 0; row < n; row++ {
			if !b.Valid(row) {
				bld.AppendNull()
				continue
			}
			bld.Append(string(b.StringAt(colIdx, row)))
		}
		return bld.NewArray()
	case types.KindFloat64:
		bld := array.NewFloat64Builder(alloc)
		defer bld.Release()
		for row := 0; row < n; row++ {
			if !b.Valid(row) {
				bld.AppendNull()
				continue
			}
			bld.Append(b.Float64At(colIdx, row))
		}
		return bld.NewArray()
	default:
		bld := array.NewInt64Builder(alloc)
		defer bld.Release()
		for row := 0; row < n; row++ {
			if !b.Valid(row) {
				bld.AppendNull()
				continue
			}
			bld.Append(b.Int64At(colIdx, row))
		}
		return bld.NewArray()
	}
}

// ReadTable reads an Arrow IPC file produced by WriteTable back into a
// fresh table of the given name and block capacity. Each batch's values are
// copied out and inserted with Table.InsertRecords, so block boundaries
// follow the block capacity rather than the batch boundaries; every loaded
// row is valid.
func ReadTable(r io.ReaderAt, name string, blockCapacityBytes int) (*storage.Table, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(alloc))
	if err != nil {
		return nil, fmt.Errorf("%w: opening arrow file reader: %v", hustleerr.ErrIO, err)
	}
	defer fr.Close()

	schema, err := FromArrowSchema(fr.Schema())
	if err != nil {
		return nil, err
	}
	t := storage.NewTable(name, schema, blockCapacityBytes)

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("%w: reading batch %d: %v", hustleerr.ErrIO, i, err)
		}
		cols, err := recordToColumnData(schema, rec)
		if err != nil {
			return nil, err
		}
		if err := t.InsertRecords(cols); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromArrowSchema converts an Arrow schema back into a Hustle schema.
func FromArrowSchema(a *arrow.Schema) (*types.Schema, error) {
	fields := make([]types.Field, a.NumFields())
	for i := 0; i < a.NumFields(); i++ {
		af := a.Field(i)
		k, width, err := fromArrowType(af.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = types.Field{Name: af.Name, Kind: k, BinaryWidth: width}
	}
	return types.NewSchema(fields...)
}

func fromArrowType(t arrow.DataType) (types.Kind, int, error) {
	switch dt := t.(type) {
	case *arrow.Int8Type:
		return types.KindInt8, 0, nil
	case *arrow.Int16Type:
		return types.KindInt16, 0, nil
	case *arrow.Int32Type:
		return types.KindInt32, 0, nil
	case *arrow.Int64Type:
		return types.KindInt64, 0, nil
	case *arrow.Uint8Type:
		return types.KindUint8, 0, nil
	case *arrow.Uint16Type:
		return types.KindUint16, 0, nil
	case *arrow.Uint32Type:
		return types.KindUint32, 0, nil
	case *arrow.Uint64Type:
		return types.KindUint64, 0, nil
	case *arrow.Float64Type:
		return types.KindFloat64, 0, nil
	case *arrow.StringType:
		return types.KindString, 0, nil
	case *arrow.FixedSizeBinaryType:
		return types.KindFixedBinary, dt.ByteWidth, nil
	default:
		return types.KindInvalid, 0, fmt.Errorf("%w: unsupported arrow type %s", hustleerr.ErrSchema, t.Name())
	}
}

func recordToColumnData(schema *types.Schema, rec array.Record) ([]storage.ColumnData, error) {
	out := make([]storage.ColumnData, len(schema.Fields))
	n := int(rec.NumRows())
	for i, f := range schema.Fields {
		col := rec.Column(i)
		switch f.Kind {
		case types.KindString:
			arr := col.(*array.String)
			vals := make([][]byte, n)
			for r := 0; r < n; r++ {
				vals[r] = []byte(arr.Value(r))
			}
			out[i] = storage.ColumnData{StringValues: vals}
		case types.KindFloat64:
			arr := col.(*array.Float64)
			vals := make([][]byte, n)
			for r := 0; r < n; r++ {
				raw := make([]byte, 8)
				putFloat64LE(raw, arr.Value(r))
				vals[r] = raw
			}
			out[i] = storage.ColumnData{FixedValues: vals}
		default:
			vals := make([][]byte, n)
			for r := 0; r < n; r++ {
				v := int64ValueAt(col, r)
				vals[r] = encodeLE(v, f.Width())
			}
			out[i] = storage.ColumnData{FixedValues: vals}
		}
	}
	return out, nil
}

func int64ValueAt(col array.Interface, r int) int64 {
	switch arr := col.(type) {
	case *array.Int8:
		return int64(arr.Value(r))
	case *array.Int16:
		return int64(arr.Value(r))
	case *array.Int32:
		return int64(arr.Value(r))
	case *array.Int64:
		return arr.Value(r)
	case *array.Uint8:
		return int64(arr.Value(r))
	case *array.Uint16:
		return int64(arr.Value(r))
	case *array.Uint32:
		return int64(arr.Value(r))
	case *array.Uint64:
		return int64(arr.Value(r))
	default:
		return 0
	}
}

func encodeLE(v int64, width int) []byte {
	out := make([]byte, width)
	for i := 0; i < width && i < 8; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}

func putFloat64LE(dst []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (8 * uint(i)))
	}
}
