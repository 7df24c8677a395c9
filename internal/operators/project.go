package operators

import (
	"fmt"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

// OutputRef names one column of the output schema and the view/column it
// is sourced from within a working Result.
type OutputRef struct {
	OutputName string
	View       int
	Column     string
}

// Project materializes an operator result into a fresh physical table
// (spec §4.4 "Materializing an operator result"): it builds an output
// schema from the requested column references, gathers each reference's
// materialized column from its source lazy view, and concatenates them
// chunkwise into the output table's blocks.
func Project(result Result, refs []OutputRef, blockCapacityBytes int) (*storage.Table, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: project requires at least one output column", hustleerr.ErrSchema)
	}
	if blockCapacityBytes == 0 {
		blockCapacityBytes = 1 << 20
	}

	fields := make([]types.Field, len(refs))
	for i, ref := range refs {
		if ref.View < 0 || ref.View >= len(result) {
			return nil, fmt.Errorf("%w: output ref %q has out-of-range view %d", hustleerr.ErrSchema, ref.OutputName, ref.View)
		}
		idx := result[ref.View].Table.Schema.IndexOf(ref.Column)
		if idx < 0 {
			return nil, fmt.Errorf("%w: no such column %q on view %d", hustleerr.ErrSchema, ref.Column, ref.View)
		}
		f := result[ref.View].Table.Schema.Fields[idx]
		f.Name = ref.OutputName
		fields[i] = f
	}
	schema, err := types.NewSchema(fields...)
	if err != nil {
		return nil, err
	}

	out := storage.NewTable("projection", schema, blockCapacityBytes)

	cols := make([]storage.ColumnData, len(refs))
	numRows := -1
	for i, ref := range refs {
		lt := result[ref.View]
		rows := lt.LiveRows()
		if numRows == -1 {
			numRows = len(rows)
		}
		colIdx := lt.Table.Schema.IndexOf(ref.Column)
		f := lt.Table.Schema.Fields[colIdx]
		cd := storage.ColumnData{}
		if f.Kind.IsVariableWidth() {
			vals := make([][]byte, len(rows))
			for ri, r := range rows {
				vals[ri] = lt.Table.GetBlock(r.Block).StringAt(colIdx, r.Slot)
			}
			cd.StringValues = vals
		} else {
			vals := make([][]byte, len(rows))
			for ri, r := range rows {
				vals[ri] = lt.Table.GetBlock(r.Block).RawAt(colIdx, r.Slot)
			}
			cd.FixedValues = vals
		}
		cols[i] = cd
	}

	if numRows <= 0 {
		return out, nil
	}
	if err := out.InsertRecords(cols); err != nil {
		return nil, err
	}
	return out, nil
}
