package operators

import (
	"context"
	"math"
	"sync"

	"github.com/hustledb/hustle/internal/buffer"
	"github.com/hustledb/hustle/internal/lazytable"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

// Select evaluates a predicate tree over a base table, producing a filtered
// lazy view appended to the input result (spec §4.5).
type Select struct {
	Table     *storage.Table
	Predicate *Predicate
}

// Run implements Operator.
func (s *Select) Run(in Result) (Result, error) {
	filter, err := EvalPredicate(context.Background(), s.Table, s.Predicate)
	if err != nil {
		return nil, err
	}
	lt := lazytable.New(s.Table)
	lt.Filter = filter
	out := make(Result, len(in), len(in)+1)
	copy(out, in)
	return append(out, lt), nil
}

// EvalPredicate computes one bitmap per block of t for the given predicate
// tree, fanning out across blocks via Table.ForEachBatch (spec §4.5 "For
// each block of the table in parallel").
func EvalPredicate(ctx context.Context, t *storage.Table, pred *Predicate) (map[storage.BlockID]*buffer.Bitmap, error) {
	out := make(map[storage.BlockID]*buffer.Bitmap)
	var mu sync.Mutex

	err := t.ForEachBatch(ctx, func(_ int, blockIDs []storage.BlockID) error {
		for _, id := range blockIDs {
			b := t.GetBlock(id)
			bm := evalBlock(t.Schema, b, pred)
			mu.Lock()
			out[id] = bm
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// evalBlock evaluates pred over one block, returning a per-row bitmap.
func evalBlock(schema *types.Schema, b *storage.Block, pred *Predicate) *buffer.Bitmap {
	if pred.IsLeaf {
		return evalLeaf(schema, b, pred)
	}

	left := evalBlock(schema, b, pred.Left)
	if pred.Connective == types.ConnNone || pred.Right == nil {
		return left
	}
	right := evalBlock(schema, b, pred.Right)
	switch pred.Connective {
	case types.ConnAnd:
		left.And(right)
	case types.ConnOr:
		left.Or(right)
	}
	return left
}

func evalLeaf(schema *types.Schema, b *storage.Block, pred *Predicate) *buffer.Bitmap {
	n := b.NumRows()
	colIdx := schema.IndexOf(pred.Column)
	f := schema.Fields[colIdx]

	if f.Kind.IsNumeric() && schema.Fields[colIdx].Kind != types.KindFloat64 {
		meta := b.Metadata()
		if meta.OK(colIdx) && !pred.HasValue2 {
			if !meta.Search(colIdx, pred.Op, pred.Value) {
				return buffer.NewBitmap(n)
			}
		}
	} else if f.Kind == types.KindFloat64 {
		meta := b.Metadata()
		if meta.OK(colIdx) && !pred.HasValue2 {
			if !meta.SearchFloat(colIdx, pred.Op, math.Float64frombits(uint64(pred.Value))) {
				return buffer.NewBitmap(n)
			}
		}
	}

	out := buffer.NewBitmap(n)
	for row := 0; row < n; row++ {
		if !b.Valid(row) {
			continue
		}
		if rowMatches(b, colIdx, f, pred, row) {
			out.Set(row, true)
		}
	}
	return out
}

func rowMatches(b *storage.Block, colIdx int, f types.Field, pred *Predicate, row int) bool {
	if f.Kind.IsVariableWidth() {
		return stringMatches(b.StringAt(colIdx, row), pred)
	}
	if f.Kind == types.KindFloat64 {
		v := b.Float64At(colIdx, row)
		return floatMatches(v, pred)
	}
	v := b.Int64At(colIdx, row)
	return intMatches(v, pred)
}

func intMatches(v int64, pred *Predicate) bool {
	if pred.HasValue2 {
		// BETWEEN encoding (spec §4.5 / §9): (val - lo) <= (hi - lo) as an
		// unsigned difference.
		return uint64(v-pred.Value) <= uint64(pred.Value2-pred.Value)
	}
	switch pred.Op {
	case types.OpEQ:
		return v == pred.Value
	case types.OpNE:
		return v != pred.Value
	case types.OpLT:
		return v < pred.Value
	case types.OpLE:
		return v <= pred.Value
	case types.OpGT:
		return v > pred.Value
	case types.OpGE:
		return v >= pred.Value
	default:
		return false
	}
}

func floatMatches(v float64, pred *Predicate) bool {
	lit := math.Float64frombits(uint64(pred.Value))
	if pred.HasValue2 {
		lo := lit
		hi := math.Float64frombits(uint64(pred.Value2))
		return v >= lo && v <= hi
	}
	switch pred.Op {
	case types.OpEQ:
		return v == lit
	case types.OpNE:
		return v != lit
	case types.OpLT:
		return v < lit
	case types.OpLE:
		return v <= lit
	case types.OpGT:
		return v > lit
	case types.OpGE:
		return v >= lit
	default:
		return false
	}
}

func stringMatches(v []byte, pred *Predicate) bool {
	lit := encodedStringLiteral(pred)
	cmp := compareBytes(v, lit)
	switch pred.Op {
	case types.OpEQ:
		return cmp == 0
	case types.OpNE:
		return cmp != 0
	case types.OpLT:
		return cmp < 0
	case types.OpLE:
		return cmp <= 0
	case types.OpGT:
		return cmp > 0
	case types.OpGE:
		return cmp >= 0
	default:
		return false
	}
}

// SetStringLiteral attaches a raw-byte comparison literal to a leaf
// predicate built against a string column.
func SetStringLiteral(p *Predicate, lit []byte) { p.StringLiteral = lit }

func encodedStringLiteral(p *Predicate) []byte {
	return p.StringLiteral
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
