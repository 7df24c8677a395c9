package operators

import (
	"fmt"
	"sort"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/lazytable"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/types"
)

// AggKind is the aggregate kernel requested of Aggregate.
type AggKind uint8

const (
	AggSum AggKind = iota
	AggMean
	AggCount // reserved, unimplemented (spec §4.8 "COUNT is reserved but unimplemented")
)

// Aggregate groups a lazy view by zero or more columns and computes one
// SUM or MEAN per group (spec §4.8).
type Aggregate struct {
	Input       *lazytable.LazyTable
	AggColumn   string
	Kind        AggKind
	GroupBy     []string
	OrderBy     []string
	BlockBytes  int // output table block capacity; 0 uses a 1MiB default
}

// groupValue is one row's value in a group-by column, tagged by kind so it
// can be compared and re-encoded without a runtime type switch at every
// call site.
type groupValue struct {
	kind types.Kind
	i    int64
	f    float64
	s    []byte
}

func (g groupValue) equal(o groupValue) bool {
	switch g.kind {
	case types.KindFloat64:
		return g.f == o.f
	case types.KindString:
		return compareBytes(g.s, o.s) == 0
	default:
		return g.i == o.i
	}
}

func (g groupValue) less(o groupValue) bool {
	switch g.kind {
	case types.KindFloat64:
		return g.f < o.f
	case types.KindString:
		return compareBytes(g.s, o.s) < 0
	default:
		return g.i < o.i
	}
}

func readGroupValue(lt *lazytable.LazyTable, colIdx int, f types.Field, r lazytable.RowRef) groupValue {
	b := lt.Table.GetBlock(r.Block)
	switch {
	case f.Kind.IsVariableWidth():
		v := b.StringAt(colIdx, r.Slot)
		cp := make([]byte, len(v))
		copy(cp, v)
		return groupValue{kind: f.Kind, s: cp}
	case f.Kind == types.KindFloat64:
		return groupValue{kind: f.Kind, f: b.Float64At(colIdx, r.Slot)}
	default:
		return groupValue{kind: f.Kind, i: b.Int64At(colIdx, r.Slot)}
	}
}

func encodeGroupValue(v groupValue, f types.Field) storage.FieldEntry {
	switch {
	case f.Kind.IsVariableWidth():
		return storage.FieldEntry{Raw: v.s}
	case f.Kind == types.KindFloat64:
		out := make([]byte, 8)
		putFloat64LE(out, v.f)
		return storage.FieldEntry{Raw: out}
	default:
		return storage.FieldEntry{Raw: encodeLE(v.i, f.Width())}
	}
}

// Run implements Operator. in is ignored; Aggregate's input is the lazy
// view supplied at construction.
func (a *Aggregate) Run(Result) (Result, error) {
	if a.Kind == AggCount {
		return nil, fmt.Errorf("%w: COUNT aggregate", hustleerr.ErrUnimplemented)
	}

	schema := a.Input.Table.Schema
	rows := a.Input.LiveRows()

	groupIdx := make([]int, len(a.GroupBy))
	groupFields := make([]types.Field, len(a.GroupBy))
	for i, name := range a.GroupBy {
		groupIdx[i] = schema.IndexOf(name)
		groupFields[i] = schema.Fields[groupIdx[i]]
	}
	aggIdx := schema.IndexOf(a.AggColumn)
	aggField := schema.Fields[aggIdx]

	// Per-row, per-group-column value (spec §4.8 stage 1 input).
	values := make([][]groupValue, len(a.GroupBy))
	for gi := range a.GroupBy {
		col := make([]groupValue, len(rows))
		for ri, r := range rows {
			col[ri] = readGroupValue(a.Input, groupIdx[gi], groupFields[gi], r)
		}
		values[gi] = col
	}

	orderSet := make(map[string]bool, len(a.OrderBy))
	for _, c := range a.OrderBy {
		orderSet[c] = true
	}

	// Unique values per group column (spec §4.8 stage 1): sorted ascending
	// when the column also appears in order-by, first-seen order otherwise.
	unique := make([][]groupValue, len(a.GroupBy))
	for gi, name := range a.GroupBy {
		var u []groupValue
		for _, v := range values[gi] {
			found := false
			for _, existing := range u {
				if existing.equal(v) {
					found = true
					break
				}
			}
			if !found {
				u = append(u, v)
			}
		}
		if orderSet[name] {
			sort.Slice(u, func(i, j int) bool { return u[i].less(u[j]) })
		}
		unique[gi] = u
	}

	aggFieldOut := types.Field{Name: "aggregate", Kind: types.KindInt64}
	if a.Kind == AggMean {
		aggFieldOut = types.Field{Name: "aggregate", Kind: types.KindFloat64}
	}
	outFields := append(append([]types.Field(nil), groupFields...), aggFieldOut)
	outSchema, err := types.NewSchema(outFields...)
	if err != nil {
		return nil, err
	}

	type outRow struct {
		group []groupValue
		sumI  int64
		sumF  float64
	}
	var built []outRow

	maxes := make([]int, len(a.GroupBy))
	for i, u := range unique {
		maxes[i] = len(u)
	}
	its := make([]int, len(a.GroupBy))

	emit := func() {
		group := make([]groupValue, len(a.GroupBy))
		match := make([]bool, len(rows))
		for i := range match {
			match[i] = true
		}
		for gi := range a.GroupBy {
			val := unique[gi][its[gi]]
			group[gi] = val
			for ri, rv := range values[gi] {
				if match[ri] && !rv.equal(val) {
					match[ri] = false
				}
			}
		}

		var sumI int64
		var sumF float64
		var count int64
		for ri, r := range rows {
			if !match[ri] {
				continue
			}
			count++
			if aggField.Kind == types.KindFloat64 {
				sumF += a.Input.Table.GetBlock(r.Block).Float64At(aggIdx, r.Slot)
			} else {
				sumI += a.Input.Table.GetBlock(r.Block).Int64At(aggIdx, r.Slot)
			}
		}

		if a.Kind == AggSum {
			var result int64
			if aggField.Kind == types.KindFloat64 {
				result = int64(sumF)
			} else {
				result = sumI
			}
			if count == 0 {
				// Empty-group elision: skip only when the group's filter
				// selected no rows, not when a non-empty group's sum happens
				// to be zero.
				return
			}
			built = append(built, outRow{group: group, sumI: result})
			return
		}

		// AggMean: an empty group has count == 0 and is skipped outright,
		// avoiding a division by zero the source's unguarded mean left open
		// (spec §9, MEAN-on-empty-group).
		if count == 0 {
			return
		}
		var total float64
		if aggField.Kind == types.KindFloat64 {
			total = sumF
		} else {
			total = float64(sumI)
		}
		built = append(built, outRow{group: group, sumF: total / float64(count)})
	}

	if len(a.GroupBy) == 0 {
		emit()
	} else {
		for {
			emit()
			pos := len(its) - 1
			for pos >= 0 {
				its[pos]++
				if its[pos] < maxes[pos] {
					break
				}
				its[pos] = 0
				pos--
			}
			if pos < 0 {
				break
			}
		}
	}

	// Order-by on non-group columns (spec §4.8 stage 3): applied in reverse
	// so the first order-by column ends up primary.
	for i := len(a.OrderBy) - 1; i >= 0; i-- {
		name := a.OrderBy[i]
		gi := -1
		for j, g := range a.GroupBy {
			if g == name {
				gi = j
				break
			}
		}
		if gi < 0 {
			if name != a.AggColumn && name != "aggregate" {
				continue
			}
			sort.SliceStable(built, func(a2, b2 int) bool {
				if a.Kind == AggMean {
					return built[a2].sumF < built[b2].sumF
				}
				return built[a2].sumI < built[b2].sumI
			})
			continue
		}
		sort.SliceStable(built, func(a2, b2 int) bool {
			return built[a2].group[gi].less(built[b2].group[gi])
		})
	}

	blockBytes := a.BlockBytes
	if blockBytes == 0 {
		blockBytes = 1 << 20
	}
	outTable := storage.NewTable("aggregate", outSchema, blockBytes)
	for _, row := range built {
		entries := make([]storage.FieldEntry, 0, len(groupFields)+1)
		for gi, f := range groupFields {
			entries = append(entries, encodeGroupValue(row.group[gi], f))
		}
		if a.Kind == AggSum {
			entries = append(entries, storage.FieldEntry{Raw: encodeLE(row.sumI, 8)})
		} else {
			out := make([]byte, 8)
			putFloat64LE(out, row.sumF)
			entries = append(entries, storage.FieldEntry{Raw: out})
		}
		if _, err := outTable.InsertRecord(entries); err != nil {
			return nil, err
		}
	}

	return Result{lazytable.New(outTable)}, nil
}
