package operators

import "github.com/hustledb/hustle/internal/lazytable"

// ColumnRef addresses a column on one lazy view of a working Result by the
// view's position and the column's name.
type ColumnRef struct {
	View   int
	Column string
}

// EqJoinPredicate is one `(left_ref, EQ, right_ref)` equijoin predicate
// (spec §4.6). Only equijoins on fixed-width numeric columns are supported;
// the operator refuses disjunctions across predicates.
type EqJoinPredicate struct {
	Left  ColumnRef
	Right ColumnRef
}

// Join performs a sequence of hash-joins over a working result, back-
// propagating surviving indices to every other lazy view present (spec
// §4.6).
type Join struct {
	Predicates []EqJoinPredicate
}

// Run implements Operator. The input is the already-concatenated working
// result (see Concat); each predicate is applied in order against the
// current state of that result.
func (j *Join) Run(in Result) (Result, error) {
	working := append(Result(nil), in...)

	for _, jp := range j.Predicates {
		leftView := working[jp.Left.View]
		rightView := working[jp.Right.View]

		leftRows := leftView.LiveRows()
		rightRows := rightView.LiveRows()
		leftVals := materializeInt64(leftView, jp.Left.Column, leftRows)
		rightVals := materializeInt64(rightView, jp.Right.Column, rightRows)

		// Build: value -> positions within rightRows (internal/operators/joingraph.go).
		ht := buildHashIndex(rightVals)

		// Probe + gather: walk the left column, emitting one (leftPos,
		// rightPos) pair per match (spec §4.6 "Probe"/"Gather").
		var leftPos, rightPos []int
		for i, v := range leftVals {
			for _, rp := range ht[v] {
				leftPos = append(leftPos, i)
				rightPos = append(rightPos, rp)
			}
		}

		leftIndices := gatherRowRefs(leftRows, leftPos)
		rightIndices := gatherRowRefs(rightRows, rightPos)

		for idx, v := range working {
			switch idx {
			case jp.Left.View:
				v.Indices = leftIndices
				v.Filter = nil
			case jp.Right.View:
				v.Indices = rightIndices
				v.Filter = nil
			default:
				// Back-propagation (spec §4.6 "Back-propagation"): a view with
				// no prior indices adopts left_indices directly; one that
				// already has indices is re-gathered by the left-side
				// positions that survived this join.
				if v.Indices == nil {
					v.Indices = leftIndices
				} else {
					v.Indices = gatherRowRefs(v.Indices, leftPos)
				}
			}
		}
	}

	return working, nil
}

func materializeInt64(lt *lazytable.LazyTable, column string, rows []lazytable.RowRef) []int64 {
	idx := lt.Table.Schema.IndexOf(column)
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = lt.Table.GetBlock(r.Block).Int64At(idx, r.Slot)
	}
	return out
}

// gatherRowRefs selects base[positions[i]] for each i. Bounds checking is
// the caller's responsibility (spec §4.6: "disabled by contract").
func gatherRowRefs(base []lazytable.RowRef, positions []int) []lazytable.RowRef {
	out := make([]lazytable.RowRef, len(positions))
	for i, p := range positions {
		out[i] = base[p]
	}
	return out
}
