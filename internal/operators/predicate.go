package operators

import "github.com/hustledb/hustle/internal/types"

// Predicate is a node in a Select predicate tree (spec §4.5): either a leaf
// comparing a column against one or two literals, or an internal node
// combining two children with a Connective. The zero value of Connective
// (ConnNone) on an internal node with only Left set means pass-through.
type Predicate struct {
	// Leaf fields.
	IsLeaf bool
	Column string
	Op     types.CompareOp
	Value  int64 // widened; float columns reinterpret via math.Float64bits
	Value2 int64 // BETWEEN's hi bound, only meaningful when Op == OpNE and HasValue2

	HasValue2 bool

	// StringLiteral is the comparison literal for a leaf predicate against a
	// string column, set via SetStringLiteral instead of Value (which is
	// numeric-only).
	StringLiteral []byte

	// Internal node fields.
	Connective types.Connective
	Left       *Predicate
	Right      *Predicate
}

// Leaf builds a simple comparison predicate.
func Leaf(column string, op types.CompareOp, value int64) *Predicate {
	return &Predicate{IsLeaf: true, Column: column, Op: op, Value: value}
}

// Between builds the NE-encoded BETWEEN predicate (spec §4.5 "A special
// encoding... reuses the NE operator slot"): lo and hi are both carried, and
// the kernel computes (val - lo) <= (hi - lo) using unsigned difference.
func Between(column string, lo, hi int64) *Predicate {
	return &Predicate{IsLeaf: true, Column: column, Op: types.OpNE, Value: lo, Value2: hi, HasValue2: true}
}

// And combines two predicates with logical AND.
func And(left, right *Predicate) *Predicate {
	return &Predicate{Connective: types.ConnAnd, Left: left, Right: right}
}

// Or combines two predicates with logical OR.
func Or(left, right *Predicate) *Predicate {
	return &Predicate{Connective: types.ConnOr, Left: left, Right: right}
}
