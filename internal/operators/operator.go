// Package operators implements the query operators (spec §4.5-§4.9): Select,
// Join, LIP, Aggregate, and the fused Select-build-hash variant. Each
// operator consumes an OperatorResult (an ordered list of lazy views) and
// produces a new one.
package operators

import "github.com/hustledb/hustle/internal/lazytable"

// Result is an ordered list of lazy views, the unit operators pass between
// each other (spec §3 "Operator result").
type Result []*lazytable.LazyTable

// Operator is anything that consumes and produces a Result. Select appends
// its view to its input; Join works on the concatenation of several
// upstream results (spec §4.6 "Inputs"). Aggregate and LIP ignore their
// input and read the views set on them at construction.
type Operator interface {
	Run(in Result) (Result, error)
}

// Concat flattens several upstream results into one working result (spec
// §4.6 "concatenated into a single working result").
func Concat(results ...Result) Result {
	var out Result
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
