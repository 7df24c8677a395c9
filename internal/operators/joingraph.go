package operators

// buildHashIndex builds the probe-side hash index for one equijoin
// predicate: join column value -> positions within rightVals. Indexing is
// keyed directly off the materialized value, not off any iterator position
// within the join's predicate list, so reordering Join.Predicates (or the
// views a predicate references) cannot desynchronize the index from the
// table it was built over (spec §4.6 "JoinGraph" / §9 bug 3).
func buildHashIndex(rightVals []int64) map[int64][]int {
	ht := make(map[int64][]int, len(rightVals))
	for i, v := range rightVals {
		ht[v] = append(ht[v], i)
	}
	return ht
}
