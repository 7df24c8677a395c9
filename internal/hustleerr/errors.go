// Package hustleerr defines the engine's error taxonomy (spec §7): schema
// errors, insufficient-space signals, I/O errors, and unimplemented
// operator features. Invariant violations are not modeled here — they
// panic, since they indicate a bug rather than a handleable condition.
package hustleerr

import "errors"

// Sentinel errors identifying the coarse error kind. Wrap with fmt.Errorf's
// %w so errors.Is still matches these.
var (
	// ErrSchema covers mismatched field counts, unsupported types, and
	// malformed predicates. Fatal to the plan that raised it.
	ErrSchema = errors.New("hustle: schema error")

	// ErrNotEnoughSpace is returned by Block.InsertRecord when the record
	// would exceed the block's remaining capacity. Callers recover by
	// trying another block.
	ErrNotEnoughSpace = errors.New("hustle: not enough space in block")

	// ErrIO covers failures propagated from the persisted block format.
	ErrIO = errors.New("hustle: i/o error")

	// ErrUnimplemented covers operator features that are reserved but not
	// built (e.g. COUNT). Plan construction must fail fast.
	ErrUnimplemented = errors.New("hustle: unimplemented operator feature")
)

// Is reports whether err wraps target, via errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
