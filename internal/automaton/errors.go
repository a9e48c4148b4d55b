package automaton

import "fmt"

// DuplicateTagError reports that addTag was called for a tag id already
// present in the graph (spec.md §7, non-fatal).
type DuplicateTagError struct {
	ID int64
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("automaton: tag %d already present", e.ID)
}

// UnknownTagError reports that removeTag or RenameTag was called for a tag
// id never added (spec.md §7, non-fatal; the operation is a no-op).
type UnknownTagError struct {
	ID int64
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("automaton: tag %d not present", e.ID)
}

// InvariantViolationError reports that a post-operation consistency check
// failed. Per spec.md §7 this is fatal: the Graph that produced it is
// considered poisoned and should not be used further.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return "automaton: invariant violation: " + e.Detail
}
