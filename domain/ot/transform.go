// Package ot implements the operational transform engine: pure functions
// that reconcile a candidate operation against operations already applied,
// producing an equivalent operation valid against the current content.
package ot

import (
	"fmt"

	"insightdocs-backend/domain/core/valueobjects"
)

// Transform transforms candidate operation a against an operation b that was
// applied after a was authored, returning the adjusted a. Only insert and
// delete pairs are position-adjusted; pairs involving replace pass through
// unchanged, matching the behavior the rest of the system converged on.
func Transform(a, b valueobjects.Operation) valueobjects.Operation {
	switch {
	case a.Kind == valueobjects.OpInsert && b.Kind == valueobjects.OpInsert:
		return transformInsertInsert(a, b)
	case a.Kind == valueobjects.OpInsert && b.Kind == valueobjects.OpDelete:
		return transformInsertDelete(a, b)
	case a.Kind == valueobjects.OpDelete && b.Kind == valueobjects.OpInsert:
		return transformDeleteInsert(a, b)
	case a.Kind == valueobjects.OpDelete && b.Kind == valueobjects.OpDelete:
		return transformDeleteDelete(a, b)
	}
	return a
}

// TransformAgainst folds Transform across the ordered list of operations
// applied since a was authored. The fold order must match append order:
// transform is not commutative across unrelated pairs.
func TransformAgainst(a valueobjects.Operation, applied []valueobjects.Operation) valueobjects.Operation {
	for _, b := range applied {
		a = Transform(a, b)
	}
	return a
}

func transformInsertInsert(a, b valueobjects.Operation) valueobjects.Operation {
	if a.Position < b.Position {
		return a
	}
	if a.Position > b.Position {
		a.Position += b.TextLength()
		return a
	}
	// Same position: the earlier-timestamped insert keeps position priority.
	if a.Timestamp < b.Timestamp {
		return a
	}
	a.Position += b.TextLength()
	return a
}

func transformInsertDelete(a, b valueobjects.Operation) valueobjects.Operation {
	if a.Position <= b.Position {
		return a
	}
	if a.Position > b.End() {
		a.Position -= b.Length
		return a
	}
	// Insert position fell inside the deleted range: the insertion lands at
	// the start of where the deletion occurred.
	a.Position = b.Position
	return a
}

func transformDeleteInsert(a, b valueobjects.Operation) valueobjects.Operation {
	if a.Position < b.Position {
		return a
	}
	a.Position += b.TextLength()
	return a
}

func transformDeleteDelete(a, b valueobjects.Operation) valueobjects.Operation {
	aStart, aEnd := a.Position, a.End()
	bStart, bEnd := b.Position, b.End()

	if aEnd <= bStart {
		return a
	}
	if bEnd <= aStart {
		a.Position -= b.Length
		return a
	}
	// Overlapping deletions collapse into the union range. Lossy but
	// convergence-preserving: both replicas end up removing the same span.
	newStart := minInt(aStart, bStart)
	newEnd := maxInt(aEnd, bEnd)
	a.Position = newStart
	a.Length = newEnd - newStart
	return a
}

// Apply performs the string surgery for op on content. Positions and lengths
// are code point offsets. The operation must already be validated against
// the current content length; out-of-range operations error rather than
// being clamped.
func Apply(content string, op valueobjects.Operation) (string, error) {
	runes := []rune(content)
	if err := op.Validate(len(runes)); err != nil {
		return "", err
	}

	switch op.Kind {
	case valueobjects.OpInsert:
		return string(runes[:op.Position]) + op.Text + string(runes[op.Position:]), nil
	case valueobjects.OpDelete:
		return string(runes[:op.Position]) + string(runes[op.End():]), nil
	case valueobjects.OpReplace:
		return string(runes[:op.Position]) + op.Text + string(runes[op.End():]), nil
	}
	return "", fmt.Errorf("unknown operation kind %q", op.Kind)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
