package valueobjects

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// OperationKind identifies the mutation an operation performs
type OperationKind string

const (
	OpInsert  OperationKind = "insert"
	OpDelete  OperationKind = "delete"
	OpReplace OperationKind = "replace"
)

// IsValid reports whether the kind is one of the known mutations
func (k OperationKind) IsValid() bool {
	switch k {
	case OpInsert, OpDelete, OpReplace:
		return true
	}
	return false
}

// Operation is the atomic unit of change against a document's character
// sequence. Position and Length are measured in Unicode code points, as is
// the content they apply to; Timestamp is author-side wall-clock time in
// milliseconds and is used only as a tie-break during transformation.
type Operation struct {
	ID        string        `json:"id"`
	Kind      OperationKind `json:"kind" validate:"required,oneof=insert delete replace"`
	Position  int           `json:"position" validate:"gte=0"`
	Text      string        `json:"text"`
	Length    int           `json:"length" validate:"gte=0"`
	Timestamp int64         `json:"timestamp"`
}

// NewOperation creates an operation with a fresh identifier
func NewOperation(kind OperationKind, position int, text string, length int, timestamp int64) Operation {
	return Operation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Position:  position,
		Text:      text,
		Length:    length,
		Timestamp: timestamp,
	}
}

// TextLength returns the code point length of the operation's text payload
func (op Operation) TextLength() int {
	return utf8.RuneCountInString(op.Text)
}

// End returns the exclusive end of the range a delete or replace removes
func (op Operation) End() int {
	return op.Position + op.Length
}

// Validate checks the operation against the current document length. The
// length is the one at application time, not the one the author observed;
// transformation is what bridges the two.
func (op Operation) Validate(contentLength int) error {
	if !op.Kind.IsValid() {
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	if op.Position < 0 {
		return fmt.Errorf("negative position %d", op.Position)
	}
	if op.Position > contentLength {
		return fmt.Errorf("position %d exceeds content length %d", op.Position, contentLength)
	}
	switch op.Kind {
	case OpDelete, OpReplace:
		if op.Length < 0 {
			return fmt.Errorf("negative length %d", op.Length)
		}
		if op.End() > contentLength {
			return fmt.Errorf("range [%d,%d) exceeds content length %d", op.Position, op.End(), contentLength)
		}
	case OpInsert:
		if op.Length != 0 {
			return fmt.Errorf("insert carries non-zero length %d", op.Length)
		}
	}
	return nil
}

// IsValidAgainst is the boolean form of Validate
func (op Operation) IsValidAgainst(contentLength int) bool {
	return op.Validate(contentLength) == nil
}
