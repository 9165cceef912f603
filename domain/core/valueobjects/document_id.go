package valueobjects

import "errors"

// DocumentID is a value object identifying one collaboratively edited
// document. The identifier is supplied by the caller (it is the media record
// ID in the wider system) and is opaque to this core.
type DocumentID struct {
	value string
}

// NewDocumentID creates a DocumentID from an external identifier
func NewDocumentID(id string) (DocumentID, error) {
	if id == "" {
		return DocumentID{}, errors.New("document ID cannot be empty")
	}
	return DocumentID{value: id}, nil
}

// String returns the string representation of the DocumentID
func (id DocumentID) String() string {
	return id.value
}

// Equals checks if two DocumentIDs are equal
func (id DocumentID) Equals(other DocumentID) bool {
	return id.value == other.value
}

// IsZero checks if the DocumentID is the zero value
func (id DocumentID) IsZero() bool {
	return id.value == ""
}
