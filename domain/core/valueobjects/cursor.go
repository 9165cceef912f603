package valueobjects

// Cursor is the last known caret and selection of one session. It is
// advisory presence data: the transform engine never reads it.
type Cursor struct {
	Position       int `json:"position"`
	SelectionStart int `json:"selectionStart"`
	SelectionEnd   int `json:"selectionEnd"`
}

// HasSelection reports whether the cursor spans a non-empty range
func (c Cursor) HasSelection() bool {
	return c.SelectionEnd > c.SelectionStart
}
