package dataset

import "fmt"

// LoadError reports a dataset that cannot be read or is structurally unusable.
// It is fatal at startup.
type LoadError struct {
	Op     string // "read", "header", "schema", "date"
	Row    int    // 1-based data row, 0 when not row specific
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "dataset: " + e.Op
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// RangeError reports a slider position outside the date index.
// Callers may clamp to [Min, Max] or ignore the request.
type RangeError struct {
	Position int
	Len      int
}

func (e *RangeError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("position %d out of range: date index is empty", e.Position)
	}
	return fmt.Sprintf("position %d out of range [0, %d]", e.Position, e.Len-1)
}

// Max returns the largest valid position, or -1 for an empty index.
func (e *RangeError) Max() int { return e.Len - 1 }

// Clamp returns the nearest valid position. It returns 0 for an empty index.
func (e *RangeError) Clamp() int {
	switch {
	case e.Len == 0 || e.Position < 0:
		return 0
	case e.Position >= e.Len:
		return e.Len - 1
	default:
		return e.Position
	}
}
