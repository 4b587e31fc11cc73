package types

import (
	"fmt"
	"time"
)

// ParseError reports source data that cannot be loaded: a malformed row or a
// missing required column. Row is the 1-based line in the source (0 when the
// error concerns the schema).
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Row == 0 && e.Value == "":
		return fmt.Sprintf("parse: column %q: %v", e.Column, e.Err)
	case e.Row == 0:
		return fmt.Sprintf("parse: column %q value %q: %v", e.Column, e.Value, e.Err)
	default:
		return fmt.Sprintf("parse: row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidRangeError is returned when a window starts after it ends.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s",
		e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}
