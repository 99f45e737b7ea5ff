package buffer

import "errors"

var (
	// ErrOutOfRange is returned for a line index or place outside the
	// document. Explicit APIs never clamp.
	ErrOutOfRange = errors.New("out of range")

	// ErrReadOnly is returned when an edit touches a read-only range. The
	// document is left unchanged.
	ErrReadOnly = errors.New("read-only range")

	// ErrInvalidPattern is returned when a highlighting or folding pattern
	// does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)
