// Package textpos defines the coordinate types shared by the buffer,
// highlighter and autocomplete engine.
package textpos

import "fmt"

// Place is a (line, column) coordinate into a document. Columns count
// runes, not bytes.
type Place struct {
	Line, Col int
}

func (p Place) Before(other Place) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}

func (p Place) Equal(other Place) bool {
	return p.Line == other.Line && p.Col == other.Col
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Min returns the earlier of two places.
func Min(a, b Place) Place {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of two places.
func Max(a, b Place) Place {
	if a.Before(b) {
		return b
	}
	return a
}
