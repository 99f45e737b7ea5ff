package textpos

import "fmt"

// Range is a half-open interval [Start, End) between two places. It is a
// view, not an owner: operations that need the text live on the document.
type Range struct {
	Start, End Place
}

// NewRange returns a normalized range spanning a and b in either order.
func NewRange(a, b Place) Range {
	if a.Before(b) {
		return Range{Start: a, End: b}
	}
	return Range{Start: b, End: a}
}

// LineRange returns the range covering columns [startCol, endCol) of one line.
func LineRange(line, startCol, endCol int) Range {
	return NewRange(Place{Line: line, Col: startCol}, Place{Line: line, Col: endCol})
}

// Normalize orders Start and End so that Start <= End.
func (r Range) Normalize() Range {
	return NewRange(r.Start, r.End)
}

// Clone returns an independent copy of r.
func (r Range) Clone() Range {
	return r
}

func (r Range) Empty() bool {
	return r.Start.Equal(r.End)
}

// Contains reports whether p lies inside r, End excluded.
func (r Range) Contains(p Place) bool {
	n := r.Normalize()
	return !p.Before(n.Start) && p.Before(n.End)
}

// Union returns the smallest range covering both r and other.
func (r Range) Union(other Range) Range {
	a, b := r.Normalize(), other.Normalize()
	return Range{Start: Min(a.Start, b.Start), End: Max(a.End, b.End)}
}

// Intersects reports whether the two ranges share at least one place, or
// touch when either is empty.
func (r Range) Intersects(other Range) bool {
	a, b := r.Normalize(), other.Normalize()
	if a.Empty() || b.Empty() {
		return !a.Start.Before(b.Start) && !b.End.Before(a.Start) ||
			!b.Start.Before(a.Start) && !a.End.Before(b.Start)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Lines returns the inclusive line span of r.
func (r Range) Lines() LineSpan {
	n := r.Normalize()
	return LineSpan{First: n.Start.Line, Last: n.End.Line}
}

func (r Range) String() string {
	return fmt.Sprintf("[%v-%v)", r.Start, r.End)
}

// LineSpan is an inclusive interval of line indexes.
type LineSpan struct {
	First, Last int
}

// Contains reports whether line lies within the span.
func (s LineSpan) Contains(line int) bool {
	return line >= s.First && line <= s.Last
}

// Union returns the smallest span covering both.
func (s LineSpan) Union(other LineSpan) LineSpan {
	return LineSpan{First: min(s.First, other.First), Last: max(s.Last, other.Last)}
}
