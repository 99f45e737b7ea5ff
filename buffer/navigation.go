package buffer

import (
	"fmt"
	"time"
	"weak"

	"richedit/style"
)

// SetBookmark toggles the bookmark of line i. Bookmarks move with their
// line as text is edited.
func (d *Document) SetBookmark(i int, on bool) error {
	l, err := d.Line(i)
	if err != nil {
		return err
	}
	l.bookmarked = on
	return nil
}

// Bookmarks lists bookmarked line indexes in ascending order.
func (d *Document) Bookmarks() []int {
	var out []int
	for i, l := range d.lines {
		if l.bookmarked {
			out = append(out, i)
		}
	}
	return out
}

// NextBookmark returns the first bookmark after line, wrapping around.
func (d *Document) NextBookmark(line int) (int, bool) {
	n := len(d.lines)
	for k := 1; k <= n; k++ {
		i := ((line+k)%n + n) % n
		if d.lines[i].bookmarked {
			return i, true
		}
	}
	return -1, false
}

// PrevBookmark returns the first bookmark before line, wrapping around.
func (d *Document) PrevBookmark(line int) (int, bool) {
	n := len(d.lines)
	for k := 1; k <= n; k++ {
		i := ((line-k)%n + n) % n
		if d.lines[i].bookmarked {
			return i, true
		}
	}
	return -1, false
}

// SetLineBackground attaches a caller-owned brush to line i. The line
// holds it weakly; pass nil to detach.
func (d *Document) SetLineBackground(i int, b *style.Brush) error {
	l, err := d.Line(i)
	if err != nil {
		return err
	}
	if b == nil {
		l.background = weak.Pointer[style.Brush]{}
		return nil
	}
	l.background = weak.Make(b)
	return nil
}

// Visit stamps line i as visited at t, feeding navigation history.
func (d *Document) Visit(i int, t time.Time) error {
	l, err := d.Line(i)
	if err != nil {
		return fmt.Errorf("visit: %w", err)
	}
	l.lastVisit = t
	return nil
}

// NavigateBackward returns the line visited most recently before line.
func (d *Document) NavigateBackward(line int) (int, bool) {
	if line < 0 || line >= len(d.lines) {
		return -1, false
	}
	cur := d.lines[line].lastVisit
	best, found := -1, false
	var bestAt time.Time
	for i, l := range d.lines {
		if i == line || l.lastVisit.IsZero() {
			continue
		}
		if !cur.IsZero() && !l.lastVisit.Before(cur) {
			continue
		}
		if !found || l.lastVisit.After(bestAt) {
			best, bestAt, found = i, l.lastVisit, true
		}
	}
	return best, found
}

// NavigateForward returns the line visited next after line.
func (d *Document) NavigateForward(line int) (int, bool) {
	if line < 0 || line >= len(d.lines) {
		return -1, false
	}
	cur := d.lines[line].lastVisit
	if cur.IsZero() {
		return -1, false
	}
	best, found := -1, false
	var bestAt time.Time
	for i, l := range d.lines {
		if i == line || !l.lastVisit.After(cur) {
			continue
		}
		if !found || l.lastVisit.Before(bestAt) {
			best, bestAt, found = i, l.lastVisit, true
		}
	}
	return best, found
}
