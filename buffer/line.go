package buffer

import (
	"time"
	"weak"

	"richedit/style"

	"github.com/mattn/go-runewidth"
)

// Char is one code point plus its style set.
type Char struct {
	R        rune
	Style    style.Set
	ReadOnly bool
}

// Line is an ordered run of characters without a terminator.
type Line struct {
	chars []Char

	// FoldStart and FoldEnd hold the marker id, the pattern text, that the
	// highlighter matched on this line. Empty means no marker.
	FoldStart string
	FoldEnd   string

	// unbalanced marker counts: opens left at the end of the line and
	// closes seen before any open of the same line could absorb them
	foldOpen  int
	foldClose int

	changed    bool
	collapsed  bool
	bookmarked bool
	background weak.Pointer[style.Brush]
	lastVisit  time.Time

	width    int // cached display width, -1 when stale
	widthTab int
}

func newLine(chars []Char) *Line {
	return &Line{chars: chars, changed: true, width: -1}
}

func plainChars(s string) []Char {
	chars := make([]Char, 0, len(s))
	for _, r := range s {
		chars = append(chars, Char{R: r})
	}
	return chars
}

func (l *Line) Len() int { return len(l.chars) }

func (l *Line) Text() string {
	return string(l.Runes())
}

func (l *Line) Runes() []rune {
	rs := make([]rune, len(l.chars))
	for i, c := range l.chars {
		rs[i] = c.R
	}
	return rs
}

// Chars returns a copy of the line's characters.
func (l *Line) Chars() []Char {
	return append([]Char(nil), l.chars...)
}

// Char returns the character at col.
func (l *Line) Char(col int) (Char, bool) {
	if col < 0 || col >= len(l.chars) {
		return Char{}, false
	}
	return l.chars[col], true
}

// Changed reports whether the line was edited since the last highlight pass.
func (l *Line) Changed() bool { return l.changed }

func (l *Line) Collapsed() bool { return l.collapsed }

func (l *Line) Bookmarked() bool { return l.bookmarked }

// Background returns the caller-owned brush, or nil once the caller let
// go of it.
func (l *Line) Background() *style.Brush {
	return l.background.Value()
}

func (l *Line) LastVisit() time.Time { return l.lastVisit }

// Width returns the display width of the line in terminal columns.
func (l *Line) Width(tabSize int) int {
	if l.width >= 0 && l.widthTab == tabSize {
		return l.width
	}
	w := 0
	for _, c := range l.chars {
		if c.R == '\t' {
			w += tabSize - w%max(tabSize, 1)
			continue
		}
		w += runewidth.RuneWidth(c.R)
	}
	l.width, l.widthTab = w, tabSize
	return w
}

func (l *Line) touch() {
	l.changed = true
	l.width = -1
}
