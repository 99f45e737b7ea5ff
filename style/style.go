// Package style holds style identities and the per-character style sets
// the buffer stores. Rendering consumes styles through the Draw contract;
// the core never paints on its own.
package style

import (
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Canvas is the surface a style draws on. tcell.Screen satisfies it.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

// Style is an identity registered once with a Registry and referenced by
// ID from every character it applies to.
type Style interface {
	// Draw paints text, the runes of r on a single line, starting at
	// cell (x, y). It returns the number of columns covered.
	Draw(c Canvas, x, y int, r textpos.Range, text []rune) int
}

// TextStyle paints runes with a fixed tcell appearance.
type TextStyle struct {
	Name       string
	Appearance tcell.Style
}

func NewTextStyle(name string, fg tcell.Color) *TextStyle {
	return &TextStyle{Name: name, Appearance: tcell.StyleDefault.Foreground(fg)}
}

func (s *TextStyle) Bold() *TextStyle {
	s.Appearance = s.Appearance.Bold(true)
	return s
}

func (s *TextStyle) Italic() *TextStyle {
	s.Appearance = s.Appearance.Italic(true)
	return s
}

func (s *TextStyle) Draw(c Canvas, x, y int, _ textpos.Range, text []rune) int {
	return drawRunes(c, x, y, text, s.Appearance)
}

// MarkerStyle fills the covered cells with a background color, the way
// selection or search-hit markers do.
type MarkerStyle struct {
	Name       string
	Background tcell.Color
}

func (s *MarkerStyle) Draw(c Canvas, x, y int, _ textpos.Range, text []rune) int {
	return drawRunes(c, x, y, text, tcell.StyleDefault.Background(s.Background))
}

// Brush is a line background owned by the caller. Lines only keep a weak
// reference to it.
type Brush struct {
	Color tcell.Color
}

func drawRunes(c Canvas, x, y int, text []rune, st tcell.Style) int {
	col := x
	for _, r := range text {
		if r == '\t' {
			r = ' '
		}
		c.SetContent(col, y, r, nil, st)
		col += max(runewidth.RuneWidth(r), 1)
	}
	return col - x
}
