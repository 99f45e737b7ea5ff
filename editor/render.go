package editor

import (
	"strconv"
	"strings"

	"richedit/style"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// bufferColToDisplayCol converts a rune index to a display column, with
// tabs expanded and wide characters counted twice.
func bufferColToDisplayCol(line string, bufCol int, tabSize int) int {
	displayCol := 0
	for i, r := range []rune(line) {
		if i >= bufCol {
			break
		}
		if r == '\t' {
			displayCol += tabSize - (displayCol % tabSize)
		} else {
			displayCol += runewidth.RuneWidth(r)
		}
	}
	return displayCol
}

// displayColToBufferCol converts a display column back to a rune index.
func displayColToBufferCol(line string, targetDisplayCol int, tabSize int) int {
	if targetDisplayCol <= 0 {
		return 0
	}
	displayCol := 0
	runes := []rune(line)
	for i, r := range runes {
		if displayCol >= targetDisplayCol {
			return i
		}
		if r == '\t' {
			displayCol += tabSize - (displayCol % tabSize)
		} else {
			displayCol += runewidth.RuneWidth(r)
		}
		// the character spans the target
		if displayCol > targetDisplayCol {
			return i
		}
	}
	return len(runes)
}

// View paints an editor onto a canvas: a gutter with bookmark, line
// number and fold glyphs, then every visible line through the styles of
// its characters. It is a demo surface, not a widget.
type View struct {
	Top  int // first document line shown
	Left int // horizontal scroll in cells

	Base      tcell.Style
	Gutter    tcell.Style
	Selection tcell.Style

	ed   *Editor
	rows []int
}

func NewView(ed *Editor) *View {
	return &View{
		ed:        ed,
		Base:      tcell.StyleDefault,
		Gutter:    tcell.StyleDefault.Foreground(tcell.ColorGray),
		Selection: tcell.StyleDefault.Reverse(true),
	}
}

// clipCanvas drops cells outside [x0, x1).
type clipCanvas struct {
	style.Canvas
	x0, x1 int
}

func (c clipCanvas) SetContent(x, y int, primary rune, combining []rune, st tcell.Style) {
	if x >= c.x0 && x < c.x1 {
		c.Canvas.SetContent(x, y, primary, combining, st)
	}
}

func (v *View) gutterWidth() int {
	return len(strconv.Itoa(v.ed.doc.LineCount())) + 3
}

// Rows returns the document lines painted by the last Draw.
func (v *View) Rows() []int { return v.rows }

// Draw paints the w x h area at (x, y) and reports the painted lines to
// the editor as its visible range.
func (v *View) Draw(c style.Canvas, x, y, w, h int) {
	doc := v.ed.doc
	visible := doc.VisibleLines()
	v.rows = v.rows[:0]
	for _, ln := range visible {
		if ln >= v.Top && len(v.rows) < h {
			v.rows = append(v.rows, ln)
		}
	}
	if len(v.rows) > 0 {
		v.ed.SetVisibleRange(textpos.LineSpan{First: v.rows[0], Last: v.rows[len(v.rows)-1]})
	}

	gw := v.gutterWidth()
	digits := gw - 3
	textX := x + gw
	clip := clipCanvas{Canvas: c, x0: textX, x1: x + w}
	sel := v.ed.sel.Range()

	for row := 0; row < h; row++ {
		sy := y + row
		for cx := x; cx < x+w; cx++ {
			c.SetContent(cx, sy, ' ', nil, v.Base)
		}
		if row >= len(v.rows) {
			c.SetContent(x, sy, '~', nil, v.Gutter)
			continue
		}
		ln := v.rows[row]
		l, err := doc.Line(ln)
		if err != nil {
			continue
		}

		base := v.Base
		if b := l.Background(); b != nil {
			base = base.Background(b.Color)
			for cx := textX; cx < x+w; cx++ {
				c.SetContent(cx, sy, ' ', nil, base)
			}
		}

		if l.Bookmarked() {
			c.SetContent(x, sy, '*', nil, v.Gutter)
		}
		num := strconv.Itoa(ln + 1)
		for i, r := range num {
			c.SetContent(x+1+digits-len(num)+i, sy, r, nil, v.Gutter)
		}
		switch {
		case doc.IsCollapsed(ln):
			c.SetContent(x+1+digits, sy, '+', nil, v.Gutter)
		case l.FoldStart != "":
			if _, ok := doc.FoldBlock(ln); ok {
				c.SetContent(x+1+digits, sy, '-', nil, v.Gutter)
			}
		}

		col := 0
		for i, ch := range l.Chars() {
			n := 1
			text := []rune{ch.R}
			if ch.R == '\t' {
				n = doc.TabSize - col%doc.TabSize
				text = []rune(strings.Repeat(" ", n))
			} else {
				n = max(runewidth.RuneWidth(ch.R), 1)
			}
			sx := textX + col - v.Left
			col += n
			if sx+n <= textX {
				continue
			}
			if sx >= x+w {
				break
			}
			place := textpos.Place{Line: ln, Col: i}
			r := textpos.LineRange(ln, i, i+1)
			switch {
			case sel.Contains(place):
				for j, tr := range text {
					clip.SetContent(sx+j, sy, tr, nil, v.Selection)
				}
			case ch.Style != style.Empty:
				ids := v.ed.styles.IDs(ch.Style)
				if st := v.ed.styles.Style(ids[len(ids)-1]); st != nil {
					st.Draw(clip, sx, sy, r, text)
					continue
				}
				fallthrough
			default:
				for j, tr := range text {
					clip.SetContent(sx+j, sy, tr, nil, base)
				}
			}
		}
		if doc.IsCollapsed(ln) {
			for i, r := range " ..." {
				clip.SetContent(textX+col-v.Left+i, sy, r, nil, v.Gutter)
			}
		}
	}
}

// ScrollToCaret moves Top so the caret line is among h rows.
func (v *View) ScrollToCaret(h int) {
	visible := v.ed.doc.VisibleLines()
	caret := v.ed.sel.Caret.Line
	idx, top := -1, -1
	for i, ln := range visible {
		if ln >= caret && idx < 0 {
			idx = i
		}
		if ln >= v.Top && top < 0 {
			top = i
		}
	}
	if idx < 0 || h <= 0 {
		return
	}
	if top < 0 {
		top = len(visible) - 1
	}
	switch {
	case idx < top:
		v.Top = visible[idx]
	case idx >= top+h:
		v.Top = visible[idx-h+1]
	}
}

// CaretCell returns the screen cell of the caret for a view drawn at
// (x, y), or false when the caret is off screen.
func (v *View) CaretCell(x, y int) (int, int, bool) {
	caret := v.ed.sel.Caret
	for row, ln := range v.rows {
		if ln != caret.Line {
			continue
		}
		text, _ := v.ed.doc.LineText(ln)
		cx := x + v.gutterWidth() + bufferColToDisplayCol(text, caret.Col, v.ed.doc.TabSize) - v.Left
		return cx, y + row, cx >= x+v.gutterWidth()
	}
	return 0, 0, false
}

// PlaceAt maps a cell of a view drawn at (x, y) back to a document place.
func (v *View) PlaceAt(x, y, cx, cy int) (textpos.Place, bool) {
	row := cy - y
	if row < 0 || row >= len(v.rows) {
		return textpos.Place{}, false
	}
	ln := v.rows[row]
	text, _ := v.ed.doc.LineText(ln)
	col := displayColToBufferCol(text, cx-x-v.gutterWidth()+v.Left, v.ed.doc.TabSize)
	return textpos.Place{Line: ln, Col: col}, true
}
