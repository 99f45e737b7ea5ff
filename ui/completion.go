package ui

import (
	"richedit/autocomplete"
	"richedit/style"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	popupMinWidth = 20
	popupMaxWidth = 60
	popupRows     = 10
)

// CompletionPopup draws the candidates of an autocomplete engine next to
// the caret. It keeps no state of its own beyond scrolling; the engine
// owns the list and the selection.
type CompletionPopup struct {
	Style     tcell.Style
	Selected  tcell.Style
	Detail    tcell.Style
	scrollOff int
}

func NewCompletionPopup() *CompletionPopup {
	return &CompletionPopup{
		Style:    tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite),
		Selected: tcell.StyleDefault.Background(tcell.ColorSteelBlue).Foreground(tcell.ColorWhite),
		Detail:   tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorSilver),
	}
}

// Render draws the popup below the caret cell (cx, cy), or above it when
// it would not fit in the screen of width x height.
func (p *CompletionPopup) Render(c style.Canvas, eng *autocomplete.Engine, cx, cy, width, height int) {
	if eng.State() != autocomplete.Shown {
		p.scrollOff = 0
		return
	}
	items := eng.Visible()
	if len(items) == 0 {
		return
	}

	w := popupMinWidth
	for _, it := range items {
		iw := runewidth.StringWidth(it.Text()) + 4
		if title := tooltipTitle(it); title != "" {
			iw += runewidth.StringWidth(title) + 1
		}
		w = max(w, iw)
	}
	w = min(w, popupMaxWidth, width)
	rows := min(len(items), popupRows)

	posX, posY := cx, cy+1
	if posY+rows > height {
		posY = cy - rows
	}
	posX = max(min(posX, width-w), 0)
	posY = max(posY, 0)

	sel := eng.SelectedIndex()
	if sel >= p.scrollOff+rows {
		p.scrollOff = sel - rows + 1
	}
	if sel >= 0 && sel < p.scrollOff {
		p.scrollOff = sel
	}
	p.scrollOff = min(p.scrollOff, len(items)-rows)

	for i := 0; i < rows; i++ {
		idx := p.scrollOff + i
		it := items[idx]
		st, dst := p.Style, p.Detail
		if idx == sel {
			st, dst = p.Selected, p.Selected
		}
		y := posY + i
		for x := posX; x < posX+w; x++ {
			c.SetContent(x, y, ' ', nil, st)
		}
		c.SetContent(posX, y, itemIcon(it), nil, st)
		col := posX + 2
		col = drawClipped(c, col, y, posX+w, it.Text(), st)
		if title := tooltipTitle(it); title != "" {
			drawClipped(c, col+1, y, posX+w, title, dst)
		}
	}
}

func drawClipped(c style.Canvas, x, y, limit int, text string, st tcell.Style) int {
	for _, ch := range text {
		cw := max(runewidth.RuneWidth(ch), 1)
		if x+cw > limit {
			break
		}
		c.SetContent(x, y, ch, nil, st)
		x += cw
	}
	return x
}

func tooltipTitle(it autocomplete.Item) string {
	if t, ok := it.(autocomplete.Tooltipper); ok {
		title, _ := t.Tooltip()
		return title
	}
	return ""
}

func itemIcon(it autocomplete.Item) rune {
	switch it.(type) {
	case *autocomplete.Snippet:
		return '⋯'
	case *autocomplete.Method:
		return 'ƒ'
	case *autocomplete.Keyword:
		return 'K'
	}
	if im, ok := it.(autocomplete.Imager); ok {
		switch im.ImageIndex() {
		case 1:
			return '◻'
		case 2:
			return '◇'
		case 3:
			return '▸'
		}
	}
	return '·'
}
