// Package ui draws the chrome around an editor view: the status bar and
// the autocomplete popup.
package ui

import (
	"fmt"

	"richedit/editor"
	"richedit/style"

	"github.com/gdamore/tcell/v2"
)

type StatusBar struct {
	Filename string
	Line     int
	Col      int
	Language string
	Encoding string
	LineEnd  string
	TabInfo  string // "Tabs" or "Spaces: 4"
	Message  string // temporary status message
	SelChars int    // number of selected characters (0 = no selection)
	SelLines int    // number of selected lines
	Modified bool
	ReadOnly bool
	Flags    string // "changed on disk", "deleted on disk"

	Style     tcell.Style
	FlagStyle tcell.Style
}

func NewStatusBar() *StatusBar {
	return &StatusBar{
		Encoding:  "UTF-8",
		LineEnd:   "LF",
		Style:     tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite),
		FlagStyle: tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorYellow).Bold(true),
	}
}

// Update copies the caret, selection and file state of ed.
func (s *StatusBar) Update(ed *editor.Editor) {
	s.Filename = ed.Path()
	caret := ed.Caret()
	s.Line, s.Col = caret.Line, caret.Col
	s.Language = ed.Language()
	if ed.Encoding() != "" {
		s.Encoding = ed.Encoding()
	}
	if ed.LineEnding() != "" {
		s.LineEnd = ed.LineEnding()
	}
	in := ed.Indentation()
	if in.UseTabs {
		s.TabInfo = "Tabs"
	} else {
		s.TabInfo = fmt.Sprintf("Spaces: %d", in.TabSize)
	}
	s.SelChars, s.SelLines = 0, 0
	if sel := ed.Selection(); !sel.Empty() {
		s.SelChars = len([]rune(ed.SelectedText()))
		r := sel.Range()
		s.SelLines = r.End.Line - r.Start.Line + 1
	}
	s.Modified = ed.Modified()
	switch {
	case ed.Removed():
		s.Flags = "deleted on disk"
	case ed.ExternallyModified():
		s.Flags = "changed on disk"
	default:
		s.Flags = ""
	}
}

func (s *StatusBar) Render(c style.Canvas, x, y, width int) {
	for cx := x; cx < x+width; cx++ {
		c.SetContent(cx, y, ' ', nil, s.Style)
	}
	col := x + 1
	put := func(text string, st tcell.Style) {
		for _, ch := range text {
			if col < x+width {
				c.SetContent(col, y, ch, nil, st)
				col++
			}
		}
	}

	// a temporary message replaces everything else
	if s.Message != "" {
		put(s.Message, s.Style)
		return
	}

	fname := s.Filename
	if fname == "" {
		fname = "untitled"
	}
	if s.Modified {
		fname += " *"
	}
	if s.ReadOnly {
		fname += " [RO]"
	}
	put(fname, s.Style)
	if s.Flags != "" {
		put(" ", s.Style)
		put("("+s.Flags+")", s.FlagStyle)
	}

	tabInfo := s.TabInfo
	if tabInfo == "" {
		tabInfo = "Spaces: 4"
	}
	language := s.Language
	if language == "" {
		language = "Plain Text"
	}
	right := fmt.Sprintf("Ln %d, Col %d │ %s │ %s │ %s │ %s ", s.Line+1, s.Col+1, language, s.Encoding, s.LineEnd, tabInfo)
	if s.SelChars > 0 {
		right = fmt.Sprintf("Sel: %d chars, %d lines │ ", s.SelChars, s.SelLines) + right
	}
	rightRunes := []rune(right)
	if start := x + width - len(rightRunes); start > col+2 {
		for i, ch := range rightRunes {
			c.SetContent(start+i, y, ch, nil, s.Style)
		}
	}
}
