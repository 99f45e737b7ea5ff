// Package autocomplete filters candidate items against the fragment at
// the caret and commits the chosen one into a buffer.Document.
package autocomplete

import (
	"strings"

	"richedit/buffer"
	"richedit/textpos"

	"github.com/agnivade/levenshtein"
)

type CompareResult int

const (
	Hidden CompareResult = iota
	Visible
	VisibleAndSelected
)

func (c CompareResult) String() string {
	switch c {
	case Visible:
		return "visible"
	case VisibleAndSelected:
		return "visible+selected"
	}
	return "hidden"
}

// Item is one autocomplete candidate.
type Item interface {
	// Text is what the list shows.
	Text() string
	Compare(fragment string) CompareResult
	TextForReplace() string
}

// Tooltipper is implemented by items with a tooltip.
type Tooltipper interface {
	Tooltip() (title, text string)
}

// Imager is implemented by items with an icon.
type Imager interface {
	ImageIndex() int
}

// SelectHook is implemented by items that react to being committed.
type SelectHook interface {
	OnSelected(ev *SelectedEvent)
}

// Placeholder is implemented by items whose replacement text carries a
// caret marker.
type Placeholder interface {
	CaretMarker() string
}

// SelectedEvent describes a committed item.
type SelectedEvent struct {
	Item     Item
	Doc      *buffer.Document
	Inserted textpos.Range
	Caret    textpos.Place
}

// Keyword is a plain word. It matches fragments it starts with, allowing
// one typo after the first letter unless Strict is set.
type Keyword struct {
	Word         string
	ToolTipTitle string
	ToolTipText  string
	Image        int
	Strict       bool
	Selected     func(ev *SelectedEvent)
}

func (k *Keyword) Text() string           { return k.Word }
func (k *Keyword) TextForReplace() string { return k.Word }
func (k *Keyword) ImageIndex() int        { return k.Image }

func (k *Keyword) Compare(fragment string) CompareResult {
	return comparePrefix(k.Word, fragment, !k.Strict)
}

func (k *Keyword) Tooltip() (string, string) {
	return k.ToolTipTitle, k.ToolTipText
}

func (k *Keyword) OnSelected(ev *SelectedEvent) {
	if k.Selected != nil {
		k.Selected(ev)
	}
}

// Snippet is a template inserted with indentation applied to its
// continuation lines. Marker, "^" by default, is where the caret lands.
type Snippet struct {
	Template string
	Menu     string
	Marker   string
}

func (s *Snippet) marker() string {
	if s.Marker == "" {
		return "^"
	}
	return s.Marker
}

// Text is the menu label, or the first template line without the marker.
func (s *Snippet) Text() string {
	if s.Menu != "" {
		return s.Menu
	}
	first, _, _ := strings.Cut(s.Template, "\n")
	return strings.TrimSpace(strings.ReplaceAll(first, s.marker(), ""))
}

func (s *Snippet) Compare(fragment string) CompareResult {
	return comparePrefix(s.Text(), fragment, false)
}

func (s *Snippet) TextForReplace() string { return s.Template }
func (s *Snippet) CaretMarker() string    { return s.marker() }

// Method is a member name offered after the last '.' of a qualified
// fragment. Qualifier is the expression before the dot and is written back
// in front of Name on replace.
type Method struct {
	Name      string
	Qualifier string
	Image     int
}

func (m *Method) Text() string    { return m.Name }
func (m *Method) ImageIndex() int { return m.Image }

func (m *Method) Compare(fragment string) CompareResult {
	i := strings.LastIndexByte(fragment, '.')
	if i < 0 {
		return Hidden
	}
	last := fragment[i+1:]
	if last == "" {
		return Visible
	}
	return comparePrefix(m.Name, last, false)
}

func (m *Method) TextForReplace() string {
	if m.Qualifier == "" {
		return m.Name
	}
	return m.Qualifier + "." + m.Name
}

// Substring matches any fragment it contains, case-insensitively.
type Substring struct {
	Word string
}

func (s *Substring) Text() string           { return s.Word }
func (s *Substring) TextForReplace() string { return s.Word }

func (s *Substring) Compare(fragment string) CompareResult {
	w, f := strings.ToLower(s.Word), strings.ToLower(fragment)
	switch {
	case w == f:
		return VisibleAndSelected
	case strings.Contains(w, f):
		return Visible
	}
	return Hidden
}

// Correction is a spelling suggestion for a mistyped fragment.
type Correction struct {
	Word        string
	MaxDistance int
}

func (c *Correction) Text() string           { return c.Word }
func (c *Correction) TextForReplace() string { return c.Word }

func (c *Correction) Compare(fragment string) CompareResult {
	d := levenshtein.ComputeDistance(strings.ToLower(fragment), strings.ToLower(c.Word))
	if d == 0 || d > max(c.MaxDistance, 1) {
		return Hidden
	}
	return Visible
}

func (c *Correction) Tooltip() (string, string) {
	return "Did you mean", c.Word
}

// comparePrefix is the shared keyword rule: exact match selects, prefix
// shows, and with tolerant a one-edit prefix that keeps the first letter
// also shows.
func comparePrefix(text, fragment string, tolerant bool) CompareResult {
	t, f := strings.ToLower(text), strings.ToLower(fragment)
	switch {
	case f == "":
		return Visible
	case t == f:
		return VisibleAndSelected
	case strings.HasPrefix(t, f):
		return Visible
	case tolerant && typoPrefix([]rune(t), []rune(f)):
		return Visible
	}
	return Hidden
}

func typoPrefix(t, f []rune) bool {
	if len(f) < 2 || len(t) < len(f) || t[0] != f[0] {
		return false
	}
	return levenshtein.ComputeDistance(string(t[:len(f)]), string(f)) <= 1
}
