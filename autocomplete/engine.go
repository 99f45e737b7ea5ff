package autocomplete

import (
	"errors"
	"fmt"
	"strings"

	"richedit/buffer"
	"richedit/textpos"

	"github.com/dlclark/regexp2"
	"github.com/gdamore/tcell/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.autocomplete")

// ErrStaleFragment is returned by Commit when the document no longer holds
// the fragment the popup was filtered for.
var ErrStaleFragment = errors.New("fragment changed since the popup opened")

type State int

const (
	Closed State = iota
	Filtering
	Shown
)

func (s State) String() string {
	switch s {
	case Filtering:
		return "filtering"
	case Shown:
		return "shown"
	}
	return "closed"
}

const (
	DefaultSearchPattern   = `[\w\.]`
	DefaultMinFragment     = 2
	DefaultMaxFragmentScan = 256
	pageSize               = 10
)

// Engine tracks the popup state for one document.
type Engine struct {
	// MinFragmentLength gates unforced updates.
	MinFragmentLength int

	// MaxFragmentScan caps how far the fragment scan walks from the caret.
	MaxFragmentScan int

	// IndentUnit replaces each leading tab of snippet continuation lines.
	IndentUnit string

	OnStateChanged func(State)
	OnCommitted    func(ev *SelectedEvent)

	doc       *buffer.Document
	providers []Provider
	search    *regexp2.Regexp
	state     State
	fragment  textpos.Range
	fragText  string
	visible   []Item
	selected  int
}

func NewEngine(doc *buffer.Document, providers ...Provider) *Engine {
	e := &Engine{
		MinFragmentLength: DefaultMinFragment,
		MaxFragmentScan:   DefaultMaxFragmentScan,
		IndentUnit:        "\t",
		doc:               doc,
		providers:         providers,
	}
	if err := e.SetSearchPattern(DefaultSearchPattern); err != nil {
		panic(err)
	}
	return e
}

// SetSearchPattern sets the character class a fragment is made of, e.g.
// `[\w\.:]` for qualified names.
func (e *Engine) SetSearchPattern(class string) error {
	re, err := regexp2.Compile(`^(?:`+class+`)$`, regexp2.None)
	if err != nil {
		return fmt.Errorf("%w %q: %v", buffer.ErrInvalidPattern, class, err)
	}
	e.search = re
	return nil
}

func (e *Engine) AddProvider(p Provider) {
	e.providers = append(e.providers, p)
}

func (e *Engine) State() State { return e.state }

// Visible returns the shown candidates in provider order.
func (e *Engine) Visible() []Item { return e.visible }

// Selected returns the highlighted candidate, or nil when closed.
func (e *Engine) Selected() Item {
	if e.state != Shown || e.selected < 0 || e.selected >= len(e.visible) {
		return nil
	}
	return e.visible[e.selected]
}

func (e *Engine) SelectedIndex() int { return e.selected }

func (e *Engine) matches(r rune) bool {
	ok, err := e.search.MatchString(string(r))
	return err == nil && ok
}

// Fragment returns the run of search-pattern characters around caret on
// its line.
func (e *Engine) Fragment(caret textpos.Place) textpos.Range {
	caret = e.doc.ClampPlace(caret)
	l, err := e.doc.Line(caret.Line)
	if err != nil {
		return textpos.Range{Start: caret, End: caret}
	}
	rs := l.Runes()
	from, to := caret.Col, caret.Col
	for n := 0; from > 0 && n < e.MaxFragmentScan && e.matches(rs[from-1]); n++ {
		from--
	}
	for n := 0; to < len(rs) && n < e.MaxFragmentScan && e.matches(rs[to]); n++ {
		to++
	}
	return textpos.LineRange(caret.Line, from, to)
}

// FragmentText is the text of Fragment(caret).
func (e *Engine) FragmentText(caret textpos.Place) string {
	text, _ := e.doc.RangeText(e.Fragment(caret))
	return text
}

// Update re-filters the candidates for the fragment at caret. Unless
// forced, fragments shorter than MinFragmentLength close the popup.
func (e *Engine) Update(caret textpos.Place, forced bool) State {
	frag := e.Fragment(caret)
	text, _ := e.doc.RangeText(frag)
	if !forced && len([]rune(text)) < e.MinFragmentLength {
		e.close()
		return e.state
	}
	e.setState(Filtering)

	var visible []Item
	selected := 0
	for _, p := range e.providers {
		for _, item := range p.Candidates(text) {
			switch item.Compare(text) {
			case Visible:
				visible = append(visible, item)
			case VisibleAndSelected:
				visible = append(visible, item)
				selected = len(visible) - 1
			}
		}
	}
	if len(visible) == 0 {
		e.close()
		return e.state
	}
	e.fragment, e.fragText = frag, text
	e.visible, e.selected = visible, selected
	e.setState(Shown)
	log.Debugf("%d candidates for %q", len(visible), text)
	return e.state
}

// current reports whether the document still holds the fragment the
// candidates were filtered for, at the same place.
func (e *Engine) current() bool {
	text, err := e.doc.RangeText(e.fragment)
	return err == nil && text == e.fragText
}

// Refresh keeps an open popup in step with an edit made while it is open.
// While the filtered fragment is intact nothing changes; otherwise the
// popup follows the fragment ending at caret, or closes when there is none.
func (e *Engine) Refresh(caret textpos.Place) State {
	if e.state == Closed || e.current() {
		return e.state
	}
	if frag := e.Fragment(caret); !frag.Empty() && frag.End == e.doc.ClampPlace(caret) {
		return e.Update(caret, false)
	}
	e.close()
	return e.state
}

// Select highlights candidate i.
func (e *Engine) Select(i int) {
	if e.state == Shown && i >= 0 && i < len(e.visible) {
		e.selected = i
	}
}

// Move shifts the highlight by delta, clamped to the list.
func (e *Engine) Move(delta int) {
	if e.state != Shown {
		return
	}
	e.selected = min(max(e.selected+delta, 0), len(e.visible)-1)
}

// Cancel closes the popup without touching the document.
func (e *Engine) Cancel() {
	e.close()
}

// Commit replaces the fragment with the selected item as one undo step
// and returns the new caret place.
func (e *Engine) Commit() (textpos.Place, error) {
	item := e.Selected()
	if item == nil {
		return textpos.Place{}, fmt.Errorf("commit: nothing selected")
	}
	frag, ok := e.fragment, e.current()
	e.close()
	if !ok {
		return textpos.Place{}, fmt.Errorf("commit %q: %w", item.Text(), ErrStaleFragment)
	}

	text, caretAt := item.TextForReplace(), -1
	if ph, ok := item.(Placeholder); ok {
		text, caretAt = e.expandSnippet(text, ph.CaretMarker(), frag.Start)
	}
	e.doc.BeginAutoUndo()
	inserted, err := e.doc.Replace(frag, text)
	e.doc.EndAutoUndo()
	if err != nil {
		return textpos.Place{}, fmt.Errorf("commit %q: %w", item.Text(), err)
	}

	caret := inserted.End
	if caretAt >= 0 {
		caret = advance(frag.Start, []rune(text)[:caretAt])
	}
	ev := &SelectedEvent{Item: item, Doc: e.doc, Inserted: inserted, Caret: caret}
	if hook, ok := item.(SelectHook); ok {
		hook.OnSelected(ev)
	}
	if e.OnCommitted != nil {
		e.OnCommitted(ev)
	}
	return ev.Caret, nil
}

// expandSnippet indents continuation lines like the line the snippet is
// inserted on, and strips the first caret marker. It returns the text and
// the rune offset of the marker, or -1.
func (e *Engine) expandSnippet(text, marker string, at textpos.Place) (string, int) {
	base := ""
	if line, err := e.doc.LineText(at.Line); err == nil {
		base = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		body := strings.TrimLeft(lines[i], "\t")
		tabs := len(lines[i]) - len(body)
		lines[i] = base + strings.Repeat(e.IndentUnit, tabs) + body
	}
	text = strings.Join(lines, "\n")
	i := strings.Index(text, marker)
	if marker == "" || i < 0 {
		return text, -1
	}
	text = text[:i] + text[i+len(marker):]
	return text, len([]rune(text[:i]))
}

// advance returns the place after text inserted at p.
func advance(p textpos.Place, text []rune) textpos.Place {
	for _, r := range text {
		if r == '\n' {
			p.Line++
			p.Col = 0
			continue
		}
		p.Col++
	}
	return p
}

// HandleKey applies popup navigation keys and reports whether the key was
// consumed.
func (e *Engine) HandleKey(ev *tcell.EventKey) bool {
	if e.state != Shown {
		return false
	}
	switch ev.Key() {
	case tcell.KeyUp:
		e.Move(-1)
		return true
	case tcell.KeyDown:
		e.Move(1)
		return true
	case tcell.KeyPgUp:
		e.Move(-pageSize)
		return true
	case tcell.KeyPgDn:
		e.Move(pageSize)
		return true
	case tcell.KeyEnter, tcell.KeyTab:
		if _, err := e.Commit(); err != nil {
			log.Warningf("%s", err.Error())
		}
		return true
	case tcell.KeyEscape:
		e.Cancel()
		return true
	case tcell.KeyRune:
		e.HandleRune(ev.Rune())
	}
	return false
}

// HandleRune closes the popup when r cannot extend the fragment. The rune
// itself is never consumed.
func (e *Engine) HandleRune(r rune) {
	if e.state != Closed && !e.matches(r) {
		e.close()
	}
}

func (e *Engine) close() {
	e.visible, e.selected = nil, 0
	e.setState(Closed)
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.state = s
	if e.OnStateChanged != nil {
		e.OnStateChanged(s)
	}
}
