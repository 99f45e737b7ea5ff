// Package editor wires the document, highlighter and autocomplete engine
// into one control core and exposes the notification API a host view
// consumes.
package editor

import (
	"fmt"
	"time"

	"richedit/autocomplete"
	"richedit/buffer"
	"richedit/config"
	"richedit/highlight"
	"richedit/style"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.editor")

// Selection is an anchor and a caret. An empty selection is just a caret.
type Selection struct {
	Anchor, Caret textpos.Place
}

func (s Selection) Range() textpos.Range { return textpos.NewRange(s.Anchor, s.Caret) }

func (s Selection) Empty() bool { return s.Anchor == s.Caret }

type Editor struct {
	// OnTextChanged fires synchronously after every mutation.
	OnTextChanged func(buffer.ChangeEvent)

	// OnTextChangedDelayed fires after the highlight delay with the range
	// the delayed pass re-highlighted.
	OnTextChangedDelayed func(textpos.Range)

	OnVisibleRangeChangedDelayed func(textpos.LineSpan)
	OnSelectionChangedDelayed    func(Selection)

	// OnExternalChange fires when the open file changes on disk. reloaded
	// is false when unsaved edits kept the document as it was.
	OnExternalChange func(path string, reloaded bool)

	// OnError receives highlighter rule failures.
	OnError func(rule string, err error)

	cfg         *config.Config
	loop        *Loop
	styles      *style.Registry
	palette     *highlight.Palette
	doc         *buffer.Document
	highlighter *highlight.Engine
	complete    *autocomplete.Engine
	fuzzy       *autocomplete.FuzzyProvider
	outline     *outliner

	textChanged      *highlight.Debouncer[textpos.Range]
	visibleChanged   *highlight.Debouncer[textpos.LineSpan]
	selectionChanged *highlight.Debouncer[Selection]

	sel      Selection
	visible  textpos.LineSpan
	language string
	words    []string
	indent   config.Indentation
	now      func() time.Time

	file fileState
}

// New builds an editor whose delayed work runs on loop.
func New(cfg *config.Config, loop *Loop) (*Editor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var regOpts []style.Option
	if cfg.ExtendedStyles {
		regOpts = append(regOpts, style.WithExtendedSets())
	}
	styles := style.NewRegistry(regOpts...)
	palette, err := highlight.NewPalette(styles)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	applyColors(cfg, styles, palette)

	undo := buffer.NewUndoLog()
	undo.Quiet = cfg.UndoQuiet.D()
	doc := buffer.NewDocument(styles,
		buffer.WithTabSize(cfg.TabSize),
		buffer.WithMaxBlockScan(cfg.MaxBlockScan),
		buffer.WithHideFoldEnd(cfg.HideFoldEnd),
		buffer.WithUndoLog(undo),
	)

	e := &Editor{
		cfg:         cfg,
		loop:        loop,
		styles:      styles,
		palette:     palette,
		doc:         doc,
		highlighter: highlight.NewEngine(doc, highlight.NewRuleset("")),
		visible:     textpos.LineSpan{First: -1, Last: -1},
		indent:      cfg.Indentation("", ""),
		now:         time.Now,
		file:        fileState{lineEnding: "LF"},
	}
	e.highlighter.OnError = func(rule string, err error) {
		if e.OnError != nil {
			e.OnError(rule, err)
		}
	}

	e.fuzzy = autocomplete.NewFuzzyProvider(nil)
	e.complete = autocomplete.NewEngine(doc, autocomplete.ProviderFunc(e.wordCandidates))
	if cfg.AutocompleteFuzzy {
		e.complete.AddProvider(e.fuzzy)
	}
	e.complete.MinFragmentLength = cfg.AutocompleteMinLength
	e.complete.MaxFragmentScan = cfg.MaxFragmentScan
	e.complete.IndentUnit = e.indent.Unit()
	if err := e.complete.SetSearchPattern(cfg.AutocompleteSearchPattern); err != nil {
		return nil, err
	}
	e.complete.OnCommitted = func(ev *autocomplete.SelectedEvent) {
		e.setSelection(Selection{Anchor: ev.Caret, Caret: ev.Caret})
	}

	e.textChanged = highlight.NewDebouncer(cfg.HighlightDelay.D(), textpos.Range.Union, e.textChangedDelayed, loop.Post)
	e.visibleChanged = highlight.NewDebouncer(cfg.VisibleRangeDelay.D(), latest[textpos.LineSpan], e.visibleChangedDelayed, loop.Post)
	e.selectionChanged = highlight.NewDebouncer(cfg.SelectionDelay.D(), latest[Selection], e.selectionChangedDelayed, loop.Post)

	e.outline = newOutliner(loop.Post, func(words []string) {
		e.words = words
	}, e.fuzzy)

	doc.OnChanged(e.changed)
	doc.OnReadOnlyViolation(func(r textpos.Range) {
		log.Infof("edit rejected in read-only range %v", r)
	})
	return e, nil
}

func latest[T any](_, b T) T { return b }

// applyColors overrides the palette appearance from the [colors] table.
func applyColors(cfg *config.Config, styles *style.Registry, p *highlight.Palette) {
	for name, id := range map[string]style.ID{
		"keyword":   p.Keyword,
		"type":      p.Type,
		"string":    p.String,
		"comment":   p.Comment,
		"number":    p.Number,
		"attribute": p.Attribute,
		"function":  p.Function,
		"tag":       p.Tag,
		"value":     p.Value,
	} {
		color, ok := cfg.Color(name)
		if !ok {
			continue
		}
		if ts, ok := styles.Style(id).(*style.TextStyle); ok {
			ts.Appearance = ts.Appearance.Foreground(color)
		}
	}
}

func (e *Editor) Document() *buffer.Document         { return e.doc }
func (e *Editor) Styles() *style.Registry            { return e.styles }
func (e *Editor) Palette() *highlight.Palette        { return e.palette }
func (e *Editor) Highlighter() *highlight.Engine     { return e.highlighter }
func (e *Editor) Autocomplete() *autocomplete.Engine { return e.complete }
func (e *Editor) Config() *config.Config             { return e.cfg }
func (e *Editor) Loop() *Loop                        { return e.loop }
func (e *Editor) Language() string                   { return e.language }
func (e *Editor) Indentation() config.Indentation    { return e.indent }

func (e *Editor) LineCount() int { return e.doc.LineCount() }

func (e *Editor) LineText(i int) (string, error) { return e.doc.LineText(i) }

func (e *Editor) Text() string { return e.doc.Text() }

// SetText replaces the content and highlights it right away.
func (e *Editor) SetText(text string) {
	e.complete.Cancel()
	e.doc.SetText(text)
	e.sel = Selection{}
	e.textChanged.Flush()
}

// SetLanguage switches the ruleset and re-highlights the document.
func (e *Editor) SetLanguage(name string) {
	e.language = name
	e.highlighter.SetRuleset(highlight.ForLanguage(name, e.palette))
	e.setIndentation(e.cfg.Indentation(e.file.path, name))
	log.Infof("language %q", name)
}

// SetRuleset installs a custom ruleset.
func (e *Editor) SetRuleset(rs *highlight.Ruleset) {
	e.language = rs.Name
	e.highlighter.SetRuleset(rs)
}

func (e *Editor) setIndentation(in config.Indentation) {
	e.indent = in
	e.doc.TabSize = in.TabSize
	e.complete.IndentUnit = in.Unit()
}

// AddProvider adds an autocomplete candidate source.
func (e *Editor) AddProvider(p autocomplete.Provider) {
	e.complete.AddProvider(p)
}

func (e *Editor) wordCandidates(fragment string) []autocomplete.Item {
	items := make([]autocomplete.Item, 0, len(e.words))
	for _, w := range e.words {
		if w != fragment {
			items = append(items, &autocomplete.Keyword{Word: w, Strict: true})
		}
	}
	return items
}

// Words returns the vocabulary the outline worker last extracted.
func (e *Editor) Words() []string { return e.words }

func (e *Editor) changed(ev buffer.ChangeEvent) {
	e.sel.Anchor = e.doc.ClampPlace(e.sel.Anchor)
	e.sel.Caret = e.doc.ClampPlace(e.sel.Caret)
	e.complete.Refresh(e.sel.Caret)
	e.textChanged.Notify(ev.Range)
	if e.OnTextChanged != nil {
		e.OnTextChanged(ev)
	}
}

// textChangedDelayed re-highlights the merged range plus any line still
// flagged as changed; lines may have moved since the range was recorded.
func (e *Editor) textChangedDelayed(r textpos.Range) {
	if changed := e.doc.ChangedLines(); len(changed) > 0 {
		r = r.Union(textpos.Range{
			Start: textpos.Place{Line: changed[0]},
			End:   textpos.Place{Line: changed[len(changed)-1]},
		})
	}
	scanned := e.highlighter.Highlight(r)
	e.outline.submit(e.doc.Text())
	if e.OnTextChangedDelayed != nil {
		e.OnTextChangedDelayed(scanned)
	}
}

func (e *Editor) visibleChangedDelayed(span textpos.LineSpan) {
	if e.OnVisibleRangeChangedDelayed != nil {
		e.OnVisibleRangeChangedDelayed(span)
	}
}

func (e *Editor) selectionChangedDelayed(s Selection) {
	if e.OnSelectionChangedDelayed != nil {
		e.OnSelectionChangedDelayed(s)
	}
}

// Flush runs every pending delayed notification now.
func (e *Editor) Flush() {
	e.textChanged.Flush()
	e.visibleChanged.Flush()
	e.selectionChanged.Flush()
}

// Close stops timers, the outline worker and the file watch.
func (e *Editor) Close() error {
	e.textChanged.Stop()
	e.visibleChanged.Stop()
	e.selectionChanged.Stop()
	e.outline.stop()
	return e.unwatch()
}

func (e *Editor) Selection() Selection { return e.sel }

func (e *Editor) Caret() textpos.Place { return e.sel.Caret }

// SetSelection moves the selection, clamped to the document.
func (e *Editor) SetSelection(anchor, caret textpos.Place) {
	e.setSelection(Selection{Anchor: e.doc.ClampPlace(anchor), Caret: e.doc.ClampPlace(caret)})
}

func (e *Editor) SetCaret(p textpos.Place) {
	e.SetSelection(p, p)
}

func (e *Editor) setSelection(s Selection) {
	if s == e.sel {
		return
	}
	if s.Caret.Line != e.sel.Caret.Line {
		_ = e.doc.Visit(s.Caret.Line, e.now())
	}
	e.sel = s
	e.selectionChanged.Notify(s)
}

// SelectedText returns the text of the selection.
func (e *Editor) SelectedText() string {
	text, _ := e.doc.RangeText(e.sel.Range())
	return text
}

// SetVisibleRange tells the editor which lines the host shows.
func (e *Editor) SetVisibleRange(span textpos.LineSpan) {
	if span == e.visible {
		return
	}
	e.visible = span
	e.visibleChanged.Notify(span)
}

func (e *Editor) VisibleRange() textpos.LineSpan { return e.visible }

// InsertText replaces the selection with text as one undo step and moves
// the caret after it.
func (e *Editor) InsertText(text string) error {
	var r textpos.Range
	var err error
	if e.sel.Empty() {
		// plain typing keeps coalescing into the open transaction
		r, err = e.doc.InsertText(e.sel.Caret, text)
	} else {
		r, err = e.doc.Replace(e.sel.Range(), text)
	}
	if err != nil {
		return err
	}
	e.setSelection(Selection{Anchor: r.End, Caret: r.End})
	return nil
}

// InsertAt inserts text at p without moving the selection.
func (e *Editor) InsertAt(p textpos.Place, text string) (textpos.Range, error) {
	return e.doc.InsertText(p, text)
}

// RemoveRange removes r without moving the selection.
func (e *Editor) RemoveRange(r textpos.Range) (string, error) {
	return e.doc.RemoveRange(r)
}

// TypeRune inserts r the way typing does and keeps the autocomplete popup
// in step with the fragment at the caret.
func (e *Editor) TypeRune(r rune) error {
	e.complete.HandleRune(r)
	if err := e.InsertText(string(r)); err != nil {
		return err
	}
	if frag := e.complete.Fragment(e.sel.Caret); !frag.Empty() && frag.End == e.sel.Caret {
		e.complete.Update(e.sel.Caret, false)
	}
	return nil
}

// NewLine splits the line at the caret and repeats its indentation.
func (e *Editor) NewLine() error {
	line, _ := e.doc.LineText(e.sel.Caret.Line)
	indent := []rune{}
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		indent = append(indent, r)
	}
	return e.InsertText("\n" + string(indent))
}

// Indent inserts one indentation unit.
func (e *Editor) Indent() error {
	return e.InsertText(e.indent.Unit())
}

// Backspace removes the selection, or the character before the caret.
func (e *Editor) Backspace() error {
	if !e.sel.Empty() {
		return e.InsertText("")
	}
	c := e.sel.Caret
	if c.Line == 0 && c.Col == 0 {
		return nil
	}
	prev := e.doc.GoLeftThroughFolded(c)
	// a step over a collapsed block unfolds it; the hidden text survives
	if e.doc.ExpandHidden(prev.Line, c.Line) {
		return nil
	}
	if _, err := e.doc.RemoveRange(textpos.NewRange(prev, c)); err != nil {
		return err
	}
	e.setSelection(Selection{Anchor: prev, Caret: prev})
	if e.complete.State() != autocomplete.Closed {
		e.complete.Update(prev, false)
	}
	return nil
}

// Delete removes the selection, or the character after the caret.
func (e *Editor) Delete() error {
	if !e.sel.Empty() {
		return e.InsertText("")
	}
	c := e.sel.Caret
	next := e.doc.GoRightThroughFolded(c)
	if next == c || e.doc.ExpandHidden(c.Line, next.Line) {
		return nil
	}
	_, err := e.doc.RemoveRange(textpos.NewRange(c, next))
	return err
}

// MoveCaret steps the caret left or right through folded blocks, or up and
// down through visible lines. With extend the anchor stays put.
func (e *Editor) MoveCaret(key tcell.Key, extend bool) {
	c := e.sel.Caret
	switch key {
	case tcell.KeyLeft:
		c = e.doc.GoLeftThroughFolded(c)
	case tcell.KeyRight:
		c = e.doc.GoRightThroughFolded(c)
	case tcell.KeyUp, tcell.KeyDown:
		c = e.verticalStep(c, key == tcell.KeyDown)
	case tcell.KeyHome:
		c.Col = 0
	case tcell.KeyEnd:
		c = e.doc.ClampPlace(textpos.Place{Line: c.Line, Col: 1 << 30})
	default:
		return
	}
	anchor := c
	if extend {
		anchor = e.sel.Anchor
	}
	e.complete.Cancel()
	e.setSelection(Selection{Anchor: anchor, Caret: c})
}

func (e *Editor) verticalStep(c textpos.Place, down bool) textpos.Place {
	visible := e.doc.VisibleLines()
	for i, ln := range visible {
		if ln < c.Line {
			continue
		}
		j := i
		if ln == c.Line {
			if down {
				j++
			} else {
				j--
			}
		} else if !down {
			j--
		}
		if j < 0 || j >= len(visible) {
			return c
		}
		return e.doc.ClampPlace(textpos.Place{Line: visible[j], Col: c.Col})
	}
	return c
}

// Undo reverts the last transaction and puts the caret where it happened.
func (e *Editor) Undo() bool {
	e.complete.Cancel()
	p, ok := e.doc.Undo()
	if ok {
		e.setSelection(Selection{Anchor: p, Caret: p})
	}
	return ok
}

func (e *Editor) Redo() bool {
	e.complete.Cancel()
	p, ok := e.doc.Redo()
	if ok {
		e.setSelection(Selection{Anchor: p, Caret: p})
	}
	return ok
}

// BeginAutoUndo groups every following edit into one undo step until the
// matching EndAutoUndo.
func (e *Editor) BeginAutoUndo() { e.doc.BeginAutoUndo() }

func (e *Editor) EndAutoUndo() { e.doc.EndAutoUndo() }

// ShowAutocomplete opens the popup for the fragment at the caret even when
// it is shorter than the minimum.
func (e *Editor) ShowAutocomplete() autocomplete.State {
	return e.complete.Update(e.sel.Caret, true)
}

// Fragment returns the autocomplete fragment at the caret.
func (e *Editor) Fragment() string {
	return e.complete.FragmentText(e.sel.Caret)
}

// ToggleBookmark flips the bookmark of the caret line.
func (e *Editor) ToggleBookmark() {
	ln := e.sel.Caret.Line
	l, err := e.doc.Line(ln)
	if err != nil {
		return
	}
	_ = e.doc.SetBookmark(ln, !l.Bookmarked())
}

// NextBookmark moves the caret to the next bookmarked line.
func (e *Editor) NextBookmark() bool {
	ln, ok := e.doc.NextBookmark(e.sel.Caret.Line)
	if ok {
		e.SetCaret(textpos.Place{Line: ln})
	}
	return ok
}

func (e *Editor) PrevBookmark() bool {
	ln, ok := e.doc.PrevBookmark(e.sel.Caret.Line)
	if ok {
		e.SetCaret(textpos.Place{Line: ln})
	}
	return ok
}

// NavigateBackward moves the caret to the previously visited line.
func (e *Editor) NavigateBackward() bool {
	ln, ok := e.doc.NavigateBackward(e.sel.Caret.Line)
	if ok {
		e.sel = Selection{Caret: textpos.Place{Line: ln}, Anchor: textpos.Place{Line: ln}}
		e.selectionChanged.Notify(e.sel)
	}
	return ok
}

func (e *Editor) NavigateForward() bool {
	ln, ok := e.doc.NavigateForward(e.sel.Caret.Line)
	if ok {
		e.sel = Selection{Caret: textpos.Place{Line: ln}, Anchor: textpos.Place{Line: ln}}
		e.selectionChanged.Notify(e.sel)
	}
	return ok
}

// ToggleFold collapses or expands the block opened on the caret line.
func (e *Editor) ToggleFold() {
	e.doc.ToggleFold(e.sel.Caret.Line)
}
