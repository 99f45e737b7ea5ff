package buffer

import (
	"fmt"
	"strings"

	"richedit/style"
	"richedit/textpos"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.buffer")

const defaultMaxBlockScan = 100000

// ChangeEvent describes one mutation. Range is the inserted text for
// insertions and the collapsed start place for removals.
type ChangeEvent struct {
	Range      textpos.Range
	Lines      textpos.LineSpan
	LinesDelta int
	Removed    bool
}

// TextSource is the read and notify contract shared by Document and the
// lazy file-backed source.
type TextSource interface {
	LineCount() int
	LineText(i int) (string, error)
	OnChanged(fn func(ChangeEvent))
}

// Document is the line store. It owns the undo log, style registry and
// folding state. It is not safe for concurrent use: all calls come from
// one mutation thread.
type Document struct {
	lines  []*Line
	styles *style.Registry
	undo   *UndoLog

	TabSize int

	// MaxBlockScan caps the number of lines the folding matcher visits.
	MaxBlockScan int

	// HideFoldEnd also hides the end-marker line of a collapsed block.
	HideFoldEnd bool

	// Modified is set by every mutation and cleared by MarkSaved.
	Modified bool

	listeners   []func(ChangeEvent)
	roListeners []func(textpos.Range)
	replaying   bool
}

type Option func(*Document)

func WithTabSize(n int) Option {
	return func(d *Document) { d.TabSize = n }
}

func WithMaxBlockScan(n int) Option {
	return func(d *Document) { d.MaxBlockScan = n }
}

func WithHideFoldEnd(on bool) Option {
	return func(d *Document) { d.HideFoldEnd = on }
}

func WithUndoLog(u *UndoLog) Option {
	return func(d *Document) { d.undo = u }
}

// NewDocument returns a document holding a single empty line.
func NewDocument(styles *style.Registry, opts ...Option) *Document {
	if styles == nil {
		styles = style.NewRegistry()
	}
	d := &Document{
		lines:        []*Line{newLine(nil)},
		styles:       styles,
		TabSize:      4,
		MaxBlockScan: defaultMaxBlockScan,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.undo == nil {
		d.undo = NewUndoLog()
	}
	return d
}

func (d *Document) Styles() *style.Registry { return d.styles }

func (d *Document) UndoLog() *UndoLog { return d.undo }

func (d *Document) LineCount() int { return len(d.lines) }

// Line returns line i or ErrOutOfRange.
func (d *Document) Line(i int) (*Line, error) {
	if i < 0 || i >= len(d.lines) {
		return nil, fmt.Errorf("line %d of %d: %w", i, len(d.lines), ErrOutOfRange)
	}
	return d.lines[i], nil
}

func (d *Document) LineText(i int) (string, error) {
	l, err := d.Line(i)
	if err != nil {
		return "", err
	}
	return l.Text(), nil
}

// Text returns the whole document joined with "\n".
func (d *Document) Text() string {
	var sb strings.Builder
	for i, l := range d.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range l.chars {
			sb.WriteRune(c.R)
		}
	}
	return sb.String()
}

// SetText replaces the whole content, drops undo history and styles, and
// notifies listeners with the full range.
func (d *Document) SetText(text string) {
	oldLast := len(d.lines) - 1
	segs := splitText(text)
	d.lines = make([]*Line, len(segs))
	for i, seg := range segs {
		d.lines[i] = newLine(seg)
	}
	d.undo.Reset()
	d.emit(ChangeEvent{
		Range:      d.FullRange(),
		Lines:      textpos.LineSpan{First: 0, Last: len(d.lines) - 1},
		LinesDelta: len(d.lines) - 1 - oldLast,
	})
	d.Modified = false
}

// MarkSaved clears the Modified flag.
func (d *Document) MarkSaved() {
	d.Modified = false
}

// FullRange spans the whole document.
func (d *Document) FullRange() textpos.Range {
	last := len(d.lines) - 1
	return textpos.Range{End: textpos.Place{Line: last, Col: d.lines[last].Len()}}
}

// OnChanged registers a listener called synchronously after every mutation.
func (d *Document) OnChanged(fn func(ChangeEvent)) {
	d.listeners = append(d.listeners, fn)
}

// OnReadOnlyViolation registers a listener for rejected edits.
func (d *Document) OnReadOnlyViolation(fn func(textpos.Range)) {
	d.roListeners = append(d.roListeners, fn)
}

func (d *Document) emit(ev ChangeEvent) {
	d.Modified = true
	for _, fn := range d.listeners {
		fn(ev)
	}
}

// CheckPlace returns ErrOutOfRange unless p addresses a character or the
// end of a line.
func (d *Document) CheckPlace(p textpos.Place) error {
	if p.Line < 0 || p.Line >= len(d.lines) || p.Col < 0 || p.Col > d.lines[p.Line].Len() {
		return fmt.Errorf("place %v: %w", p, ErrOutOfRange)
	}
	return nil
}

// CheckRange normalizes r and validates both ends.
func (d *Document) CheckRange(r textpos.Range) (textpos.Range, error) {
	r = r.Normalize()
	if err := d.CheckPlace(r.Start); err != nil {
		return r, err
	}
	if err := d.CheckPlace(r.End); err != nil {
		return r, err
	}
	return r, nil
}

// ClampPlace moves p inside the document. It is meant for UI convenience
// paths; explicit APIs report ErrOutOfRange instead.
func (d *Document) ClampPlace(p textpos.Place) textpos.Place {
	p.Line = min(max(p.Line, 0), len(d.lines)-1)
	p.Col = min(max(p.Col, 0), d.lines[p.Line].Len())
	return p
}

// RangeText returns the text of r, lines joined with "\n".
func (d *Document) RangeText(r textpos.Range) (string, error) {
	r, err := d.CheckRange(r)
	if err != nil {
		return "", err
	}
	return string(d.rangeRunes(r)), nil
}

func (d *Document) rangeRunes(r textpos.Range) []rune {
	var out []rune
	for ln := r.Start.Line; ln <= r.End.Line; ln++ {
		l := d.lines[ln]
		from, to := 0, l.Len()
		if ln == r.Start.Line {
			from = r.Start.Col
		}
		if ln == r.End.Line {
			to = r.End.Col
		}
		if ln > r.Start.Line {
			out = append(out, '\n')
		}
		for _, c := range l.chars[from:to] {
			out = append(out, c.R)
		}
	}
	return out
}

// ExpandToFullLines grows r to cover whole lines.
func (d *Document) ExpandToFullLines(r textpos.Range) textpos.Range {
	r = r.Normalize()
	r.Start = d.ClampPlace(r.Start)
	r.End = d.ClampPlace(r.End)
	r.Start.Col = 0
	r.End.Col = d.lines[r.End.Line].Len()
	return r
}

// MarkHighlighted clears the changed flag of every line in span.
func (d *Document) MarkHighlighted(span textpos.LineSpan) {
	for ln := max(span.First, 0); ln <= span.Last && ln < len(d.lines); ln++ {
		d.lines[ln].changed = false
	}
}

// ChangedLines lists the lines edited since their last highlight pass.
func (d *Document) ChangedLines() []int {
	var out []int
	for i, l := range d.lines {
		if l.changed {
			out = append(out, i)
		}
	}
	return out
}

// Words returns the identifier-like words of the document, in order of
// first appearance.
func (d *Document) Words() []string {
	seen := map[string]bool{}
	var words []string
	for _, l := range d.lines {
		start := -1
		rs := l.Runes()
		for i := 0; i <= len(rs); i++ {
			if i < len(rs) && isWordRune(rs[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				w := string(rs[start:i])
				if !seen[w] {
					seen[w] = true
					words = append(words, w)
				}
				start = -1
			}
		}
	}
	return words
}
