package buffer

import (
	"fmt"
	"sort"
	"sync"

	"richedit/style"
	"richedit/textpos"

	"github.com/dlclark/regexp2"
)

// RangeGroup is the capture group name that narrows a style pattern to
// part of each match.
const RangeGroup = "range"

type patternKey struct {
	pattern string
	opts    regexp2.RegexOptions
}

var (
	patternMu    sync.Mutex
	patternCache = map[patternKey]*regexp2.Regexp{}
)

// CompilePattern compiles and caches a regexp2 pattern. A malformed
// pattern yields an error wrapping ErrInvalidPattern.
func CompilePattern(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error) {
	key := patternKey{pattern, opts}
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[key]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	patternCache[key] = re
	return re, nil
}

// SetStyle adds id to every character of r.
func (d *Document) SetStyle(r textpos.Range, id style.ID) error {
	r, err := d.CheckRange(r)
	if err != nil {
		return err
	}
	d.eachChar(r, func(c *Char) { c.Style = d.styles.Add(c.Style, id) })
	return nil
}

// SetStylePattern adds id to the parts of r matching pattern, or to the
// "range" group of each match when the pattern defines one.
func (d *Document) SetStylePattern(r textpos.Range, id style.ID, pattern string, opts regexp2.RegexOptions) error {
	re, err := CompilePattern(pattern, opts)
	if err != nil {
		return err
	}
	return d.SetStyleRegexp(r, id, re)
}

func (d *Document) SetStyleRegexp(r textpos.Range, id style.ID, re *regexp2.Regexp) error {
	matches, err := d.Matches(r, re)
	if err != nil {
		return err
	}
	for _, m := range matches {
		d.eachChar(m, func(c *Char) { c.Style = d.styles.Add(c.Style, id) })
	}
	return nil
}

// SetStyleRecorded is SetStyle recorded on the undo log.
func (d *Document) SetStyleRecorded(r textpos.Range, id style.ID) error {
	r, err := d.CheckRange(r)
	if err != nil {
		return err
	}
	before := d.SnapshotStyles(r)
	d.eachChar(r, func(c *Char) { c.Style = d.styles.Add(c.Style, id) })
	d.record(Operation{Type: OpStyle, Range: r, StylesBefore: before, StylesAfter: d.SnapshotStyles(r)})
	return nil
}

// ClearStyle removes the given styles from r, leaving other styles in
// place. With no ids every style is removed.
func (d *Document) ClearStyle(r textpos.Range, ids ...style.ID) error {
	r, err := d.CheckRange(r)
	if err != nil {
		return err
	}
	d.eachChar(r, func(c *Char) {
		if len(ids) == 0 {
			c.Style = style.Empty
			return
		}
		c.Style = d.styles.Remove(c.Style, ids...)
	})
	return nil
}

// StylesAt returns the styles of the character at p in painting order.
func (d *Document) StylesAt(p textpos.Place) ([]style.ID, error) {
	if p.Line < 0 || p.Line >= len(d.lines) {
		return nil, fmt.Errorf("place %v: %w", p, ErrOutOfRange)
	}
	c, ok := d.lines[p.Line].Char(p.Col)
	if !ok {
		return nil, fmt.Errorf("place %v: %w", p, ErrOutOfRange)
	}
	return d.styles.IDs(c.Style), nil
}

// HasStyle reports whether the character at p carries id.
func (d *Document) HasStyle(p textpos.Place, id style.ID) bool {
	if p.Line < 0 || p.Line >= len(d.lines) {
		return false
	}
	c, ok := d.lines[p.Line].Char(p.Col)
	return ok && d.styles.Has(c.Style, id)
}

// SnapshotStyles copies the style sets of r, one slice per line.
func (d *Document) SnapshotStyles(r textpos.Range) [][]style.Set {
	var out [][]style.Set
	d.eachLineSpan(r, func(l *Line, from, to int) {
		row := make([]style.Set, to-from)
		for i := from; i < to; i++ {
			row[i-from] = l.chars[i].Style
		}
		out = append(out, row)
	})
	return out
}

// RestoreStyles writes back a snapshot taken with SnapshotStyles over
// the same range.
func (d *Document) RestoreStyles(r textpos.Range, snap [][]style.Set) {
	d.restoreStyles(r, snap)
}

func (d *Document) restoreStyles(r textpos.Range, snap [][]style.Set) {
	r, err := d.CheckRange(r)
	if err != nil {
		return
	}
	row := 0
	d.eachLineSpan(r, func(l *Line, from, to int) {
		if row >= len(snap) {
			return
		}
		for i := from; i < to && i-from < len(snap[row]); i++ {
			l.chars[i].Style = snap[row][i-from]
		}
		row++
	})
}

// Matches returns the ranges in r matched by re, narrowed to the "range"
// group when re has one. Zero-width matches are skipped and the scan is
// bounded by the length of the text.
func (d *Document) Matches(r textpos.Range, re *regexp2.Regexp) ([]textpos.Range, error) {
	r, err := d.CheckRange(r)
	if err != nil {
		return nil, err
	}
	text := d.rangeRunes(r)
	starts := lineStarts(text)
	toPlace := func(off int) textpos.Place {
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
		p := textpos.Place{Line: r.Start.Line + i, Col: off - starts[i]}
		if i == 0 {
			p.Col += r.Start.Col
		}
		return p
	}

	useGroup := hasGroup(re, RangeGroup)
	var out []textpos.Range
	m, err := re.FindRunesMatch(text)
	for n := 0; m != nil && err == nil && n <= len(text); n++ {
		idx, length := m.Index, m.Length
		if useGroup {
			idx, length = -1, 0
			if g := m.GroupByName(RangeGroup); g != nil && len(g.Captures) > 0 {
				idx, length = g.Index, g.Length
			}
		}
		if idx >= 0 && length > 0 {
			out = append(out, textpos.Range{Start: toPlace(idx), End: toPlace(idx + length)})
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", re.String(), err)
	}
	return out, nil
}

func hasGroup(re *regexp2.Regexp, name string) bool {
	for _, n := range re.GetGroupNames() {
		if n == name {
			return true
		}
	}
	return false
}

func lineStarts(text []rune) []int {
	starts := []int{0}
	for i, r := range text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (d *Document) eachLineSpan(r textpos.Range, fn func(l *Line, from, to int)) {
	for ln := r.Start.Line; ln <= r.End.Line; ln++ {
		l := d.lines[ln]
		from, to := 0, l.Len()
		if ln == r.Start.Line {
			from = r.Start.Col
		}
		if ln == r.End.Line {
			to = r.End.Col
		}
		fn(l, from, to)
	}
}

func (d *Document) eachChar(r textpos.Range, fn func(c *Char)) {
	d.eachLineSpan(r, func(l *Line, from, to int) {
		for i := from; i < to; i++ {
			fn(&l.chars[i])
		}
	})
}
