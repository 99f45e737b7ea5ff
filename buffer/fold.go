package buffer

import (
	"fmt"
	"iter"

	"richedit/textpos"

	"github.com/dlclark/regexp2"
)

// FoldingPair is a compiled start/end marker pattern pair.
type FoldingPair struct {
	Start, End *regexp2.Regexp
}

// ID is the marker id both ends of the pair record: the start pattern
// text, so pairs from different rules never match each other.
func (fp FoldingPair) ID() string {
	return fp.Start.String()
}

// SetFoldingMarkers scans the lines of r and records startPattern as the
// marker id of the lines matching either pattern. Markers from an earlier
// pass are replaced on the scanned lines only.
func (d *Document) SetFoldingMarkers(r textpos.Range, startPattern, endPattern string) error {
	start, err := CompilePattern(startPattern, regexp2.None)
	if err != nil {
		return err
	}
	end, err := CompilePattern(endPattern, regexp2.None)
	if err != nil {
		return err
	}
	return d.SetFoldingRegexps(r, FoldingPair{Start: start, End: end})
}

// SetFoldingRegexps clears the markers of r and applies every pair in
// order; a later pair overrides an earlier one on the same line. Markers
// that balance within a line, as in "int[] a = { 1 };", cancel out, so the
// line neither opens nor closes a block.
func (d *Document) SetFoldingRegexps(r textpos.Range, pairs ...FoldingPair) error {
	r, err := d.CheckRange(r)
	if err != nil {
		return err
	}
	d.ClearFoldingMarkers(r)
	for _, fp := range pairs {
		if fp.Start == nil || fp.End == nil {
			continue
		}
		id := fp.ID()
		for ln := r.Start.Line; ln <= r.End.Line; ln++ {
			l := d.lines[ln]
			opens, closes, err := fp.balance(l.Text())
			if err != nil {
				return fmt.Errorf("folding markers on line %d: %w", ln, err)
			}
			if opens > 0 {
				l.FoldStart, l.foldOpen = id, opens
			}
			if closes > 0 {
				l.FoldEnd, l.foldClose = id, closes
			}
		}
	}
	return nil
}

// balance walks the start and end matches of text in order. An end
// cancels an earlier start of the same line; what remains is the number
// of opens left and of closes that reach outside the line.
func (fp FoldingPair) balance(text string) (opens, closes int, err error) {
	starts, err := matchOffsets(fp.Start, text)
	if err != nil {
		return 0, 0, err
	}
	ends, err := matchOffsets(fp.End, text)
	if err != nil {
		return 0, 0, err
	}
	i, j := 0, 0
	for i < len(starts) || j < len(ends) {
		// at the same offset the end goes first: "}{" closes, then opens
		if j < len(ends) && (i == len(starts) || ends[j] <= starts[i]) {
			if opens > 0 {
				opens--
			} else {
				closes++
			}
			j++
			continue
		}
		opens++
		i++
	}
	return opens, closes, nil
}

// matchOffsets lists the start offsets of every match of re in text. The
// number of matches is bounded by the text length.
func matchOffsets(re *regexp2.Regexp, text string) ([]int, error) {
	var out []int
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil && len(out) <= len(text) {
		out = append(out, m.Index)
		m, err = re.FindNextMatch(m)
	}
	return out, err
}

// ClearFoldingMarkers removes markers from the lines of r.
func (d *Document) ClearFoldingMarkers(r textpos.Range) {
	for ln := max(r.Start.Line, 0); ln <= r.End.Line && ln < len(d.lines); ln++ {
		l := d.lines[ln]
		l.FoldStart, l.FoldEnd = "", ""
		l.foldOpen, l.foldClose = 0, 0
	}
}

// FoldBlock finds the block opened on line with the same stack discipline
// as bracket matching: opens push, closes pop, and the block closes when
// the opens left on line are all popped. Unmatched markers yield no block.
func (d *Document) FoldBlock(line int) (end int, ok bool) {
	if line < 0 || line >= len(d.lines) || d.lines[line].FoldStart == "" {
		return -1, false
	}
	id := d.lines[line].FoldStart
	depth := max(d.lines[line].foldOpen, 1)
	limit := len(d.lines)
	if d.MaxBlockScan > 0 {
		limit = min(limit, line+d.MaxBlockScan)
	}
	for j := line + 1; j < limit; j++ {
		l := d.lines[j]
		if l.FoldEnd == id {
			if depth -= max(l.foldClose, 1); depth <= 0 {
				return j, true
			}
		}
		if l.FoldStart == id {
			depth += max(l.foldOpen, 1)
		}
	}
	return -1, false
}

// Collapse hides the block starting at line. Lines without a block are
// ignored.
func (d *Document) Collapse(line int) {
	if _, ok := d.FoldBlock(line); ok {
		d.lines[line].collapsed = true
	}
}

// Expand shows the block starting at line again.
func (d *Document) Expand(line int) {
	if line >= 0 && line < len(d.lines) {
		d.lines[line].collapsed = false
	}
}

func (d *Document) ToggleFold(line int) {
	if d.IsCollapsed(line) {
		d.Expand(line)
		return
	}
	d.Collapse(line)
}

// ExpandAll shows every collapsed block.
func (d *Document) ExpandAll() {
	for _, l := range d.lines {
		l.collapsed = false
	}
}

// CollapseAll collapses every block that has a matching end.
func (d *Document) CollapseAll() {
	for i := range d.lines {
		d.Collapse(i)
	}
}

func (d *Document) IsCollapsed(line int) bool {
	if line < 0 || line >= len(d.lines) || !d.lines[line].collapsed {
		return false
	}
	_, ok := d.FoldBlock(line)
	return ok
}

// CollapsedLines lists the start lines of collapsed blocks.
func (d *Document) CollapsedLines() []int {
	var out []int
	for i := range d.lines {
		if d.IsCollapsed(i) {
			out = append(out, i)
		}
	}
	return out
}

// hiddenLines marks every line inside a collapsed block.
func (d *Document) hiddenLines() []bool {
	hidden := make([]bool, len(d.lines))
	for i, l := range d.lines {
		if !l.collapsed || hidden[i] {
			continue
		}
		end, ok := d.FoldBlock(i)
		if !ok {
			continue
		}
		for j := i + 1; j < end; j++ {
			hidden[j] = true
		}
		if d.HideFoldEnd {
			hidden[end] = true
		}
	}
	return hidden
}

// IsHidden reports whether line is inside a collapsed block.
func (d *Document) IsHidden(line int) bool {
	if line < 0 || line >= len(d.lines) {
		return false
	}
	return d.hiddenLines()[line]
}

// ExpandHidden expands the collapsed blocks starting in [from, to) when
// any line strictly between from and to is hidden, and reports whether it
// did. Edits that would span hidden lines call it to reveal them instead.
func (d *Document) ExpandHidden(from, to int) bool {
	hidden := d.hiddenLines()
	found := false
	for ln := max(from+1, 0); ln < to && ln < len(hidden); ln++ {
		found = found || hidden[ln]
	}
	if !found {
		return false
	}
	for ln := max(from, 0); ln < to && ln < len(d.lines); ln++ {
		d.lines[ln].collapsed = false
	}
	return true
}

// VisibleLines lists the indexes of lines not hidden by folding.
func (d *Document) VisibleLines() []int {
	hidden := d.hiddenLines()
	out := make([]int, 0, len(hidden))
	for i, h := range hidden {
		if !h {
			out = append(out, i)
		}
	}
	return out
}

// Places yields every character place of r. With visibleOnly, lines
// hidden by folding are skipped.
func (d *Document) Places(r textpos.Range, visibleOnly bool) iter.Seq[textpos.Place] {
	return func(yield func(textpos.Place) bool) {
		r, err := d.CheckRange(r)
		if err != nil {
			return
		}
		var hidden []bool
		if visibleOnly {
			hidden = d.hiddenLines()
		}
		for ln := r.Start.Line; ln <= r.End.Line; ln++ {
			if hidden != nil && hidden[ln] {
				continue
			}
			from, to := 0, d.lines[ln].Len()
			if ln == r.Start.Line {
				from = r.Start.Col
			}
			if ln == r.End.Line {
				to = r.End.Col
			}
			for col := from; col < to; col++ {
				if !yield(textpos.Place{Line: ln, Col: col}) {
					return
				}
			}
		}
	}
}

// GoRightThroughFolded returns the place one step right of p, jumping
// over lines hidden by collapsed blocks.
func (d *Document) GoRightThroughFolded(p textpos.Place) textpos.Place {
	p = d.ClampPlace(p)
	hidden := d.hiddenLines()
	if !hidden[p.Line] && p.Col < d.lines[p.Line].Len() {
		p.Col++
		return p
	}
	for ln := p.Line + 1; ln < len(d.lines); ln++ {
		if !hidden[ln] {
			return textpos.Place{Line: ln}
		}
	}
	return p
}

// GoLeftThroughFolded returns the place one step left of p, jumping over
// lines hidden by collapsed blocks.
func (d *Document) GoLeftThroughFolded(p textpos.Place) textpos.Place {
	p = d.ClampPlace(p)
	hidden := d.hiddenLines()
	if !hidden[p.Line] && p.Col > 0 {
		p.Col--
		return p
	}
	for ln := p.Line - 1; ln >= 0; ln-- {
		if !hidden[ln] {
			return textpos.Place{Line: ln, Col: d.lines[ln].Len()}
		}
	}
	return p
}
