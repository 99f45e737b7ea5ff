package buffer

import (
	"fmt"
	"strings"
	"unicode"

	"richedit/textpos"
)

// InsertText inserts text at p, splitting lines on embedded terminators,
// and returns the range the text now occupies.
func (d *Document) InsertText(p textpos.Place, text string) (textpos.Range, error) {
	if err := d.CheckPlace(p); err != nil {
		return textpos.Range{}, err
	}
	if !d.replaying && d.insertBlocked(p) {
		return textpos.Range{}, d.readOnlyViolation(textpos.Range{Start: p, End: p})
	}
	if text == "" {
		return textpos.Range{Start: p, End: p}, nil
	}
	segs := splitText(text)
	r := d.insertChars(p, segs)
	d.record(Operation{Type: OpInsert, Pos: p, Content: cloneSegs(segs)})
	d.emit(ChangeEvent{
		Range:      r,
		Lines:      r.Lines(),
		LinesDelta: r.End.Line - r.Start.Line,
	})
	return r, nil
}

// RemoveRange deletes the text of r, merging lines when r spans a line
// boundary, and returns the removed text.
func (d *Document) RemoveRange(r textpos.Range) (string, error) {
	r, err := d.CheckRange(r)
	if err != nil {
		return "", err
	}
	if r.Empty() {
		return "", nil
	}
	if !d.replaying && d.removeBlocked(r) {
		return "", d.readOnlyViolation(r)
	}
	removed := d.removeChars(r)
	d.record(Operation{Type: OpDelete, Pos: r.Start, Content: removed})
	d.emit(ChangeEvent{
		Range:      textpos.Range{Start: r.Start, End: r.Start},
		Lines:      textpos.LineSpan{First: r.Start.Line, Last: r.Start.Line},
		LinesDelta: r.Start.Line - r.End.Line,
		Removed:    true,
	})
	return segsText(removed), nil
}

// SplitLine breaks the line at p in two.
func (d *Document) SplitLine(p textpos.Place) error {
	_, err := d.InsertText(p, "\n")
	return err
}

// MergeLine joins line i with the line after it.
func (d *Document) MergeLine(i int) error {
	if i < 0 || i+1 >= len(d.lines) {
		return fmt.Errorf("merge line %d of %d: %w", i, len(d.lines), ErrOutOfRange)
	}
	_, err := d.RemoveRange(textpos.Range{
		Start: textpos.Place{Line: i, Col: d.lines[i].Len()},
		End:   textpos.Place{Line: i + 1},
	})
	return err
}

// Replace removes r and inserts text in its place as one undo step.
func (d *Document) Replace(r textpos.Range, text string) (textpos.Range, error) {
	r, err := d.CheckRange(r)
	if err != nil {
		return textpos.Range{}, err
	}
	if !d.replaying && !r.Empty() && d.removeBlocked(r) {
		return textpos.Range{}, d.readOnlyViolation(r)
	}
	d.undo.BeginAutoUndo()
	defer d.undo.EndAutoUndo()
	if _, err := d.RemoveRange(r); err != nil {
		return textpos.Range{}, err
	}
	return d.InsertText(r.Start, text)
}

func (d *Document) record(op Operation) {
	if d.replaying {
		return
	}
	d.undo.Record(op)
}

// insertChars splices segs into the document at p. The first segment
// joins the text before p, the last one the text after it.
func (d *Document) insertChars(p textpos.Place, segs [][]Char) textpos.Range {
	line := d.lines[p.Line]
	head := line.chars[:p.Col]
	tail := append([]Char(nil), line.chars[p.Col:]...)

	if len(segs) == 1 {
		chars := make([]Char, 0, len(head)+len(segs[0])+len(tail))
		chars = append(chars, head...)
		chars = append(chars, segs[0]...)
		line.chars = append(chars, tail...)
		line.touch()
		return textpos.Range{Start: p, End: textpos.Place{Line: p.Line, Col: p.Col + len(segs[0])}}
	}

	first := make([]Char, 0, len(head)+len(segs[0]))
	first = append(first, head...)
	line.chars = append(first, segs[0]...)
	line.touch()

	added := make([]*Line, 0, len(segs)-1)
	for _, seg := range segs[1 : len(segs)-1] {
		added = append(added, newLine(append([]Char(nil), seg...)))
	}
	last := segs[len(segs)-1]
	lastChars := make([]Char, 0, len(last)+len(tail))
	lastChars = append(lastChars, last...)
	added = append(added, newLine(append(lastChars, tail...)))

	lines := make([]*Line, 0, len(d.lines)+len(added))
	lines = append(lines, d.lines[:p.Line+1]...)
	lines = append(lines, added...)
	d.lines = append(lines, d.lines[p.Line+1:]...)

	return textpos.Range{Start: p, End: textpos.Place{Line: p.Line + len(segs) - 1, Col: len(last)}}
}

// removeChars cuts r out of the document and returns the removed
// characters, styles included, one segment per line.
func (d *Document) removeChars(r textpos.Range) [][]Char {
	first := d.lines[r.Start.Line]
	if r.Start.Line == r.End.Line {
		removed := append([]Char(nil), first.chars[r.Start.Col:r.End.Col]...)
		chars := make([]Char, 0, first.Len()-len(removed))
		chars = append(chars, first.chars[:r.Start.Col]...)
		first.chars = append(chars, first.chars[r.End.Col:]...)
		first.touch()
		return [][]Char{removed}
	}

	last := d.lines[r.End.Line]
	removed := [][]Char{append([]Char(nil), first.chars[r.Start.Col:]...)}
	for ln := r.Start.Line + 1; ln < r.End.Line; ln++ {
		removed = append(removed, append([]Char(nil), d.lines[ln].chars...))
	}
	removed = append(removed, append([]Char(nil), last.chars[:r.End.Col]...))

	chars := make([]Char, 0, r.Start.Col+last.Len()-r.End.Col)
	chars = append(chars, first.chars[:r.Start.Col]...)
	first.chars = append(chars, last.chars[r.End.Col:]...)
	first.touch()
	d.lines = append(d.lines[:r.Start.Line+1], d.lines[r.End.Line+1:]...)
	return removed
}

// splitText turns text into one plain segment per line. "\r\n" and lone
// "\r" count as terminators.
func splitText(text string) [][]Char {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	segs := make([][]Char, len(parts))
	for i, part := range parts {
		segs[i] = plainChars(part)
	}
	return segs
}

func segsText(segs [][]Char) string {
	var sb strings.Builder
	for i, seg := range segs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range seg {
			sb.WriteRune(c.R)
		}
	}
	return sb.String()
}

func cloneSegs(segs [][]Char) [][]Char {
	out := make([][]Char, len(segs))
	for i, seg := range segs {
		out[i] = append([]Char(nil), seg...)
	}
	return out
}

// endOf returns the place after segs inserted at p.
func endOf(p textpos.Place, segs [][]Char) textpos.Place {
	if len(segs) <= 1 {
		n := 0
		if len(segs) == 1 {
			n = len(segs[0])
		}
		return textpos.Place{Line: p.Line, Col: p.Col + n}
	}
	return textpos.Place{Line: p.Line + len(segs) - 1, Col: len(segs[len(segs)-1])}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
