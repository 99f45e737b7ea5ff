package buffer

import (
	"errors"
	"testing"

	"richedit/style"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(t *testing.T, text string) *Document {
	t.Helper()
	d := NewDocument(style.NewRegistry())
	d.SetText(text)
	return d
}

func pl(line, col int) textpos.Place {
	return textpos.Place{Line: line, Col: col}
}

func TestNewDocumentHasOneLine(t *testing.T) {
	d := NewDocument(nil)
	assert.Equal(t, 1, d.LineCount())
	assert.Equal(t, "", d.Text())
}

func TestInsertTextSplitsLines(t *testing.T) {
	d := newDoc(t, "hello world")
	r, err := d.InsertText(textpos.Place{Line: 0, Col: 5}, ",\nbig\r\nnew")
	require.NoError(t, err)
	assert.Equal(t, "hello,\nbig\nnew world", d.Text())
	assert.Equal(t, textpos.NewRange(pl(0, 5), pl(2, 3)), r)
	assert.Equal(t, 3, d.LineCount())
}

func TestRemoveRangeMergesLines(t *testing.T) {
	d := newDoc(t, "one\ntwo\nthree")
	removed, err := d.RemoveRange(textpos.NewRange(pl(0, 2), pl(2, 1)))
	require.NoError(t, err)
	assert.Equal(t, "e\ntwo\nt", removed)
	assert.Equal(t, "onhree", d.Text())
	assert.Equal(t, 1, d.LineCount())
}

func TestLineOutOfRange(t *testing.T) {
	d := newDoc(t, "a\nb")
	_, err := d.Line(2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = d.Line(-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = d.InsertText(textpos.Place{Line: 0, Col: 5}, "x")
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, "a\nb", d.Text())
}

func TestSplitAndMergeLine(t *testing.T) {
	d := newDoc(t, "abcdef")
	require.NoError(t, d.SplitLine(textpos.Place{Line: 0, Col: 3}))
	assert.Equal(t, "abc\ndef", d.Text())
	require.NoError(t, d.MergeLine(0))
	assert.Equal(t, "abcdef", d.Text())
	assert.True(t, errors.Is(d.MergeLine(0), ErrOutOfRange))
}

func TestChangeNotificationIsSynchronous(t *testing.T) {
	d := newDoc(t, "x")
	var got []ChangeEvent
	d.OnChanged(func(ev ChangeEvent) { got = append(got, ev) })

	_, err := d.InsertText(textpos.Place{Line: 0, Col: 1}, "\ny\nz")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, textpos.LineSpan{First: 0, Last: 2}, got[0].Lines)
	assert.Equal(t, 2, got[0].LinesDelta)

	_, err = d.RemoveRange(textpos.NewRange(pl(0, 1), pl(2, 1)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Removed)
	assert.Equal(t, -2, got[1].LinesDelta)
}

func TestInsertMarksLinesChanged(t *testing.T) {
	d := newDoc(t, "a\nb\nc")
	d.MarkHighlighted(textpos.LineSpan{First: 0, Last: 2})
	assert.Empty(t, d.ChangedLines())

	_, err := d.InsertText(textpos.Place{Line: 1, Col: 1}, "!")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, d.ChangedLines())
}

func TestInsertRemoveRoundTripKeepsStyles(t *testing.T) {
	reg := style.NewRegistry()
	kw := reg.MustRegister(style.NewTextStyle("kw", tcell.ColorBlue))
	d := NewDocument(reg)
	d.SetText("int x;\nreturn x;")
	require.NoError(t, d.SetStyle(textpos.LineRange(1, 0, 6), kw))
	before := d.SnapshotStyles(d.FullRange())

	r, err := d.InsertText(textpos.Place{Line: 1, Col: 3}, "abc\ndef")
	require.NoError(t, err)
	_, err = d.RemoveRange(r)
	require.NoError(t, err)

	assert.Equal(t, "int x;\nreturn x;", d.Text())
	assert.Equal(t, before, d.SnapshotStyles(d.FullRange()))
}

func TestReadOnlyRejectsEdits(t *testing.T) {
	d := newDoc(t, "header: body")
	var violations []textpos.Range
	d.OnReadOnlyViolation(func(r textpos.Range) { violations = append(violations, r) })
	require.NoError(t, d.SetReadOnly(textpos.LineRange(0, 0, 7), true))

	_, err := d.RemoveRange(textpos.LineRange(0, 5, 9))
	assert.True(t, errors.Is(err, ErrReadOnly))
	_, err = d.InsertText(textpos.Place{Line: 0, Col: 3}, "X")
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.Equal(t, "header: body", d.Text())
	assert.Len(t, violations, 2)

	// the edge of a read-only run is still editable
	_, err = d.InsertText(textpos.Place{Line: 0, Col: 7}, "X")
	require.NoError(t, err)
	assert.Equal(t, "header:X body", d.Text())
}

func TestBookmarksFollowLines(t *testing.T) {
	d := newDoc(t, "a\nb\nc")
	require.NoError(t, d.SetBookmark(2, true))
	_, err := d.InsertText(textpos.Place{Line: 0, Col: 0}, "new\n")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, d.Bookmarks())

	next, ok := d.NextBookmark(3)
	assert.True(t, ok)
	assert.Equal(t, 3, next)
	prev, ok := d.PrevBookmark(0)
	assert.True(t, ok)
	assert.Equal(t, 3, prev)
}

func TestLineBackgroundIsWeak(t *testing.T) {
	d := newDoc(t, "a")
	b := &style.Brush{Color: tcell.ColorYellow}
	require.NoError(t, d.SetLineBackground(0, b))
	l, _ := d.Line(0)
	assert.Same(t, b, l.Background())
	require.NoError(t, d.SetLineBackground(0, nil))
	assert.Nil(t, l.Background())
}

func TestLineWidthCache(t *testing.T) {
	d := newDoc(t, "a\tb世")
	l, _ := d.Line(0)
	assert.Equal(t, 7, l.Width(4))
	_, err := d.InsertText(textpos.Place{Line: 0, Col: 0}, "xx")
	require.NoError(t, err)
	assert.Equal(t, 7, l.Width(4))
	assert.Equal(t, 11, l.Width(8))
}

func TestWords(t *testing.T) {
	d := newDoc(t, "foo bar\nfoo_baz(bar)")
	assert.Equal(t, []string{"foo", "bar", "foo_baz"}, d.Words())
}
