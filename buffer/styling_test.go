package buffer

import (
	"errors"
	"testing"

	"richedit/style"
	"richedit/textpos"

	"github.com/dlclark/regexp2"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func styledDoc(t *testing.T, text string) (*Document, style.ID, style.ID) {
	t.Helper()
	reg := style.NewRegistry()
	kw := reg.MustRegister(style.NewTextStyle("keyword", tcell.ColorBlue))
	comment := reg.MustRegister(style.NewTextStyle("comment", tcell.ColorGreen))
	d := NewDocument(reg)
	d.SetText(text)
	return d, kw, comment
}

func TestSetStyleIsIdempotent(t *testing.T) {
	d, kw, _ := styledDoc(t, "int x;\nint y;")
	r := textpos.LineRange(1, 0, 3)

	require.NoError(t, d.SetStyle(r, kw))
	require.NoError(t, d.SetStyle(r, kw))
	twice := d.SnapshotStyles(d.FullRange())

	require.NoError(t, d.ClearStyle(r, kw))
	require.NoError(t, d.SetStyle(r, kw))
	assert.Equal(t, twice, d.SnapshotStyles(d.FullRange()))
}

func TestCommentPatternStylesOnlyComment(t *testing.T) {
	d, _, comment := styledDoc(t, "int x; // note")
	require.NoError(t, d.SetStylePattern(d.FullRange(), comment, `//.*$`, regexp2.Multiline))

	for col := 0; col < 7; col++ {
		assert.False(t, d.HasStyle(pl(0, col), comment), "col %d", col)
	}
	for col := 7; col < 14; col++ {
		assert.True(t, d.HasStyle(pl(0, col), comment), "col %d", col)
	}
}

func TestRangeGroupNarrowsMatch(t *testing.T) {
	d, kw, _ := styledDoc(t, "int x; int yy;")
	require.NoError(t, d.SetStylePattern(d.FullRange(), kw, `\bint\s+(?<range>\w+)`, regexp2.None))

	var styled []int
	for col := 0; col < 14; col++ {
		if d.HasStyle(pl(0, col), kw) {
			styled = append(styled, col)
		}
	}
	assert.Equal(t, []int{4, 11, 12}, styled)
}

func TestMatchesAcrossLines(t *testing.T) {
	d, _, _ := styledDoc(t, "ab cd\nef")
	re, err := CompilePattern(`^\w+`, regexp2.Multiline)
	require.NoError(t, err)

	got, err := d.Matches(d.FullRange(), re)
	require.NoError(t, err)
	assert.Equal(t, []textpos.Range{
		textpos.LineRange(0, 0, 2),
		textpos.LineRange(1, 0, 2),
	}, got)
}

func TestMatchesInsidePartialRange(t *testing.T) {
	d, _, _ := styledDoc(t, "xx foo\nfoo yy")
	re, err := CompilePattern(`foo`, regexp2.None)
	require.NoError(t, err)

	got, err := d.Matches(textpos.NewRange(pl(0, 2), pl(1, 3)), re)
	require.NoError(t, err)
	assert.Equal(t, []textpos.Range{
		textpos.LineRange(0, 3, 6),
		textpos.LineRange(1, 0, 3),
	}, got)
}

func TestZeroWidthPatternIsSkipped(t *testing.T) {
	d, kw, _ := styledDoc(t, "a b c")
	require.NoError(t, d.SetStylePattern(d.FullRange(), kw, `\b`, regexp2.None))
	for col := 0; col < 5; col++ {
		assert.False(t, d.HasStyle(pl(0, col), kw))
	}
}

func TestInvalidPattern(t *testing.T) {
	d, kw, _ := styledDoc(t, "abc")
	err := d.SetStylePattern(d.FullRange(), kw, `(unclosed`, regexp2.None)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestClearStyleKeepsOthers(t *testing.T) {
	d, kw, comment := styledDoc(t, "abc")
	require.NoError(t, d.SetStyle(d.FullRange(), kw))
	require.NoError(t, d.SetStyle(textpos.LineRange(0, 1, 2), comment))

	ids, err := d.StylesAt(pl(0, 1))
	require.NoError(t, err)
	assert.Equal(t, []style.ID{kw, comment}, ids)

	require.NoError(t, d.ClearStyle(d.FullRange(), kw))
	ids, err = d.StylesAt(pl(0, 1))
	require.NoError(t, err)
	assert.Equal(t, []style.ID{comment}, ids)

	require.NoError(t, d.ClearStyle(d.FullRange()))
	ids, err = d.StylesAt(pl(0, 1))
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = d.StylesAt(pl(0, 3))
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestExtendedStylesBeyondBitmask(t *testing.T) {
	reg := style.NewRegistry(style.WithExtendedSets())
	var ids []style.ID
	for i := 0; i < 40; i++ {
		ids = append(ids, reg.MustRegister(style.NewTextStyle("s", tcell.ColorWhite)))
	}
	d := NewDocument(reg)
	d.SetText("xy")
	require.NoError(t, d.SetStyle(textpos.LineRange(0, 0, 1), ids[35]))
	require.NoError(t, d.SetStyle(textpos.LineRange(0, 0, 2), ids[2]))

	got, err := d.StylesAt(pl(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []style.ID{ids[2], ids[35]}, got)
	assert.False(t, d.HasStyle(pl(0, 1), ids[35]))
}
