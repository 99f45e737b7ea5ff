package autocomplete

import (
	"testing"

	"richedit/buffer"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pl(line, col int) textpos.Place {
	return textpos.Place{Line: line, Col: col}
}

func newDoc(text string) *buffer.Document {
	d := buffer.NewDocument(nil)
	d.SetText(text)
	return d
}

func texts(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text()
	}
	return out
}

func TestKeywordCompare(t *testing.T) {
	words := Keywords("for", "foreach", "false")

	for _, it := range words {
		assert.Equal(t, Visible, it.Compare("fo"), it.Text())
	}

	assert.Equal(t, VisibleAndSelected, words[0].Compare("for"))
	assert.Equal(t, Visible, words[1].Compare("for"))
	assert.Equal(t, Hidden, words[2].Compare("for"))

	for _, it := range words {
		assert.Equal(t, Hidden, it.Compare("xyz"), it.Text())
	}
	strict := &Keyword{Word: "false", Strict: true}
	assert.Equal(t, Hidden, strict.Compare("fo"))
}

func TestUpdateFiltersAndSelects(t *testing.T) {
	d := newDoc("fo")
	e := NewEngine(d, Keywords("for", "foreach", "false"))

	assert.Equal(t, Shown, e.Update(pl(0, 2), false))
	assert.Equal(t, []string{"for", "foreach", "false"}, texts(e.Visible()))
	assert.Equal(t, 0, e.SelectedIndex())

	_, err := d.InsertText(pl(0, 2), "r")
	require.NoError(t, err)
	e.Update(pl(0, 3), false)
	assert.Equal(t, []string{"for", "foreach"}, texts(e.Visible()))
	assert.Equal(t, "for", e.Selected().Text())
}

func TestUpdateClosesWithoutCandidates(t *testing.T) {
	d := newDoc("xyz")
	var states []State
	e := NewEngine(d, Keywords("for", "foreach", "false"))
	e.OnStateChanged = func(s State) { states = append(states, s) }

	assert.Equal(t, Closed, e.Update(pl(0, 3), false))
	assert.Empty(t, e.Visible())
	assert.Nil(t, e.Selected())
	assert.Equal(t, []State{Filtering, Closed}, states)
}

func TestLastSelectedClaimWins(t *testing.T) {
	d := newDoc("abc")
	e := NewEngine(d, List{
		&Keyword{Word: "abc"},
		&Keyword{Word: "abcd"},
		&Substring{Word: "ABC"},
	})
	e.Update(pl(0, 3), false)
	assert.Equal(t, 2, e.SelectedIndex())
}

func TestMinFragmentLengthAndForce(t *testing.T) {
	d := newDoc("f")
	e := NewEngine(d, Keywords("for"))
	assert.Equal(t, Closed, e.Update(pl(0, 1), false))
	assert.Equal(t, Shown, e.Update(pl(0, 1), true))

	d.SetText("")
	assert.Equal(t, Shown, e.Update(pl(0, 0), true))
}

func TestFragment(t *testing.T) {
	d := newDoc("x := os.Std + 1")
	e := NewEngine(d)
	assert.Equal(t, textpos.LineRange(0, 5, 11), e.Fragment(pl(0, 9)))
	assert.Equal(t, "os.Std", e.FragmentText(pl(0, 11)))

	require.NoError(t, e.SetSearchPattern(`\w`))
	assert.Equal(t, "Std", e.FragmentText(pl(0, 11)))

	e.MaxFragmentScan = 2
	assert.Equal(t, "td", e.FragmentText(pl(0, 11)))

	assert.ErrorIs(t, e.SetSearchPattern(`[`), buffer.ErrInvalidPattern)
}

func TestCommitReplacesFragment(t *testing.T) {
	d := newDoc("x fo y")
	e := NewEngine(d, Keywords("foreach"))
	var committed []string
	e.OnCommitted = func(ev *SelectedEvent) { committed = append(committed, ev.Item.Text()) }

	e.Update(pl(0, 4), false)
	caret, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, "x foreach y", d.Text())
	assert.Equal(t, pl(0, 9), caret)
	assert.Equal(t, Closed, e.State())
	assert.Equal(t, []string{"foreach"}, committed)

	d.Undo()
	assert.Equal(t, "x fo y", d.Text())
}

func TestCommitSnippet(t *testing.T) {
	d := newDoc("    if")
	e := NewEngine(d, List{&Snippet{Template: "if (^)\n{\n\tbody;\n}"}})
	e.IndentUnit = "  "

	require.Equal(t, Shown, e.Update(pl(0, 6), false))
	caret, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, "    if ()\n    {\n      body;\n    }", d.Text())
	assert.Equal(t, pl(0, 8), caret)
}

func TestSnippetText(t *testing.T) {
	s := &Snippet{Template: "for (^;;)\n{\n}"}
	assert.Equal(t, "for (;;)", s.Text())
	assert.Equal(t, "^", s.CaretMarker())
	s = &Snippet{Template: "while (§)", Menu: "while", Marker: "§"}
	assert.Equal(t, "while", s.Text())
	assert.Equal(t, Visible, s.Compare("wh"))
}

func TestCommitMethod(t *testing.T) {
	d := newDoc("os.Std")
	e := NewEngine(d, &MemberProvider{Introspector: members{
		"os": {"Stdin", "Stdout", "Exit"},
	}})

	e.Update(pl(0, 6), false)
	assert.Equal(t, []string{"Stdin", "Stdout"}, texts(e.Visible()))
	e.Move(1)
	_, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, "os.Stdout", d.Text())
}

type members map[string][]string

func (m members) Members(expr string) []string { return m[expr] }

func TestProviderFuncIsLazy(t *testing.T) {
	d := newDoc("ab")
	calls := 0
	e := NewEngine(d, ProviderFunc(func(fragment string) []Item {
		calls++
		return Keywords(fragment+"c", fragment+"d")
	}))
	assert.Equal(t, 0, calls)
	e.Update(pl(0, 2), false)
	e.Update(pl(0, 2), false)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"abc", "abd"}, texts(e.Visible()))
}

func TestHandleKey(t *testing.T) {
	d := newDoc("fo")
	e := NewEngine(d, Keywords("for", "foreach", "false"))
	e.Update(pl(0, 2), false)

	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone)))
	assert.Equal(t, 2, e.SelectedIndex())
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)))
	assert.False(t, e.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)))
	assert.Equal(t, Shown, e.State())

	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.Equal(t, "foreach", d.Text())
	assert.False(t, e.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)))
}

func TestNonPatternKeyCancels(t *testing.T) {
	d := newDoc("fo")
	e := NewEngine(d, Keywords("for"))
	e.Update(pl(0, 2), false)

	assert.False(t, e.HandleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(t, Closed, e.State())
	assert.Equal(t, "fo", d.Text())

	e.Update(pl(0, 2), false)
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.Equal(t, Closed, e.State())
	assert.Equal(t, "fo", d.Text())
}

func TestCommitReadOnlyFails(t *testing.T) {
	d := newDoc("fo")
	require.NoError(t, d.SetReadOnly(d.FullRange(), true))
	e := NewEngine(d, Keywords("for"))
	e.Update(pl(0, 2), false)
	_, err := e.Commit()
	assert.ErrorIs(t, err, buffer.ErrReadOnly)
	assert.Equal(t, "fo", d.Text())
}

func TestRefreshAfterEditBeforeFragment(t *testing.T) {
	d := newDoc("fo x")
	e := NewEngine(d, Keywords("for", "foreach"))
	require.Equal(t, Shown, e.Update(pl(0, 2), false))

	_, err := d.InsertText(pl(0, 0), "x = ")
	require.NoError(t, err)
	assert.Equal(t, Closed, e.Refresh(pl(0, 2)))

	_, err = e.Commit()
	assert.Error(t, err)
	assert.Equal(t, "x = fo x", d.Text())
}

func TestRefreshFollowsCaretFragment(t *testing.T) {
	d := newDoc("fo x")
	e := NewEngine(d, Keywords("for", "foreach"))
	require.Equal(t, Shown, e.Update(pl(0, 2), false))

	_, err := d.InsertText(pl(0, 0), "x = ")
	require.NoError(t, err)
	assert.Equal(t, Shown, e.Refresh(pl(0, 6)))
	assert.Equal(t, textpos.LineRange(0, 4, 6), e.fragment)

	_, err = e.Commit()
	require.NoError(t, err)
	assert.Equal(t, "x = for x", d.Text())
}

func TestRefreshKeepsIntactFragment(t *testing.T) {
	d := newDoc("fo x")
	e := NewEngine(d, Keywords("for", "foreach"))
	require.Equal(t, Shown, e.Update(pl(0, 2), false))
	e.Move(1)

	_, err := d.InsertText(pl(0, 4), " y")
	require.NoError(t, err)
	assert.Equal(t, Shown, e.Refresh(pl(0, 2)))
	assert.Equal(t, 1, e.SelectedIndex())
}

func TestCommitRejectsStaleFragment(t *testing.T) {
	d := newDoc("fo x")
	e := NewEngine(d, Keywords("for"))
	require.Equal(t, Shown, e.Update(pl(0, 2), false))

	_, err := d.InsertText(pl(0, 0), "x = ")
	require.NoError(t, err)
	_, err = e.Commit()
	assert.ErrorIs(t, err, ErrStaleFragment)
	assert.Equal(t, "x = fo x", d.Text())
	assert.Equal(t, Closed, e.State())
}
