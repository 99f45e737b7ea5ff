package editor

import (
	"testing"
	"time"

	"richedit/autocomplete"
	"richedit/buffer"
	"richedit/config"
	"richedit/style"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pl(line, col int) textpos.Place { return textpos.Place{Line: line, Col: col} }

// newEditor returns an editor whose delayed events only run on Flush
// unless tune shortens them.
func newEditor(t *testing.T, tune ...func(*config.Config)) (*Editor, *Loop) {
	t.Helper()
	cfg := config.Default()
	cfg.HighlightDelay = config.Duration(time.Hour)
	cfg.VisibleRangeDelay = config.Duration(time.Hour)
	cfg.SelectionDelay = config.Duration(time.Hour)
	for _, fn := range tune {
		fn(cfg)
	}
	loop := NewLoop()
	e, err := New(cfg, loop)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, loop
}

func typeString(t *testing.T, e *Editor, s string) {
	t.Helper()
	for _, r := range s {
		require.NoError(t, e.TypeRune(r))
	}
}

// waitWords drains the loop until the outline worker delivered words.
func waitWords(t *testing.T, e *Editor, loop *Loop, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		loop.Drain()
		for _, w := range e.Words() {
			if w == want {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSetTextHighlightsImmediately(t *testing.T) {
	e, _ := newEditor(t)
	e.SetLanguage("C#")
	e.SetText("// note\nint x;")

	doc := e.Document()
	assert.True(t, doc.HasStyle(pl(0, 0), e.Palette().Comment))
	assert.False(t, doc.HasStyle(pl(1, 0), e.Palette().Comment))
	assert.Empty(t, doc.ChangedLines())
	assert.False(t, e.Modified())
}

func TestRapidEditsRunOneDelayedPass(t *testing.T) {
	e, loop := newEditor(t, func(c *config.Config) {
		c.HighlightDelay = config.Duration(20 * time.Millisecond)
	})
	e.SetLanguage("C#")
	e.SetText("")
	before := e.Highlighter().Passes()

	var delayed []textpos.Range
	syncEvents := 0
	e.OnTextChanged = func(buffer.ChangeEvent) { syncEvents++ }
	e.OnTextChangedDelayed = func(r textpos.Range) { delayed = append(delayed, r) }

	typeString(t, e, "//")
	for i := 0; i < 98; i++ {
		require.NoError(t, e.TypeRune('x'))
	}
	assert.Equal(t, 100, syncEvents)

	require.Eventually(t, func() bool {
		loop.Drain()
		return e.Highlighter().Passes() == before+1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	loop.Drain()

	assert.Equal(t, before+1, e.Highlighter().Passes())
	require.Len(t, delayed, 1)
	assert.Equal(t, textpos.LineRange(0, 0, 100), delayed[0])
	assert.True(t, e.Document().HasStyle(pl(0, 99), e.Palette().Comment))
}

func TestUndoRedoMovesCaret(t *testing.T) {
	e, _ := newEditor(t)
	typeString(t, e, "abc")
	assert.Equal(t, pl(0, 3), e.Caret())

	require.True(t, e.Undo())
	assert.Equal(t, "", e.Text())
	assert.Equal(t, pl(0, 0), e.Caret())

	require.True(t, e.Redo())
	assert.Equal(t, "abc", e.Text())
	assert.Equal(t, pl(0, 3), e.Caret())
	assert.False(t, e.Redo())
}

func TestInsertReplacesSelection(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("hello world")
	e.SetSelection(pl(0, 6), pl(0, 11))
	assert.Equal(t, "world", e.SelectedText())

	require.NoError(t, e.InsertText("there"))
	assert.Equal(t, "hello there", e.Text())
	assert.Equal(t, pl(0, 11), e.Caret())

	require.True(t, e.Undo())
	assert.Equal(t, "hello world", e.Text())
}

func TestBackspaceDeleteAndNewLine(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("    foo\nbar")
	e.SetCaret(pl(0, 7))
	require.NoError(t, e.NewLine())
	assert.Equal(t, "    foo\n    \nbar", e.Text())
	assert.Equal(t, pl(1, 4), e.Caret())

	e.SetCaret(pl(2, 0))
	require.NoError(t, e.Backspace())
	assert.Equal(t, "    foo\n    bar", e.Text())
	assert.Equal(t, pl(1, 4), e.Caret())

	require.NoError(t, e.Delete())
	assert.Equal(t, "    foo\n    ar", e.Text())

	e.SetCaret(pl(0, 0))
	require.NoError(t, e.Backspace())
	assert.Equal(t, "    foo\n    ar", e.Text())
}

func TestReadOnlyRangeRejectsTyping(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("locked text")
	require.NoError(t, e.Document().SetReadOnly(textpos.LineRange(0, 0, 6), true))

	e.SetCaret(pl(0, 3))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
	assert.Equal(t, "locked text", e.Text())
	assert.ErrorIs(t, e.TypeRune('x'), buffer.ErrReadOnly)

	e.SetCaret(pl(0, 11))
	require.NoError(t, e.TypeRune('!'))
	assert.Equal(t, "locked text!", e.Text())
}

func TestSelectionChangedDelayedCoalesces(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("one\ntwo\nthree")
	var got []Selection
	e.OnSelectionChangedDelayed = func(s Selection) { got = append(got, s) }

	e.SetCaret(pl(0, 1))
	e.SetCaret(pl(1, 2))
	e.SetSelection(pl(1, 0), pl(2, 3))
	assert.Empty(t, got)

	e.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, Selection{Anchor: pl(1, 0), Caret: pl(2, 3)}, got[0])
}

func TestSetSelectionClamps(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("ab\ncd")
	e.SetSelection(pl(-1, 0), pl(9, 9))
	assert.Equal(t, Selection{Anchor: pl(0, 0), Caret: pl(1, 2)}, e.Selection())
}

func TestAutocompleteFromDocumentWords(t *testing.T) {
	e, loop := newEditor(t)
	e.SetText("foreach fortune\n")
	waitWords(t, e, loop, "fortune")

	e.SetCaret(pl(1, 0))
	typeString(t, e, "fo")
	require.Equal(t, autocomplete.Shown, e.Autocomplete().State())
	var texts []string
	for _, it := range e.Autocomplete().Visible() {
		texts = append(texts, it.Text())
	}
	assert.Equal(t, []string{"foreach", "fortune"}, texts)

	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.Equal(t, "foreach fortune\nfortune", e.Text())
	assert.Equal(t, pl(1, 7), e.Caret())
	assert.Equal(t, autocomplete.Closed, e.Autocomplete().State())

	require.True(t, e.Undo())
	assert.Equal(t, "foreach fortune\nfo", e.Text())
}

func TestAutocompleteOffersCorrections(t *testing.T) {
	e, loop := newEditor(t)
	e.SetText("function")
	waitWords(t, e, loop, "function")

	e.SetCaret(pl(0, 8))
	require.NoError(t, e.InsertText("\nfuntion"))
	require.Equal(t, autocomplete.Shown, e.ShowAutocomplete())
	var texts []string
	for _, it := range e.Autocomplete().Visible() {
		texts = append(texts, it.Text())
	}
	assert.Contains(t, texts, "function")
}

func TestHandleKeyBookmarks(t *testing.T) {
	e, _ := newEditor(t)
	e.SetText("a\nb\nc\nd")
	e.SetCaret(pl(2, 0))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyCtrlB, 0, tcell.ModCtrl)))
	assert.Equal(t, []int{2}, e.Document().Bookmarks())

	e.SetCaret(pl(0, 0))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone)))
	assert.Equal(t, pl(2, 0), e.Caret())
}

func TestNavigationHistory(t *testing.T) {
	e, _ := newEditor(t)
	clock := time.Unix(1000, 0)
	e.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	e.SetText("a\nb\nc\nd")
	e.SetCaret(pl(1, 0))
	e.SetCaret(pl(3, 0))

	require.True(t, e.NavigateBackward())
	assert.Equal(t, 1, e.Caret().Line)
	require.True(t, e.NavigateForward())
	assert.Equal(t, 3, e.Caret().Line)
}

func TestFoldAndVerticalMovement(t *testing.T) {
	e, _ := newEditor(t)
	e.SetLanguage("C#")
	e.SetText("class A\n{\n  int x;\n}\nend")
	doc := e.Document()

	e.SetCaret(pl(1, 0))
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyF4, 0, tcell.ModNone)))
	require.True(t, doc.IsCollapsed(1))
	assert.True(t, doc.IsHidden(2))

	e.MoveCaret(tcell.KeyDown, false)
	assert.Equal(t, pl(3, 0), e.Caret())
	e.MoveCaret(tcell.KeyUp, true)
	assert.Equal(t, Selection{Anchor: pl(3, 0), Caret: pl(1, 0)}, e.Selection())

	e.ToggleFold()
	assert.False(t, doc.IsCollapsed(1))
}

func TestBackspaceOverCollapsedBlockUnfolds(t *testing.T) {
	e, _ := newEditor(t, func(c *config.Config) { c.HideFoldEnd = true })
	e.SetLanguage("C#")
	e.SetText("{\n  body();\n}\nafter")
	doc := e.Document()
	doc.Collapse(0)
	require.Equal(t, []int{0, 3}, doc.VisibleLines())

	e.SetCaret(pl(3, 0))
	require.NoError(t, e.Backspace())
	assert.Equal(t, "{\n  body();\n}\nafter", e.Text())
	assert.False(t, doc.IsCollapsed(0))
	assert.Equal(t, pl(3, 0), e.Caret())

	require.NoError(t, e.Backspace())
	assert.Equal(t, "{\n  body();\n}after", e.Text())
}

func TestDeleteOverCollapsedBlockUnfolds(t *testing.T) {
	e, _ := newEditor(t)
	e.SetLanguage("C#")
	e.SetText("{\n  body();\n}")
	doc := e.Document()
	doc.Collapse(0)

	e.SetCaret(pl(0, 1))
	require.NoError(t, e.Delete())
	assert.Equal(t, "{\n  body();\n}", e.Text())
	assert.Equal(t, []int{0, 1, 2}, doc.VisibleLines())
}

func TestAutocompleteClosesOnEditBeforeFragment(t *testing.T) {
	e, _ := newEditor(t)
	e.AddProvider(autocomplete.Keywords("for", "foreach"))
	e.SetText("fo x")
	e.SetCaret(pl(0, 2))
	require.Equal(t, autocomplete.Shown, e.ShowAutocomplete())

	_, err := e.InsertAt(pl(0, 0), "x = ")
	require.NoError(t, err)
	assert.Equal(t, autocomplete.Closed, e.Autocomplete().State())
	_, err = e.Autocomplete().Commit()
	assert.Error(t, err)
	assert.Equal(t, "x = fo x", e.Text())
}

func TestAutocompleteFollowsEditAfterFragment(t *testing.T) {
	e, _ := newEditor(t)
	e.AddProvider(autocomplete.Keywords("for", "foreach"))
	e.SetText("fo x")
	e.SetCaret(pl(0, 2))
	require.Equal(t, autocomplete.Shown, e.ShowAutocomplete())

	_, err := e.InsertAt(pl(0, 4), " y")
	require.NoError(t, err)
	require.Equal(t, autocomplete.Shown, e.Autocomplete().State())
	assert.True(t, e.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.Equal(t, "for x y", e.Text())
}

func TestCustomColorsOverridePalette(t *testing.T) {
	e, _ := newEditor(t, func(c *config.Config) {
		c.Colors = map[string]string{"comment": "red"}
	})
	ts, ok := e.Styles().Style(e.Palette().Comment).(*style.TextStyle)
	require.True(t, ok)
	fg, _, _ := ts.Appearance.Decompose()
	assert.Equal(t, tcell.ColorRed, fg)
}

func TestRuleErrorsReachHost(t *testing.T) {
	e, _ := newEditor(t)
	var rules []string
	e.OnError = func(rule string, err error) { rules = append(rules, rule) }
	rs := e.Highlighter().Ruleset()
	rs.AddFunc("broken", func(*buffer.Document, textpos.Range) error {
		return assert.AnError
	})
	e.SetText("x")
	assert.Equal(t, []string{"broken"}, rules)
}
