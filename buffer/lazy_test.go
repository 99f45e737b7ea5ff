package buffer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"richedit/textpos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLazy(t *testing.T, content string) (*LazySource, string, *fakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "big.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	s, err := OpenLazy(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s.now = clock.now
	return s, path, clock
}

func TestLazyIndex(t *testing.T) {
	for _, tc := range []struct {
		content string
		lines   int
	}{
		{"", 1},
		{"\n", 2},
		{"a", 1},
		{"a\nb", 2},
		{"a\nb\n", 3},
		{"a\r\nb\r\n\r\n", 4},
	} {
		s, _, _ := openLazy(t, tc.content)
		assert.Equal(t, tc.lines, s.LineCount(), "%q", tc.content)

		doc := NewDocument(nil)
		doc.SetText(tc.content)
		assert.Equal(t, doc.LineCount(), s.LineCount(), "%q", tc.content)
		for i := 0; i < doc.LineCount(); i++ {
			want, _ := doc.LineText(i)
			got, err := s.LineText(i)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%q line %d", tc.content, i)
		}
	}
}

func TestLazyLoadsOnDemand(t *testing.T) {
	s, _, _ := openLazy(t, "zero\r\none\ntwo\nthree\n")
	assert.Equal(t, 0, s.Loaded())

	text, err := s.LineText(1)
	require.NoError(t, err)
	assert.Equal(t, "one", text)
	text, err = s.LineText(0)
	require.NoError(t, err)
	assert.Equal(t, "zero", text)
	assert.Equal(t, 2, s.Loaded())

	text, err = s.LineText(4)
	require.NoError(t, err)
	assert.Equal(t, "", text)
	_, err = s.LineText(5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestLazyEvictionSkipsVisibleAndDirty(t *testing.T) {
	s, _, clock := openLazy(t, "a\nb\nc\nd\n")
	s.IdleTTL = time.Minute
	for i := 0; i < 4; i++ {
		_, err := s.LineText(i)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetLineText(3, "D"))
	s.SetVisible(textpos.LineSpan{First: 0, Last: 0})

	assert.Equal(t, 0, s.Evict())

	clock.t = clock.t.Add(2 * time.Minute)
	assert.Equal(t, 2, s.Evict())
	assert.Equal(t, 2, s.Loaded())

	text, err := s.LineText(3)
	require.NoError(t, err)
	assert.Equal(t, "D", text)
	text, err = s.LineText(1)
	require.NoError(t, err)
	assert.Equal(t, "b", text)
}

func TestLazySetLineTextNotifies(t *testing.T) {
	s, _, _ := openLazy(t, "a\nb\n")
	var posted int
	s.Post = func(fn func()) {
		posted++
		fn()
	}
	var got []ChangeEvent
	s.OnChanged(func(ev ChangeEvent) { got = append(got, ev) })

	require.NoError(t, s.SetLineText(1, "bee"))
	assert.Equal(t, 1, posted)
	require.Len(t, got, 1)
	assert.Equal(t, textpos.LineSpan{First: 1, Last: 1}, got[0].Lines)
	assert.True(t, s.Dirty())
}

func TestLazySave(t *testing.T) {
	s, path, _ := openLazy(t, "a\nb\nc")
	require.NoError(t, s.SetLineText(1, "B"))
	require.NoError(t, s.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nB\nc", string(data))
	assert.False(t, s.Dirty())
	assert.Equal(t, 0, s.Loaded())
	assert.Equal(t, 3, s.LineCount())
}

func TestLazyReload(t *testing.T) {
	s, path, _ := openLazy(t, "a\nb\n")
	var reloads int
	s.OnChanged(func(ChangeEvent) { reloads++ })

	require.NoError(t, os.WriteFile(path, []byte("x\ny\nz\n"), 0644))
	s.reload()
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 4, s.LineCount())
	assert.False(t, s.ExternallyModified())

	require.NoError(t, s.SetLineText(0, "edited"))
	require.NoError(t, os.WriteFile(path, []byte("other\n"), 0644))
	s.reload()
	assert.True(t, s.ExternallyModified())
	assert.Equal(t, 4, s.LineCount())
	text, err := s.LineText(0)
	require.NoError(t, err)
	assert.Equal(t, "edited", text)
}

func TestLazySaveKeepsLineEndings(t *testing.T) {
	s, path, _ := openLazy(t, "a\r\nb")
	assert.Equal(t, "CRLF", s.LineEnding())
	require.NoError(t, s.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb", string(data))

	s, path, _ = openLazy(t, "one\r\ntwo\r\n")
	require.NoError(t, s.SetLineText(1, "TWO"))
	require.NoError(t, s.Save())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\r\nTWO\r\n", string(data))
	assert.Equal(t, 3, s.LineCount())
}
