package buffer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileNormalizesLineEndings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cs")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFclass A\r\n{\r\n}\r\n\r\n"), 0644))

	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "class A\n{\n}", fc.Text)
	assert.Equal(t, "CRLF", fc.LineEnding)
	assert.Equal(t, "UTF-8 BOM", fc.Encoding)
	assert.False(t, fc.Binary)
}

func TestSaveFileUsesLineEnding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, SaveFile(path, "a\nb", "CRLF"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb\r\n", string(data))

	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", fc.Text)
}

func TestLoadFileDetectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.WriteFile(path, []byte{'a', 0, 'b'}, 0644))
	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, fc.Binary)
}

func TestDetectIndentation(t *testing.T) {
	twoSpace := strings.Repeat("  x\n    y\n", 4)
	size, tabs := DetectIndentation(strings.Split(twoSpace, "\n"))
	assert.Equal(t, 2, size)
	assert.False(t, tabs)

	tabbed := strings.Repeat("\tx\n", 11)
	size, tabs = DetectIndentation(strings.Split(tabbed, "\n"))
	assert.Equal(t, 4, size)
	assert.True(t, tabs)

	size, tabs = DetectIndentation([]string{"x", "y"})
	assert.Equal(t, 4, size)
	assert.False(t, tabs)
}
