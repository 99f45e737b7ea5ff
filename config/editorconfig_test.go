package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestExpandBraces(t *testing.T) {
	assert.Equal(t, []string{"*.js", "*.ts"}, expandBraces("*.{js,ts}"))
	assert.Equal(t, []string{"a.x", "a.y", "b"}, expandBraces("{a.{x,y},b}"))
	assert.Equal(t, []string{"*.{go"}, expandBraces("*.{go"))
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, matchGlob("*.cs", "src/deep/Program.cs"))
	assert.True(t, matchGlob("*", "Makefile"))
	assert.True(t, matchGlob("src/*.go", "src/main.go"))
	assert.True(t, matchGlob("/src/*.go", "src/main.go"))
	assert.False(t, matchGlob("src/*.go", "lib/main.go"))
	assert.False(t, matchGlob("*.{js,ts}", "main.go"))
}

func TestFindEditorConfigMergesUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".editorconfig"), `
root = true

[*]
indent_style = space
indent_size = 4
end_of_line = lf

[*.go]
indent_style = tab
`)
	writeFile(t, filepath.Join(root, "web", ".editorconfig"), `
# closer file wins
[*.{js,ts}]
indent_size = 2
`)
	js := filepath.Join(root, "web", "app.js")
	writeFile(t, js, "")

	ec := FindEditorConfig(js)
	require.NotNil(t, ec)
	assert.Equal(t, "space", ec.IndentStyle)
	assert.Equal(t, 2, ec.IndentSize)
	assert.Equal(t, "lf", ec.EndOfLine)

	ec = FindEditorConfig(filepath.Join(root, "cmd", "main.go"))
	require.NotNil(t, ec)
	assert.Equal(t, "tab", ec.IndentStyle)
	assert.Equal(t, 4, ec.IndentSize)
}

func TestIndentation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Indentation{TabSize: 4, UseTabs: true}, cfg.Indentation("", "Go"))
	assert.Equal(t, "  ", cfg.Indentation("", "XML").Unit())

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".editorconfig"), "root = true\n[*.cs]\nindent_style = tab\ntab_width = 8\nend_of_line = crlf\n")
	in := cfg.Indentation(filepath.Join(root, "Program.cs"), "C#")
	assert.Equal(t, Indentation{TabSize: 8, UseTabs: true, EndOfLine: "crlf"}, in)
	assert.Equal(t, "\t", in.Unit())

	in = cfg.Indentation(filepath.Join(root, "query.sql"), "SQL")
	assert.Equal(t, Indentation{TabSize: 4}, in, "unmatched sections leave language defaults")
}
