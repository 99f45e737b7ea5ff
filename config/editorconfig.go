package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Indentation is the resolved indentation policy for one file.
type Indentation struct {
	TabSize   int
	UseTabs   bool
	EndOfLine string // "lf", "crlf" or "" when unset
}

// Unit is the text one indent level inserts.
func (in Indentation) Unit() string {
	if in.UseTabs {
		return "\t"
	}
	return strings.Repeat(" ", max(in.TabSize, 1))
}

// Indentation resolves the policy for path: language defaults first, then
// any .editorconfig sections matching the file.
func (c *Config) Indentation(path, language string) Indentation {
	in := Indentation{
		TabSize: c.LanguageTabSize(language),
		UseTabs: c.LanguageUseTabs(language),
	}
	if path == "" {
		return in
	}
	ec := FindEditorConfig(path)
	if ec == nil {
		return in
	}
	switch ec.IndentStyle {
	case "tab":
		in.UseTabs = true
	case "space":
		in.UseTabs = false
	}
	switch {
	case ec.IndentSize > 0:
		in.TabSize = ec.IndentSize
	case ec.TabWidth > 0:
		in.TabSize = ec.TabWidth
	}
	in.EndOfLine = ec.EndOfLine
	return in
}

type EditorConfig struct {
	IndentStyle            string // "tab" or "space"
	IndentSize             int    // 0 means unset
	TabWidth               int    // 0 means unset
	EndOfLine              string
	TrimTrailingWhitespace bool
	InsertFinalNewline     bool
	Charset                string
}

type ecSection struct {
	glob  string
	props map[string]string
}

type ecFile struct {
	dir      string
	root     bool
	sections []ecSection
}

// FindEditorConfig merges the .editorconfig files from the file's
// directory upward until one declares root = true. Closer files win.
// It returns nil when nothing applies.
func FindEditorConfig(filePath string) *EditorConfig {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil
	}
	var files []*ecFile
	for dir := filepath.Dir(abs); ; {
		if f := readEditorConfig(filepath.Join(dir, ".editorconfig")); f != nil {
			files = append(files, f)
			if f.root {
				break
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	merged := map[string]string{}
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		rel, err := filepath.Rel(f.dir, abs)
		if err != nil {
			continue
		}
		for _, s := range f.sections {
			if matchGlob(s.glob, filepath.ToSlash(rel)) {
				for k, v := range s.props {
					merged[k] = v
				}
			}
		}
	}
	return editorConfigFrom(merged)
}

func readEditorConfig(path string) *ecFile {
	fh, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer fh.Close()

	f := &ecFile{dir: filepath.Dir(path)}
	var cur *ecSection
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' && line[len(line)-1] == ']' {
			f.sections = append(f.sections, ecSection{glob: line[1 : len(line)-1], props: map[string]string{}})
			cur = &f.sections[len(f.sections)-1]
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))
		switch {
		case cur == nil && key == "root":
			f.root = value == "true"
		case cur != nil:
			cur.props[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warningf("read %s: %s", path, err.Error())
	}
	return f
}

// matchGlob matches an editorconfig section glob. Globs without a slash
// match the base name at any depth; others match the path relative to the
// .editorconfig directory. Braces expand to alternatives.
func matchGlob(glob, rel string) bool {
	for _, g := range expandBraces(glob) {
		name := rel
		if strings.Contains(g, "/") {
			g = strings.TrimPrefix(g, "/")
		} else {
			name = filepath.Base(rel)
		}
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

// expandBraces expands "*.{js,ts}" into ["*.js", "*.ts"], recursively.
func expandBraces(glob string) []string {
	open := strings.IndexByte(glob, '{')
	if open < 0 {
		return []string{glob}
	}
	depth, end := 0, -1
	for i := open; i < len(glob) && end < 0; i++ {
		switch glob[i] {
		case '{':
			depth++
		case '}':
			if depth--; depth == 0 {
				end = i
			}
		}
	}
	if end < 0 {
		return []string{glob}
	}
	var out []string
	for _, alt := range splitAlternatives(glob[open+1 : end]) {
		out = append(out, expandBraces(glob[:open]+alt+glob[end+1:])...)
	}
	return out
}

func splitAlternatives(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func editorConfigFrom(m map[string]string) *EditorConfig {
	if len(m) == 0 {
		return nil
	}
	ec := &EditorConfig{
		IndentStyle:            m["indent_style"],
		EndOfLine:              m["end_of_line"],
		Charset:                m["charset"],
		TrimTrailingWhitespace: m["trim_trailing_whitespace"] == "true",
		InsertFinalNewline:     m["insert_final_newline"] == "true",
	}
	if n, err := strconv.Atoi(m["indent_size"]); err == nil && n > 0 {
		ec.IndentSize = n
	}
	if n, err := strconv.Atoi(m["tab_width"]); err == nil && n > 0 {
		ec.TabWidth = n
	}
	return ec
}
