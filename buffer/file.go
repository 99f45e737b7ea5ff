package buffer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// maxFileSize bounds what LoadFile reads into memory; larger files go
// through LazySource.
const maxFileSize = 100 * 1024 * 1024

// FileContent is a file decoded for a Document.
type FileContent struct {
	Text       string
	LineEnding string // "LF" or "CRLF"
	Encoding   string
	Binary     bool
	TabSize    int
	UseTabs    bool
}

// LoadFile reads path, normalizes line endings and detects encoding and
// indentation. The returned text has no trailing terminator.
func LoadFile(path string) (*FileContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("file too large (%d MB), max supported is %d MB", info.Size()/(1024*1024), maxFileSize/(1024*1024))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc := &FileContent{
		LineEnding: "LF",
		Encoding:   detectEncoding(data),
		Binary:     bytes.IndexByte(data[:min(len(data), 8192)], 0) >= 0,
	}
	if bytes.Contains(data, []byte("\r\n")) {
		fc.LineEnding = "CRLF"
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	fc.Text = strings.TrimRight(content, "\n")
	fc.TabSize, fc.UseTabs = DetectIndentation(strings.Split(fc.Text, "\n"))
	return fc, nil
}

// SaveFile writes text to path using the given line ending and a single
// final newline.
func SaveFile(path, text, lineEnding string) error {
	eol := "\n"
	if lineEnding == "CRLF" {
		eol = "\r\n"
	}
	content := strings.ReplaceAll(text, "\n", eol)
	if !strings.HasSuffix(content, eol) {
		content += eol
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// detectEncoding checks the BOM and validates UTF-8.
func detectEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return "UTF-8 BOM"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "UTF-16 LE"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "UTF-16 BE"
	case utf8.Valid(data):
		return "UTF-8"
	}
	return "Latin-1"
}

// DetectIndentation guesses (tabSize, useTabs) from the most common
// leading whitespace.
func DetectIndentation(lines []string) (int, bool) {
	tabCount := 0
	spaceIndents := map[int]int{}
	for _, line := range lines {
		spaces, tabs := 0, 0
		for _, ch := range line {
			if ch == '\t' {
				tabs++
			} else if ch == ' ' {
				spaces++
			} else {
				break
			}
		}
		if tabs > 0 {
			tabCount++
		}
		if spaces > 0 && tabs == 0 {
			for _, size := range []int{2, 4, 8} {
				if spaces%size == 0 {
					spaceIndents[size]++
				}
			}
		}
	}
	if tabCount > 10 {
		return 4, true
	}

	maxCount, detected := 0, 4
	for _, size := range []int{2, 4, 8} {
		// prefer the widest size that explains as many lines
		if c := spaceIndents[size]; c > 0 && c >= maxCount {
			maxCount, detected = c, size
		}
	}
	if maxCount > 5 {
		return detected, false
	}
	return 4, false
}
