package editor

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"richedit/textpos"
)

// SessionData is the per-file view state restored on the next Open.
type SessionData struct {
	Path       string `json:"path"`
	Language   string `json:"language"`
	CaretLine  int    `json:"caret_line"`
	CaretCol   int    `json:"caret_col"`
	AnchorLine int    `json:"anchor_line"`
	AnchorCol  int    `json:"anchor_col"`
	ScrollTop  int    `json:"scroll_top"`
	Bookmarks  []int  `json:"bookmarks,omitempty"`
	Collapsed  []int  `json:"collapsed,omitempty"`
}

func sessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "richedit", "sessions")
}

func sessionPath(file string) string {
	hash := sha256.Sum256([]byte(file))
	return filepath.Join(sessionDir(), fmt.Sprintf("%x.json", hash[:8]))
}

// SaveSession records the view state of the open file. A document in its
// initial state removes a stale session instead.
func (e *Editor) SaveSession() error {
	if e.file.path == "" {
		return errors.New("session: no file path")
	}
	abs, err := filepath.Abs(e.file.path)
	if err != nil {
		return err
	}
	path := sessionPath(abs)

	s := SessionData{
		Path:       abs,
		Language:   e.language,
		CaretLine:  e.sel.Caret.Line,
		CaretCol:   e.sel.Caret.Col,
		AnchorLine: e.sel.Anchor.Line,
		AnchorCol:  e.sel.Anchor.Col,
		ScrollTop:  max(e.visible.First, 0),
		Bookmarks:  e.doc.Bookmarks(),
		Collapsed:  e.doc.CollapsedLines(),
	}
	if s.CaretLine == 0 && s.CaretCol == 0 && s.AnchorLine == 0 && s.AnchorCol == 0 &&
		s.ScrollTop == 0 && len(s.Bookmarks) == 0 && len(s.Collapsed) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreSession applies the saved view state of the open file. Lines
// that no longer exist are skipped.
func (e *Editor) RestoreSession() bool {
	if e.file.path == "" {
		return false
	}
	abs, err := filepath.Abs(e.file.path)
	if err != nil {
		return false
	}
	data, err := os.ReadFile(sessionPath(abs))
	if err != nil {
		return false
	}
	var s SessionData
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warningf("session for %s: %s", abs, err.Error())
		return false
	}
	if s.Path != abs {
		return false
	}

	for _, ln := range s.Bookmarks {
		_ = e.doc.SetBookmark(ln, true)
	}
	for _, ln := range s.Collapsed {
		e.doc.Collapse(ln)
	}
	e.SetSelection(
		textpos.Place{Line: s.AnchorLine, Col: s.AnchorCol},
		textpos.Place{Line: s.CaretLine, Col: s.CaretCol},
	)
	if s.ScrollTop < e.doc.LineCount() {
		e.visible.First = s.ScrollTop
	}
	log.Debugf("restored session of %s", abs)
	return true
}

// ScrollTop is the first visible line recorded by the host or a session.
func (e *Editor) ScrollTop() int { return max(e.visible.First, 0) }
