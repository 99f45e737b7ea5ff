package editor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"richedit/buffer"
	"richedit/config"
	"richedit/highlight"

	"github.com/fsnotify/fsnotify"
)

var ErrBinary = errors.New("binary file")

// saveGrace is how long after our own save a write event is ignored.
const saveGrace = time.Second

type fileState struct {
	path               string
	lineEnding         string
	encoding           string
	lastSave           time.Time
	externallyModified bool
	removed            bool
	watcher            *fsnotify.Watcher
}

func (e *Editor) Path() string { return e.file.path }

// LineEnding is "LF" or "CRLF".
func (e *Editor) LineEnding() string { return e.file.lineEnding }

func (e *Editor) Encoding() string { return e.file.encoding }

func (e *Editor) Modified() bool { return e.doc.Modified }

// ExternallyModified reports that the file changed on disk while the
// document had unsaved edits.
func (e *Editor) ExternallyModified() bool { return e.file.externallyModified }

// Open reads path into the document with a single SetText, picks the
// language and the indentation for it.
func (e *Editor) Open(path string) error {
	fc, err := buffer.LoadFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if fc.Binary {
		return fmt.Errorf("open %s: %w", path, ErrBinary)
	}
	e.unwatch()
	e.file = fileState{path: path, lineEnding: fc.LineEnding, encoding: fc.Encoding, lastSave: modTime(path)}

	language := highlight.DetectLanguage(path, fc.Text)
	e.language = language
	e.highlighter.SetRuleset(highlight.ForLanguage(language, e.palette))
	in := e.cfg.Indentation(path, language)
	// without an .editorconfig, indentation found in the file beats the
	// language default unless detection fell back to its own default
	if config.FindEditorConfig(path) == nil && (fc.UseTabs || fc.TabSize != 4) {
		in.TabSize, in.UseTabs = fc.TabSize, fc.UseTabs
	}
	switch in.EndOfLine {
	case "crlf":
		e.file.lineEnding = "CRLF"
	case "lf":
		e.file.lineEnding = "LF"
	}
	e.setIndentation(in)
	e.SetText(fc.Text)
	log.Infof("opened %s (%s, %s, %d lines)", path, language, fc.LineEnding, e.doc.LineCount())
	return nil
}

// Save writes the document back to the path it was opened from.
func (e *Editor) Save() error {
	if e.file.path == "" {
		return errors.New("save: no file path")
	}
	return e.SaveAs(e.file.path)
}

func (e *Editor) SaveAs(path string) error {
	if err := buffer.SaveFile(path, e.doc.Text(), e.file.lineEnding); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	e.doc.MarkSaved()
	e.file.path = path
	e.file.lastSave = e.now()
	e.file.externallyModified = false
	e.file.removed = false
	e.cleanBackup()
	log.Infof("saved %s", path)
	return nil
}

// Reload re-reads the file, keeping the caret where it was when the line
// still exists.
func (e *Editor) Reload() error {
	if e.file.path == "" {
		return errors.New("reload: no file path")
	}
	fc, err := buffer.LoadFile(e.file.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", e.file.path, err)
	}
	caret := e.sel.Caret
	e.SetText(fc.Text)
	e.file.lastSave = modTime(e.file.path)
	e.file.externallyModified = false
	e.file.removed = false
	e.SetCaret(caret)
	return nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

