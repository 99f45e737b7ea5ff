package editor

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"richedit/textpos"
)

// BackupInfo describes an unsaved-changes backup of one file.
type BackupInfo struct {
	OriginalPath string    `json:"original_path"`
	Timestamp    time.Time `json:"timestamp"`
}

func backupDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "richedit", "backups")
}

func backupPathForFile(originalPath string) string {
	h := sha256.Sum256([]byte(originalPath))
	return filepath.Join(backupDir(), fmt.Sprintf("%x.bak", h[:8]))
}

func backupMetaPath(backupPath string) string {
	return backupPath + ".json"
}

// StartBackups writes a backup of unsaved edits every interval until ctx
// is done. The write itself runs on the loop.
func (e *Editor) StartBackups(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.loop.Post(func() {
					if err := e.SaveBackup(); err != nil {
						log.Warningf("backup: %s", err.Error())
					}
				})
			case <-ctx.Done():
				return
			}
		}
	}()
}

// SaveBackup writes the document next to a metadata file when it has
// unsaved edits.
func (e *Editor) SaveBackup() error {
	if !e.doc.Modified || e.file.path == "" {
		return nil
	}
	bpath := backupPathForFile(e.file.path)
	if err := os.MkdirAll(filepath.Dir(bpath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(bpath, []byte(e.doc.Text()), 0644); err != nil {
		return err
	}
	meta, err := json.Marshal(BackupInfo{OriginalPath: e.file.path, Timestamp: e.now()})
	if err != nil {
		return err
	}
	return os.WriteFile(backupMetaPath(bpath), meta, 0644)
}

func (e *Editor) cleanBackup() {
	if e.file.path == "" {
		return
	}
	bpath := backupPathForFile(e.file.path)
	os.Remove(bpath)
	os.Remove(backupMetaPath(bpath))
}

// FindBackup returns the backup of the open file when one is newer than
// the file on disk.
func (e *Editor) FindBackup() (*BackupInfo, bool) {
	if e.file.path == "" {
		return nil, false
	}
	data, err := os.ReadFile(backupMetaPath(backupPathForFile(e.file.path)))
	if err != nil {
		return nil, false
	}
	var info BackupInfo
	if json.Unmarshal(data, &info) != nil || info.OriginalPath != e.file.path {
		return nil, false
	}
	if mt := modTime(e.file.path); !mt.IsZero() && !info.Timestamp.After(mt) {
		return nil, false
	}
	return &info, true
}

// RecoverBackup replaces the document with the backup as one undoable
// edit and removes the backup.
func (e *Editor) RecoverBackup() error {
	if e.file.path == "" {
		return fmt.Errorf("recover: no file path")
	}
	bpath := backupPathForFile(e.file.path)
	data, err := os.ReadFile(bpath)
	if err != nil {
		return err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if _, err := e.doc.Replace(e.doc.FullRange(), text); err != nil {
		return err
	}
	e.SetCaret(textpos.Place{})
	e.cleanBackup()
	return nil
}
