package editor

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collects bursts of events before they reach the loop.
const watchDebounce = 100 * time.Millisecond

// Removed reports that the open file was deleted or renamed on disk.
func (e *Editor) Removed() bool { return e.file.removed }

// Watch follows the open file on disk. A clean document reloads on
// external writes; one with unsaved edits is only flagged.
func (e *Editor) Watch() error {
	if e.file.path == "" {
		return errors.New("watch: no file path")
	}
	e.unwatch()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(e.file.path)); err != nil {
		watcher.Close()
		return err
	}
	e.file.watcher = watcher
	path := filepath.Clean(e.file.path)
	post := e.loop.Post

	go func() {
		timer := time.NewTimer(watchDebounce)
		timer.Stop()
		var pending []fsnotify.Event
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				pending = append(pending, ev)
				timer.Reset(watchDebounce)
			case <-timer.C:
				events := pending
				pending = nil
				post(func() {
					for _, ev := range events {
						e.handleFileEvent(ev)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warningf("watch %s: %s", path, err.Error())
			}
		}
	}()
	log.Debugf("watching %s", path)
	return nil
}

func (e *Editor) unwatch() error {
	if e.file.watcher == nil {
		return nil
	}
	err := e.file.watcher.Close()
	e.file.watcher = nil
	return err
}

func (e *Editor) handleFileEvent(ev fsnotify.Event) {
	path := e.file.path
	if path == "" || filepath.Clean(ev.Name) != filepath.Clean(path) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		e.file.removed = true
		log.Warningf("%s was removed externally", path)
		e.externalChange(path, false)

	case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create):
		mt := modTime(path)
		if mt.IsZero() {
			return
		}
		// our own save
		if !e.file.lastSave.IsZero() && mt.Sub(e.file.lastSave) <= saveGrace {
			return
		}
		if e.doc.Modified {
			e.file.externallyModified = true
			log.Warningf("%s was modified externally with unsaved changes", path)
			e.externalChange(path, false)
			return
		}
		if err := e.Reload(); err != nil {
			log.Errorf("%s", err.Error())
			return
		}
		log.Infof("reloaded %s", path)
		e.externalChange(path, true)
	}
}

func (e *Editor) externalChange(path string, reloaded bool) {
	if e.OnExternalChange != nil {
		e.OnExternalChange(path, reloaded)
	}
}
