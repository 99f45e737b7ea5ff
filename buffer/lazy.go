package buffer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"richedit/textpos"

	"github.com/fsnotify/fsnotify"
)

// LazySource is a file-backed TextSource that loads lines on demand and
// evicts idle ones. It keeps only a byte-offset index in memory. The
// cache is locked because eviction and file watching run on their own
// goroutines; notifications are handed to Post so listeners still run on
// the mutation thread.
type LazySource struct {
	// IdleTTL is how long a clean line stays cached after its last read.
	IdleTTL time.Duration

	// Post delivers notifications from background goroutines. When nil
	// they are delivered directly.
	Post func(func())

	mu                 sync.Mutex
	path               string
	file               *os.File
	offsets            []int64 // start of each line
	size               int64
	lineEnding         string
	cache              map[int]*lazyLine
	visible            textpos.LineSpan
	externallyModified bool
	listeners          []func(ChangeEvent)
	watcher            *fsnotify.Watcher
	now                func() time.Time
}

type lazyLine struct {
	text    string
	dirty   bool
	lastUse time.Time
}

// OpenLazy indexes path without reading its lines into memory.
func OpenLazy(path string) (*LazySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &LazySource{
		IdleTTL: time.Minute,
		path:    path,
		file:    f,
		cache:   map[int]*lazyLine{},
		visible: textpos.LineSpan{First: -1, Last: -1},
		now:     time.Now,
	}
	if err := s.index(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// index records the offset of every line start. Like SetText, a trailing
// terminator opens a final empty line, so both sources agree on the line
// count of the same text.
func (s *LazySource) index() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	offsets := []int64{0}
	var pos int64
	crlf := false
	r := bufio.NewReaderSize(s.file, 64*1024)
	for {
		chunk, err := r.ReadSlice('\n')
		pos += int64(len(chunk))
		if n := len(chunk); n > 0 && chunk[n-1] == '\n' {
			offsets = append(offsets, pos)
			crlf = crlf || n > 1 && chunk[n-2] == '\r'
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("index %s: %w", s.path, err)
		}
	}
	s.offsets = offsets
	s.size = pos
	s.lineEnding = "LF"
	if crlf {
		s.lineEnding = "CRLF"
	}
	return nil
}

func (s *LazySource) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offsets)
}

// LineEnding is "CRLF" when the file had any CRLF terminator, else "LF".
// Save writes it back.
func (s *LazySource) LineEnding() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineEnding
}

// span returns the byte range of line i without its terminator.
func (s *LazySource) span(i int) (int64, int64) {
	start, end := s.offsets[i], s.size
	if i+1 < len(s.offsets) {
		end = s.offsets[i+1] - 1
		if end > start && s.crAt(end-1) {
			end--
		}
	}
	return start, end
}

func (s *LazySource) crAt(off int64) bool {
	var b [1]byte
	_, err := s.file.ReadAt(b[:], off)
	return err == nil && b[0] == '\r'
}

// LineText returns line i, reading it from disk if it is not cached.
func (s *LazySource) LineText(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.offsets) {
		return "", fmt.Errorf("line %d of %d: %w", i, len(s.offsets), ErrOutOfRange)
	}
	if l, ok := s.cache[i]; ok {
		l.lastUse = s.now()
		return l.text, nil
	}
	start, end := s.span(i)
	buf := make([]byte, end-start)
	if _, err := s.file.ReadAt(buf, start); err != nil && err != io.EOF {
		return "", fmt.Errorf("read line %d: %w", i, err)
	}
	text := string(buf)
	s.cache[i] = &lazyLine{text: text, lastUse: s.now()}
	return text, nil
}

// SetLineText replaces line i in memory. The line stays cached until
// Save writes it back.
func (s *LazySource) SetLineText(i int, text string) error {
	if _, err := s.LineText(i); err != nil {
		return err
	}
	s.mu.Lock()
	l := s.cache[i]
	l.text, l.dirty, l.lastUse = text, true, s.now()
	s.mu.Unlock()
	s.notify(ChangeEvent{
		Range: textpos.LineRange(i, 0, len([]rune(text))),
		Lines: textpos.LineSpan{First: i, Last: i},
	})
	return nil
}

func (s *LazySource) OnChanged(fn func(ChangeEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetVisible tells the source which lines are on screen; they are never
// evicted.
func (s *LazySource) SetVisible(span textpos.LineSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = span
}

// Loaded returns the number of cached lines.
func (s *LazySource) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Dirty reports whether any line has unsaved changes.
func (s *LazySource) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *LazySource) dirtyLocked() bool {
	for _, l := range s.cache {
		if l.dirty {
			return true
		}
	}
	return false
}

// ExternallyModified reports that the file changed on disk while lines
// had unsaved changes.
func (s *LazySource) ExternallyModified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.externallyModified
}

// Evict drops clean, invisible lines idle for longer than IdleTTL and
// returns how many were dropped.
func (s *LazySource) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for i, l := range s.cache {
		if l.dirty || s.visible.Contains(i) || now.Sub(l.lastUse) < s.IdleTTL {
			continue
		}
		delete(s.cache, i)
		n++
	}
	if n > 0 {
		log.Debugf("evicted %d lines of %s", n, s.path)
	}
	return n
}

// StartEviction runs Evict every interval until ctx is done.
func (s *LazySource) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Evict()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Watch reloads the index when the file is written by someone else. With
// unsaved lines the source only flags ExternallyModified.
func (s *LazySource) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				s.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warningf("watch %s: %s", s.path, err.Error())
			}
		}
	}()
	return nil
}

func (s *LazySource) reload() {
	s.mu.Lock()
	if s.dirtyLocked() {
		s.externallyModified = true
		s.mu.Unlock()
		log.Warningf("%s modified externally with unsaved changes", s.path)
		return
	}
	f, err := os.Open(s.path)
	if err != nil {
		s.mu.Unlock()
		log.Errorf("reopen %s: %s", s.path, err.Error())
		return
	}
	s.file.Close()
	s.file = f
	s.cache = map[int]*lazyLine{}
	err = s.index()
	n := len(s.offsets)
	s.mu.Unlock()
	if err != nil {
		log.Errorf("reindex %s: %s", s.path, err.Error())
		return
	}
	log.Infof("reloaded %s (%d lines)", s.path, n)
	s.notify(ChangeEvent{
		Range: textpos.Range{End: textpos.Place{Line: n - 1}},
		Lines: textpos.LineSpan{First: 0, Last: n - 1},
	})
}

// Save writes every line back to the file with the detected line ending
// and re-indexes it. An unmodified source writes the same bytes.
func (s *LazySource) Save() error {
	if !s.Dirty() {
		return nil
	}
	n := s.LineCount()
	eol := "\n"
	if s.LineEnding() == "CRLF" {
		eol = "\r\n"
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		text, err := s.LineText(i)
		if err != nil {
			return err
		}
		if i > 0 {
			sb.WriteString(eol)
		}
		sb.WriteString(text)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.file.Close()
	s.file = f
	s.cache = map[int]*lazyLine{}
	s.externallyModified = false
	return s.index()
}

// Close stops watching and releases the file.
func (s *LazySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	return s.file.Close()
}

func (s *LazySource) notify(ev ChangeEvent) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	deliver := func() {
		for _, fn := range listeners {
			fn(ev)
		}
	}
	if s.Post != nil {
		s.Post(deliver)
		return
	}
	deliver()
}
