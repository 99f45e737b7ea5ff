package editor

import (
	"sync"

	"richedit/autocomplete"

	"github.com/dlclark/regexp2"
)

// maxWords caps the vocabulary taken from one snapshot.
const maxWords = 20000

var wordPattern = regexp2.MustCompile(`\b[\p{L}_][\p{L}\p{N}_]{2,}\b`, regexp2.None)

// outliner extracts the vocabulary of document snapshots on its own
// goroutine, retrains the fuzzy model and posts the word list back to the
// mutation thread. Only the newest snapshot is kept.
type outliner struct {
	in   chan string
	done chan struct{}
	once sync.Once
}

func newOutliner(post func(func()), apply func([]string), fp *autocomplete.FuzzyProvider) *outliner {
	o := &outliner{in: make(chan string, 1), done: make(chan struct{})}
	go o.run(post, apply, fp)
	return o
}

func (o *outliner) run(post func(func()), apply func([]string), fp *autocomplete.FuzzyProvider) {
	for {
		select {
		case <-o.done:
			return
		case text := <-o.in:
			words := extractWords(text)
			fp.Train(words)
			post(func() { apply(words) })
		}
	}
}

// submit queues text, replacing a snapshot the worker has not taken yet.
func (o *outliner) submit(text string) {
	for {
		select {
		case <-o.done:
			return
		case o.in <- text:
			return
		default:
		}
		select {
		case <-o.in:
		default:
		}
	}
}

func (o *outliner) stop() {
	o.once.Do(func() { close(o.done) })
}

// extractWords lists identifier-like words of at least three characters in
// order of first appearance.
func extractWords(text string) []string {
	seen := map[string]bool{}
	var words []string
	m, err := wordPattern.FindStringMatch(text)
	for err == nil && m != nil && len(words) < maxWords {
		if w := m.String(); !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
		m, err = wordPattern.FindNextMatch(m)
	}
	if err != nil {
		log.Warningf("outline: %s", err.Error())
	}
	return words
}
