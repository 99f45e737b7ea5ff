package autocomplete

import (
	"slices"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/sajari/fuzzy"
)

// Provider supplies candidates for a fragment. The engine asks again on
// every filtering pass, so providers may compute candidates lazily.
type Provider interface {
	Candidates(fragment string) []Item
}

// List is a static candidate list.
type List []Item

func (l List) Candidates(string) []Item { return l }

// Keywords builds a List of Keyword items.
func Keywords(words ...string) List {
	l := make(List, len(words))
	for i, w := range words {
		l[i] = &Keyword{Word: w}
	}
	return l
}

// ProviderFunc computes candidates on demand.
type ProviderFunc func(fragment string) []Item

func (f ProviderFunc) Candidates(fragment string) []Item { return f(fragment) }

// Introspector lists the members of a qualified expression such as
// "os.Stdout". The host decides how members are discovered.
type Introspector interface {
	Members(expr string) []string
}

// MemberProvider offers Method items for the expression before the last
// '.' of the fragment.
type MemberProvider struct {
	Introspector Introspector
}

func (p *MemberProvider) Candidates(fragment string) []Item {
	i := strings.LastIndexByte(fragment, '.')
	if i <= 0 || p.Introspector == nil {
		return nil
	}
	qualifier := fragment[:i]
	members := p.Introspector.Members(qualifier)
	items := make([]Item, len(members))
	for j, m := range members {
		items[j] = &Method{Name: m, Qualifier: qualifier}
	}
	return items
}

// FuzzyProvider suggests corrections for fragments that are close to a
// known word, ranked by edit distance.
type FuzzyProvider struct {
	// MinLength is the shortest fragment worth correcting.
	MinLength   int
	MaxDistance int
	Limit       int

	mu    sync.Mutex
	model *fuzzy.Model
	known map[string]bool
}

func NewFuzzyProvider(words []string) *FuzzyProvider {
	p := &FuzzyProvider{MinLength: 3, MaxDistance: 2, Limit: 5}
	p.Train(words)
	return p
}

// Train replaces the vocabulary.
func (p *FuzzyProvider) Train(words []string) {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)
	known := make(map[string]bool, len(words))
	lower := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if !known[w] {
			known[w] = true
			lower = append(lower, w)
		}
	}
	model.Train(lower)

	p.mu.Lock()
	p.model, p.known = model, known
	p.mu.Unlock()
	log.Debugf("fuzzy model trained on %d words", len(lower))
}

func (p *FuzzyProvider) Candidates(fragment string) []Item {
	f := strings.ToLower(fragment)
	if len([]rune(f)) < p.MinLength {
		return nil
	}
	p.mu.Lock()
	model, known := p.model, p.known
	p.mu.Unlock()
	if model == nil || known[f] {
		return nil
	}

	type ranked struct {
		word string
		dist int
	}
	var hits []ranked
	for _, s := range model.Suggestions(f, true) {
		if d := levenshtein.ComputeDistance(f, s); d > 0 && d <= p.MaxDistance {
			hits = append(hits, ranked{s, d})
		}
	}
	slices.SortFunc(hits, func(a, b ranked) int {
		if a.dist != b.dist {
			return a.dist - b.dist
		}
		return strings.Compare(a.word, b.word)
	})
	hits = slices.CompactFunc(hits, func(a, b ranked) bool { return a.word == b.word })
	if p.Limit > 0 && len(hits) > p.Limit {
		hits = hits[:p.Limit]
	}
	items := make([]Item, len(hits))
	for i, h := range hits {
		items[i] = &Correction{Word: h.word, MaxDistance: p.MaxDistance}
	}
	return items
}
