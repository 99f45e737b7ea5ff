package style

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.style")

// MaxBitmaskStyles is the number of styles a plain bitmask Set can carry.
const MaxBitmaskStyles = 32

var ErrStyleLimit = errors.New("style limit reached")

// ID identifies a registered style. Registration order is painting
// priority: a higher ID draws over a lower one.
type ID int

// Set is the per-character style value. In bitmask mode bit i means style
// i applies. In extended mode it is an index into the registry's interned
// set table.
type Set uint32

// Empty is the set with no styles in both modes.
const Empty Set = 0

// Registry assigns IDs to styles and interprets Sets.
type Registry struct {
	styles   []Style
	extended bool

	// interned style sets for extended mode; sets[0] is the empty set
	sets  [][]uint64
	index map[string]Set
}

type Option func(*Registry)

// WithExtendedSets lifts the 32-style cap by storing every distinct
// combination of styles once and referencing it by index.
func WithExtendedSets() Option {
	return func(r *Registry) {
		r.extended = true
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	if r.extended {
		r.sets = [][]uint64{nil}
		r.index = map[string]Set{"": Empty}
	}
	return r
}

// Register adds s and returns its stable ID.
func (r *Registry) Register(s Style) (ID, error) {
	if !r.extended && len(r.styles) >= MaxBitmaskStyles {
		return -1, fmt.Errorf("register style %d: %w", len(r.styles), ErrStyleLimit)
	}
	r.styles = append(r.styles, s)
	id := ID(len(r.styles) - 1)
	log.Debugf("registered style %d (%T)", id, s)
	return id, nil
}

// MustRegister is Register for static setups that cannot exceed the limit.
func (r *Registry) MustRegister(s Style) ID {
	id, err := r.Register(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (r *Registry) Len() int { return len(r.styles) }

func (r *Registry) Extended() bool { return r.extended }

// Style returns the style registered under id, or nil.
func (r *Registry) Style(id ID) Style {
	if id < 0 || int(id) >= len(r.styles) {
		return nil
	}
	return r.styles[id]
}

func (r *Registry) valid(id ID) bool {
	return id >= 0 && int(id) < len(r.styles)
}

// Has reports whether id is part of s.
func (r *Registry) Has(s Set, id ID) bool {
	if !r.valid(id) {
		return false
	}
	if !r.extended {
		return s&(1<<uint(id)) != 0
	}
	words := r.words(s)
	w := int(id) / 64
	return w < len(words) && words[w]&(1<<(uint(id)%64)) != 0
}

// Add returns s with id included. Adding twice is the same as adding once.
func (r *Registry) Add(s Set, id ID) Set {
	if !r.valid(id) {
		return s
	}
	if !r.extended {
		return s | 1<<uint(id)
	}
	words := r.words(s)
	w := int(id) / 64
	out := make([]uint64, max(len(words), w+1))
	copy(out, words)
	out[w] |= 1 << (uint(id) % 64)
	return r.intern(out)
}

// Remove returns s without the given ids.
func (r *Registry) Remove(s Set, ids ...ID) Set {
	if s == Empty {
		return s
	}
	if !r.extended {
		for _, id := range ids {
			if r.valid(id) {
				s &^= 1 << uint(id)
			}
		}
		return s
	}
	out := append([]uint64(nil), r.words(s)...)
	for _, id := range ids {
		if !r.valid(id) {
			continue
		}
		if w := int(id) / 64; w < len(out) {
			out[w] &^= 1 << (uint(id) % 64)
		}
	}
	return r.intern(out)
}

// IDs lists the styles in s in painting order.
func (r *Registry) IDs(s Set) []ID {
	if s == Empty {
		return nil
	}
	var words []uint64
	if r.extended {
		words = r.words(s)
	} else {
		words = []uint64{uint64(s)}
	}
	var ids []ID
	for w, word := range words {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			ids = append(ids, ID(w*64+b))
			word &^= 1 << uint(b)
		}
	}
	return ids
}

func (r *Registry) words(s Set) []uint64 {
	if int(s) >= len(r.sets) {
		return nil
	}
	return r.sets[s]
}

func (r *Registry) intern(words []uint64) Set {
	for len(words) > 0 && words[len(words)-1] == 0 {
		words = words[:len(words)-1]
	}
	key := make([]byte, 0, len(words)*8)
	for _, w := range words {
		key = binary.LittleEndian.AppendUint64(key, w)
	}
	if s, ok := r.index[string(key)]; ok {
		return s
	}
	s := Set(len(r.sets))
	r.sets = append(r.sets, words)
	r.index[string(key)] = s
	return s
}
