// Package highlight re-derives styles and folding markers for changed
// ranges of a buffer.Document from an ordered set of regex rules.
package highlight

import (
	"fmt"
	"slices"
	"time"

	"richedit/buffer"
	"richedit/style"
	"richedit/textpos"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/dlclark/regexp2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.highlight")

// ErrInvalidPattern is returned when a rule or folding pattern does not
// compile.
var ErrInvalidPattern = buffer.ErrInvalidPattern

// RuleFunc styles r directly. It runs under the same rollback as pattern
// rules.
type RuleFunc func(doc *buffer.Document, r textpos.Range) error

// Rule applies Style to every match of Pattern, or runs Func.
type Rule struct {
	Name    string
	Pattern *regexp2.Regexp
	Style   style.ID
	Func    RuleFunc
	owns    []style.ID
}

// Ruleset is an ordered list of rules. Later rules paint over earlier
// ones.
type Ruleset struct {
	Name string

	// MatchTimeout bounds each pattern scan. Zero means no timeout.
	MatchTimeout time.Duration

	rules   []Rule
	folding []buffer.FoldingPair
	lexer   chroma.Lexer
	tokens  TokenMap
}

func NewRuleset(name string) *Ruleset {
	return &Ruleset{Name: name}
}

func compile(pattern string, opts regexp2.RegexOptions, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

// Add compiles pattern and appends a rule styling its matches with id.
// Patterns always run in multiline mode so ^ and $ anchor at line
// boundaries. A bad pattern is rejected and earlier rules stay installed.
func (rs *Ruleset) Add(pattern string, id style.ID, opts regexp2.RegexOptions) error {
	re, err := compile(pattern, opts|regexp2.Multiline, rs.MatchTimeout)
	if err != nil {
		return err
	}
	rs.rules = append(rs.rules, Rule{Name: pattern, Pattern: re, Style: id})
	return nil
}

// MustAdd is Add for built-in rules.
func (rs *Ruleset) MustAdd(pattern string, id style.ID, opts regexp2.RegexOptions) {
	if err := rs.Add(pattern, id, opts); err != nil {
		panic(err)
	}
}

// AddFunc appends a custom rule. owns lists the styles it sets, which the
// engine clears before every pass.
func (rs *Ruleset) AddFunc(name string, fn RuleFunc, owns ...style.ID) {
	rs.rules = append(rs.rules, Rule{Name: name, Func: fn, owns: owns})
}

// SetFolding adds a folding marker pair. Pairs apply in the order added.
func (rs *Ruleset) SetFolding(start, end string) error {
	s, err := compile(start, regexp2.None, rs.MatchTimeout)
	if err != nil {
		return err
	}
	e, err := compile(end, regexp2.None, rs.MatchTimeout)
	if err != nil {
		return err
	}
	rs.folding = append(rs.folding, buffer.FoldingPair{Start: s, End: e})
	return nil
}

// MustSetFolding is SetFolding for built-in marker pairs.
func (rs *Ruleset) MustSetFolding(start, end string) {
	if err := rs.SetFolding(start, end); err != nil {
		panic(err)
	}
}

// WithLexer runs the named chroma lexer before the regex rules and styles
// its tokens through m.
func (rs *Ruleset) WithLexer(name string, m TokenMap) error {
	lexer := lexers.Get(name)
	if lexer == nil {
		return fmt.Errorf("no lexer for %q", name)
	}
	rs.lexer = chroma.Coalesce(lexer)
	rs.tokens = m
	return nil
}

func (rs *Ruleset) Rules() []Rule {
	return slices.Clone(rs.rules)
}

// Folding returns the marker pairs in the order they apply.
func (rs *Ruleset) Folding() []buffer.FoldingPair {
	return slices.Clone(rs.folding)
}

// Owned lists every style the ruleset may set, ascending.
func (rs *Ruleset) Owned() []style.ID {
	var ids []style.ID
	for _, r := range rs.rules {
		if r.Func == nil {
			ids = append(ids, r.Style)
		}
		ids = append(ids, r.owns...)
	}
	if rs.lexer != nil {
		for _, id := range rs.tokens {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
