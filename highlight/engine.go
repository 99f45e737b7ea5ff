package highlight

import (
	"fmt"

	"richedit/buffer"
	"richedit/textpos"
)

// Engine applies a Ruleset to a Document. It runs on the mutation thread.
type Engine struct {
	doc   *buffer.Document
	rules *Ruleset

	// OnError receives rule failures. The failed rule's writes are already
	// rolled back when it is called.
	OnError func(rule string, err error)

	passes int
}

func NewEngine(doc *buffer.Document, rs *Ruleset) *Engine {
	if rs == nil {
		rs = NewRuleset("plain")
	}
	return &Engine{doc: doc, rules: rs}
}

func (e *Engine) Ruleset() *Ruleset { return e.rules }

// Passes counts completed Highlight calls.
func (e *Engine) Passes() int { return e.passes }

// SetRuleset swaps the active rules and re-highlights the whole document.
// Styles owned by the old rules are cleared first.
func (e *Engine) SetRuleset(rs *Ruleset) {
	if old := e.rules.Owned(); len(old) > 0 {
		_ = e.doc.ClearStyle(e.doc.FullRange(), old...)
	}
	log.Infof("ruleset %s -> %s", e.rules.Name, rs.Name)
	e.rules = rs
	e.HighlightAll()
}

func (e *Engine) HighlightAll() textpos.Range {
	return e.Highlight(e.doc.FullRange())
}

// Highlight restyles the full lines covering r and returns the range it
// actually scanned.
func (e *Engine) Highlight(r textpos.Range) textpos.Range {
	r = e.doc.ExpandToFullLines(r)
	if owned := e.rules.Owned(); len(owned) > 0 {
		_ = e.doc.ClearStyle(r, owned...)
	}
	if e.rules.lexer != nil {
		e.apply(r, "lexer "+e.rules.Name, func() error { return e.lex(r) })
	}
	for _, rule := range e.rules.rules {
		e.apply(r, rule.Name, func() error {
			if rule.Func != nil {
				return rule.Func(e.doc, r)
			}
			return e.doc.SetStyleRegexp(r, rule.Style, rule.Pattern)
		})
	}
	if err := e.doc.SetFoldingRegexps(r, e.rules.folding...); err != nil {
		e.doc.ClearFoldingMarkers(r)
		e.report("folding", err)
	}
	e.doc.MarkHighlighted(r.Lines())
	e.passes++
	log.Debugf("highlighted %v with %s", r, e.rules.Name)
	return r
}

// apply runs one rule. A failing or panicking rule leaves the styles of r
// as they were before it ran.
func (e *Engine) apply(r textpos.Range, name string, fn func() error) {
	snap := e.doc.SnapshotStyles(r)
	defer func() {
		if p := recover(); p != nil {
			e.doc.RestoreStyles(r, snap)
			e.report(name, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		e.doc.RestoreStyles(r, snap)
		e.report(name, err)
	}
}

func (e *Engine) report(name string, err error) {
	log.Warningf("rule %s: %s", name, err.Error())
	if e.OnError != nil {
		e.OnError(name, err)
	}
}
