package highlight

import (
	"fmt"
	"strings"

	"richedit/style"
	"richedit/textpos"

	"github.com/alecthomas/chroma/v2"
)

// lexContext is how many lines before the changed range the lexer sees, so
// that constructs opened above it tokenise correctly.
const lexContext = 50

// TokenMap maps chroma token types to styles. Lookup falls back from the
// exact type to its sub-category and then its category.
type TokenMap map[chroma.TokenType]style.ID

func (m TokenMap) Lookup(t chroma.TokenType) (style.ID, bool) {
	for _, k := range []chroma.TokenType{t, t.SubCategory(), t.Category()} {
		if id, ok := m[k]; ok {
			return id, true
		}
	}
	return 0, false
}

// lex tokenises r plus some leading context and styles the tokens that
// fall inside r.
func (e *Engine) lex(r textpos.Range) error {
	from := max(r.Start.Line-lexContext, 0)
	text, err := e.doc.RangeText(textpos.Range{Start: textpos.Place{Line: from}, End: r.End})
	if err != nil {
		return err
	}
	it, err := e.rules.lexer.Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}

	line, col := from, 0
	for _, tok := range it.Tokens() {
		id, styled := e.rules.tokens.Lookup(tok.Type)
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				line++
				col = 0
			}
			if line > r.End.Line {
				return nil
			}
			n := len([]rune(part))
			if styled && n > 0 && line >= r.Start.Line {
				if err := e.styleSpan(line, col, col+n, id); err != nil {
					return err
				}
			}
			col += n
		}
	}
	return nil
}

// styleSpan styles [from, to) of line, clipped to the line length since
// some lexers append a final newline.
func (e *Engine) styleSpan(line, from, to int, id style.ID) error {
	l, err := e.doc.Line(line)
	if err != nil {
		return err
	}
	to = min(to, l.Len())
	if from >= to {
		return nil
	}
	return e.doc.SetStyle(textpos.LineRange(line, from, to), id)
}
