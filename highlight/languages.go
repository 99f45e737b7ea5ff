package highlight

import (
	"strings"

	"richedit/style"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/dlclark/regexp2"
	"github.com/gdamore/tcell/v2"
)

// Palette holds the styles built-in rulesets paint with.
type Palette struct {
	Keyword   style.ID
	Type      style.ID
	String    style.ID
	Comment   style.ID
	Number    style.ID
	Attribute style.ID
	Function  style.ID
	Tag       style.ID
	Value     style.ID
}

// NewPalette registers the default appearance of every palette entry.
func NewPalette(reg *style.Registry) (*Palette, error) {
	p := &Palette{}
	for _, e := range []struct {
		id *style.ID
		s  *style.TextStyle
	}{
		{&p.Keyword, style.NewTextStyle("keyword", tcell.ColorBlue).Bold()},
		{&p.Type, style.NewTextStyle("type", tcell.ColorFuchsia)},
		{&p.String, style.NewTextStyle("string", tcell.ColorGreen)},
		{&p.Comment, style.NewTextStyle("comment", tcell.ColorGray).Italic()},
		{&p.Number, style.NewTextStyle("number", tcell.ColorDarkCyan)},
		{&p.Attribute, style.NewTextStyle("attribute", tcell.ColorTeal)},
		{&p.Function, style.NewTextStyle("function", tcell.ColorYellow)},
		{&p.Tag, style.NewTextStyle("tag", tcell.ColorMaroon)},
		{&p.Value, style.NewTextStyle("value", tcell.ColorOlive)},
	} {
		id, err := reg.Register(e.s)
		if err != nil {
			return nil, err
		}
		*e.id = id
	}
	return p, nil
}

// TokenMap maps chroma token categories onto the palette.
func (p *Palette) TokenMap() TokenMap {
	return TokenMap{
		chroma.Keyword:           p.Keyword,
		chroma.KeywordType:       p.Type,
		chroma.NameBuiltin:       p.Keyword,
		chroma.NameClass:         p.Type,
		chroma.NameException:     p.Type,
		chroma.NameDecorator:     p.Attribute,
		chroma.NameAttribute:     p.Attribute,
		chroma.NameTag:           p.Tag,
		chroma.NameFunction:      p.Function,
		chroma.NameFunctionMagic: p.Function,
		chroma.LiteralString:     p.String,
		chroma.LiteralNumber:     p.Number,
		chroma.Comment:           p.Comment,
	}
}

var builtins = map[string]func(*Palette) *Ruleset{
	"c#":         csharp,
	"go":         golang,
	"javascript": javascript,
	"sql":        sql,
	"xml":        xml,
	"html":       html,
}

// ForLanguage returns the built-in ruleset for a chroma language name.
// Languages without one get a ruleset driven by their chroma lexer and
// brace folding; unknown names get an empty ruleset.
func ForLanguage(name string, p *Palette) *Ruleset {
	if build, ok := builtins[strings.ToLower(name)]; ok {
		return build(p)
	}
	rs := NewRuleset(name)
	if name == "" {
		return rs
	}
	if err := rs.WithLexer(name, p.TokenMap()); err != nil {
		log.Debugf("plain ruleset for %q: %s", name, err.Error())
		return rs
	}
	rs.MustSetFolding(`\{`, `\}`)
	return rs
}

var xmlProlog = regexp2.MustCompile(`^\s*<\?xml\b`, regexp2.None)

// DetectLanguage names the language of a file from its name and content.
// An XML prolog wins over the file name.
func DetectLanguage(filename, text string) string {
	if ok, _ := xmlProlog.MatchString(text); ok {
		return "XML"
	}
	lexer := lexers.Match(filename)
	if lexer == nil && text != "" {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		return ""
	}
	config := lexer.Config()
	if config == nil {
		return ""
	}
	return config.Name
}

func csharp(p *Palette) *Ruleset {
	rs := NewRuleset("C#")
	rs.MustAdd(`""|@""|''|@"".*?""|(?<!@)(?<range>".*?[^\\]")|'.*?[^\\]'`, p.String, regexp2.None)
	rs.MustAdd(`//.*$`, p.Comment, regexp2.None)
	rs.MustAdd(`(/\*.*?\*/)|(/\*.*)`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`(/\*.*?\*/)|(.*\*/)`, p.Comment, regexp2.Singleline|regexp2.RightToLeft)
	rs.MustAdd(`\b\d+[\.]?\d*([eE]\-?\d+)?[lLdDfF]?\b|\b0x[a-fA-F\d]+\b`, p.Number, regexp2.None)
	rs.MustAdd(`^\s*(?<range>\[.+?\])\s*$`, p.Attribute, regexp2.None)
	rs.MustAdd(`\b(class|struct|enum|interface)\s+(?<range>\w+?)\b`, p.Type, regexp2.None)
	rs.MustAdd(`\b(abstract|as|base|bool|break|byte|case|catch|char|checked|class|const|continue|decimal|default|delegate|do|double|else|enum|event|explicit|extern|false|finally|fixed|float|for|foreach|goto|if|implicit|in|int|interface|internal|is|lock|long|namespace|new|null|object|operator|out|override|params|private|protected|public|readonly|ref|return|sbyte|sealed|short|sizeof|stackalloc|static|string|struct|switch|this|throw|true|try|typeof|uint|ulong|unchecked|unsafe|ushort|using|var|virtual|void|volatile|while|add|alias|ascending|descending|dynamic|from|get|global|group|into|join|let|orderby|partial|remove|select|set|value|where|yield)\b|#region\b|#endregion\b`, p.Keyword, regexp2.None)
	rs.MustSetFolding(`\{`, `\}`)
	rs.MustSetFolding(`#region\b`, `#endregion\b`)
	return rs
}

func golang(p *Palette) *Ruleset {
	rs := NewRuleset("Go")
	rs.MustAdd("`[^`]*`|\"(\\\\.|[^\"\\\\])*\"|'(\\\\.|[^'\\\\])+'", p.String, regexp2.None)
	rs.MustAdd(`//.*$`, p.Comment, regexp2.None)
	rs.MustAdd(`(/\*.*?\*/)|(/\*.*)`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`\b0[xX][\da-fA-F_]+\b|\b\d[\d_]*(\.\d+)?([eE][+-]?\d+)?i?\b`, p.Number, regexp2.None)
	rs.MustAdd(`\bfunc\s+(\([^)]*\)\s*)?(?<range>\w+)`, p.Function, regexp2.None)
	rs.MustAdd(`\btype\s+(?<range>\w+)`, p.Type, regexp2.None)
	rs.MustAdd(`\b(break|case|chan|const|continue|default|defer|else|fallthrough|for|func|go|goto|if|import|interface|map|package|range|return|select|struct|switch|type|var|nil|true|false|iota)\b`, p.Keyword, regexp2.None)
	rs.MustAdd(`\b(bool|byte|complex64|complex128|error|float32|float64|int|int8|int16|int32|int64|rune|string|uint|uint8|uint16|uint32|uint64|uintptr|any)\b`, p.Type, regexp2.None)
	rs.MustSetFolding(`\{\s*$`, `^\s*\}`)
	return rs
}

func javascript(p *Palette) *Ruleset {
	rs := NewRuleset("JavaScript")
	rs.MustAdd(`""|''|".*?[^\\]"|'.*?[^\\]'|`+"`[^`]*`", p.String, regexp2.None)
	rs.MustAdd(`//.*$`, p.Comment, regexp2.None)
	rs.MustAdd(`(/\*.*?\*/)|(/\*.*)`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`(/\*.*?\*/)|(.*\*/)`, p.Comment, regexp2.Singleline|regexp2.RightToLeft)
	rs.MustAdd(`\b\d+[\.]?\d*([eE]\-?\d+)?[lLdDfF]?\b|\b0x[a-fA-F\d]+\b`, p.Number, regexp2.None)
	rs.MustAdd(`\bfunction\s+(?<range>\w+)`, p.Function, regexp2.None)
	rs.MustAdd(`\b(true|false|break|case|catch|const|continue|default|delete|do|else|export|for|function|if|in|instanceof|new|null|return|switch|this|throw|try|var|void|while|with|typeof|let|class|extends|async|await|yield|undefined)\b`, p.Keyword, regexp2.None)
	rs.MustSetFolding(`\{`, `\}`)
	return rs
}

func sql(p *Palette) *Ruleset {
	rs := NewRuleset("SQL")
	rs.MustAdd(`'(''|[^'])*'|"(""|[^"])*"`, p.String, regexp2.None)
	rs.MustAdd(`--.*$`, p.Comment, regexp2.None)
	rs.MustAdd(`(/\*.*?\*/)|(/\*.*)`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`\b\d+[\.]?\d*([eE]\-?\d+)?\b`, p.Number, regexp2.None)
	rs.MustAdd(`@[a-zA-Z_\d]*\b`, p.Value, regexp2.None)
	rs.MustAdd(`\b(ADD|ALTER|AS|ASC|BACKUP|BEGIN|BETWEEN|BY|CASE|CHECK|COLUMN|COMMIT|CONSTRAINT|CREATE|DATABASE|DECLARE|DEFAULT|DELETE|DESC|DISTINCT|DROP|ELSE|END|EXEC|EXISTS|FOREIGN|FROM|FULL|GROUP|HAVING|IF|IN|INDEX|INNER|INSERT|INTO|IS|JOIN|KEY|LEFT|LIKE|LIMIT|NOT|NULL|ON|OR|AND|ORDER|OUTER|PRIMARY|PROCEDURE|REFERENCES|RIGHT|ROLLBACK|SELECT|SET|TABLE|THEN|TOP|TRANSACTION|TRUNCATE|UNION|UNIQUE|UPDATE|VALUES|VIEW|WHEN|WHERE|WHILE|WITH)\b`, p.Keyword, regexp2.IgnoreCase)
	rs.MustAdd(`\b(BIGINT|BIT|CHAR|DATE|DATETIME|DECIMAL|FLOAT|INT|MONEY|NCHAR|NUMERIC|NVARCHAR|REAL|SMALLINT|TEXT|TIME|TINYINT|VARCHAR)\b`, p.Type, regexp2.IgnoreCase)
	rs.MustSetFolding(`\b(BEGIN)\b`, `\b(END)\b`)
	rs.MustSetFolding(`/\*`, `\*/`)
	return rs
}

func xml(p *Palette) *Ruleset {
	rs := NewRuleset("XML")
	rs.MustAdd(`<!--.*?-->`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`<\?|<|/>|</|>|\?>`, p.Tag, regexp2.None)
	rs.MustAdd(`<[?/]?(?<range>[!\w:\-\.]+)`, p.Type, regexp2.None)
	rs.MustAdd(`(?<range>[\w\d\-\:]+)[ ]*=[ ]*(?=['"])`, p.Attribute, regexp2.None)
	rs.MustAdd(`[\w\d\-\:]+[ ]*=[ ]*(?<range>'[^']*'|"[^"]*")`, p.String, regexp2.None)
	rs.MustAdd(`&[\w\d\#]+;`, p.Value, regexp2.None)
	rs.MustSetFolding(`<(?<tag>[\w:\-\.]+)[^>/]*>\s*$`, `^\s*</[\w:\-\.]+>`)
	return rs
}

func html(p *Palette) *Ruleset {
	rs := NewRuleset("HTML")
	rs.MustAdd(`<!--.*?-->`, p.Comment, regexp2.Singleline)
	rs.MustAdd(`<|/>|</|>`, p.Tag, regexp2.None)
	rs.MustAdd(`<(?<range>[!\w:]+)`, p.Type, regexp2.None)
	rs.MustAdd(`</(?<range>[\w:]+)>`, p.Type, regexp2.None)
	rs.MustAdd(`(?<range>[\w\-]+)[ ]*=[ ]*(?=['"])`, p.Attribute, regexp2.None)
	rs.MustAdd(`[\w\-]+[ ]*=[ ]*(?<range>'[^']*'|"[^"]*")`, p.String, regexp2.None)
	rs.MustAdd(`&[\w\d\#]+;`, p.Value, regexp2.None)
	rs.MustSetFolding(`<(div|table|ul|ol|head|body|html|form|section|script|style)\b[^>]*>`, `</(div|table|ul|ol|head|body|html|form|section|script|style)>`)
	return rs
}
