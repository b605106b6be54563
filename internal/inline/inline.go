// Package inline converts lightweight inline markup to and from block
// content run-lists.
//
// Supported syntax: **bold**, _italic_, [label](url) and backslash escapes
// for the marker characters. Markers toggle formatting; an unclosed marker
// formats the rest of the text.
package inline

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/starford/wayfarer/internal/document"
)

// markup is the token stream of one inline string.
type markup struct {
	Tokens []*token `parser:"@@*"`
}

type token struct {
	Link    string `parser:"  @Link"`
	Escaped string `parser:"| @Escaped"`
	Bold    bool   `parser:"| @Bold"`
	Italic  bool   `parser:"| @Italic"`
	Text    string `parser:"| @( Text | Punct )"`
}

// Order matters: links and escapes must win over bare punctuation.
var inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Link", Pattern: `\[(?:\\.|[^\]\\\n])*\]\([^)\s]*\)`},
	{Name: "Escaped", Pattern: `\\[*_\[\]\\]`},
	{Name: "Bold", Pattern: `\*\*`},
	{Name: "Italic", Pattern: `_`},
	{Name: "Text", Pattern: `[^*_\[\\]+`},
	{Name: "Punct", Pattern: `[*\[\\]`},
})

var inlineParser = participle.MustBuild[markup](
	participle.Lexer(inlineLexer),
)

// Parse converts markup into normalized content.
func Parse(s string) (document.Content, error) {
	if s == "" {
		return document.Content{}, nil
	}
	m, err := inlineParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("inline: parse: %w", err)
	}

	var (
		out          document.Content
		bold, italic bool
	)
	emit := func(text, link string) {
		out = append(out, document.Run{Text: text, Bold: bold, Italic: italic, Link: link})
	}
	for _, tok := range m.Tokens {
		switch {
		case tok.Link != "":
			label, url := splitLink(tok.Link)
			emit(label, url)
		case tok.Escaped != "":
			emit(tok.Escaped[1:], "")
		case tok.Bold:
			bold = !bold
		case tok.Italic:
			italic = !italic
		default:
			emit(tok.Text, "")
		}
	}
	return out.Normalize(), nil
}

// splitLink splits "[label](url)" into its parts and unescapes the label.
func splitLink(raw string) (string, string) {
	i := strings.LastIndex(raw, "](")
	return unescape(raw[1:i]), raw[i+2 : len(raw)-1]
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Render converts content back into markup. Parse(Render(c)) equals
// c.Normalize() as long as link URLs hold no whitespace or ')' and link
// labels hold no newline.
func Render(c document.Content) string {
	var b strings.Builder
	for _, r := range c.Normalize() {
		open, close := "", ""
		if r.Bold {
			open += "**"
			close = "**" + close
		}
		if r.Italic {
			open += "_"
			close = "_" + close
		}
		b.WriteString(open)
		if r.Link != "" {
			b.WriteString("[" + escape(r.Text, true) + "](" + r.Link + ")")
		} else {
			b.WriteString(escape(r.Text, false))
		}
		b.WriteString(close)
	}
	return b.String()
}

func escape(s string, inLink bool) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '*', '_', '[', '\\':
			b.WriteByte('\\')
		case ']':
			if inLink {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(ch)
	}
	return b.String()
}
