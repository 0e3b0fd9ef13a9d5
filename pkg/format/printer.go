// Package format renders parsed SQL statements back to canonical SQL text.
package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/token"
)

const indentSize = 2

// Printer handles SQL formatting with proper indentation and style.
// In inline mode line breaks collapse to single spaces and indentation is
// dropped, producing a one-line statement.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
	inline      bool
}

func newPrinter(inline bool) *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
		inline:      inline,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	if p.inline {
		return p.output.String()
	}
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 {
		if p.inline {
			if p.output.Len() > 0 {
				p.output.WriteByte(' ')
			}
		} else {
			p.writeIndent()
		}
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if !p.inline {
		p.output.WriteByte('\n')
	}
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.write(" ")
}

// kw prints keywords based on their token types.
func (p *Printer) kw(tokens ...token.TokenType) {
	for i, t := range tokens {
		if i > 0 {
			p.space()
		}
		p.write(t.String())
	}
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}

// ident writes an identifier, quoting it when it is not a plain word or
// collides with a keyword.
func (p *Printer) ident(name string) {
	p.write(QuoteIdent(name))
}

// QuoteIdent returns name as it must be written in SQL: unchanged when it
// is a plain identifier, otherwise wrapped in double quotes.
func QuoteIdent(name string) string {
	if isPlainIdent(name) && token.LookupIdent(strings.ToLower(name)) == token.IDENT {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch == '_' || ch >= 0x80:
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
