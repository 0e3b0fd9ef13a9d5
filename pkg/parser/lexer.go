package parser

import (
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// Lexer tokenizes SQL input.
//
// Every token carries its exact byte offsets; the context detector maps the
// editor cursor back onto them, so the lexer never normalises the input.
type Lexer struct {
	input string
	pos   int  // offset of ch
	ch    byte // current char under examination (0 at end of input)
	line  int  // line of ch (1-based)
	col   int  // column of ch (1-based, bytes)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
	if l.pos < len(l.input) {
		l.ch = l.input[l.pos]
	} else {
		l.ch = 0 // ASCII NUL = EOF
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

// atEOF reports whether the whole input has been consumed. A NUL byte inside
// the input is not the end.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token, comments included.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	tok := token.Token{Pos: l.currentPos()}

	if l.atEOF() {
		tok.Type = token.EOF
		tok.End = l.pos
		return tok
	}

	switch l.ch {
	case '-':
		if l.peekChar() == '-' {
			return l.readLineComment(tok)
		}
		return l.single(tok, token.MINUS)
	case '/':
		if l.peekChar() == '*' {
			return l.readBlockComment(tok)
		}
		return l.single(tok, token.ILLEGAL)
	case '+':
		return l.single(tok, token.PLUS)
	case '*':
		return l.single(tok, token.STAR)
	case '=':
		return l.single(tok, token.EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(tok, token.LE)
		case '>':
			return l.double(tok, token.NE)
		}
		return l.single(tok, token.LT)
	case '>':
		if l.peekChar() == '=' {
			return l.double(tok, token.GE)
		}
		return l.single(tok, token.GT)
	case '!':
		if l.peekChar() == '=' {
			return l.double(tok, token.NE)
		}
		return l.single(tok, token.ILLEGAL)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(tok)
		}
		return l.single(tok, token.DOT)
	case ',':
		return l.single(tok, token.COMMA)
	case '(':
		return l.single(tok, token.LPAREN)
	case ')':
		return l.single(tok, token.RPAREN)
	case ';':
		return l.single(tok, token.SEMICOLON)
	case '\'':
		tok.Type = token.STRING
		return l.readDelimited(tok, '\'')
	case '"':
		// Quoted identifier (ANSI style)
		tok.Type = token.IDENT
		return l.readDelimited(tok, '"')
	case '[':
		// Bracketed identifier (T-SQL style)
		tok.Type = token.IDENT
		return l.readDelimited(tok, ']')
	}

	switch {
	case isLetter(l.ch):
		start := l.pos
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		tok.Literal = l.input[start:l.pos]
		tok.Type = token.LookupIdent(strings.ToLower(tok.Literal))
		tok.End = l.pos
		return tok
	case isDigit(l.ch):
		return l.readNumber(tok)
	default:
		return l.single(tok, token.ILLEGAL)
	}
}

// single consumes one byte as a token of type t.
func (l *Lexer) single(tok token.Token, t token.TokenType) token.Token {
	tok.Type = t
	tok.Literal = string(l.ch)
	l.readChar()
	tok.End = l.pos
	return tok
}

// double consumes a two-byte operator.
func (l *Lexer) double(tok token.Token, t token.TokenType) token.Token {
	start := l.pos
	l.readChar()
	l.readChar()
	tok.Type = t
	tok.Literal = l.input[start:l.pos]
	tok.End = l.pos
	return tok
}

// skipWhitespace skips spaces, tabs and line breaks.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
		l.readChar()
	}
}

// readLineComment reads a "--" comment up to (not including) the line break.
func (l *Lexer) readLineComment(tok token.Token) token.Token {
	start := l.pos
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	tok.Type = token.COMMENT
	tok.Literal = l.input[start:l.pos]
	tok.End = l.pos
	return tok
}

// readBlockComment reads a "/* */" comment. Block comments do not nest.
func (l *Lexer) readBlockComment(tok token.Token) token.Token {
	start := l.pos
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	tok.Unterminated = true
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			tok.Unterminated = false
			break
		}
		l.readChar()
	}

	tok.Type = token.COMMENT
	tok.Literal = l.input[start:l.pos]
	tok.End = l.pos
	return tok
}

// readDelimited reads a string literal or quoted identifier. A doubled
// closing delimiter is an escaped delimiter: 'O''Brien' -> O'Brien.
// Input that ends before the closing delimiter yields an Unterminated token.
func (l *Lexer) readDelimited(tok token.Token, closing byte) token.Token {
	l.readChar() // skip opening delimiter

	var result strings.Builder
	tok.Unterminated = true
	for !l.atEOF() {
		if l.ch == closing {
			if l.peekChar() == closing {
				// Doubled delimiter escape
				result.WriteByte(closing)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing delimiter
			tok.Unterminated = false
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	tok.Literal = result.String()
	tok.End = l.pos
	return tok
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber(tok token.Token) token.Token {
	start := l.pos

	// Read integer part
	for isDigit(l.ch) {
		l.readChar()
	}

	// Read decimal part
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Read exponent part (e.g., 1e10, 1E-5)
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.pos+2 < len(l.input) && isDigit(l.input[l.pos+2])) {
			l.readChar() // skip 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar() // skip sign
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	tok.Type = token.NUMBER
	tok.Literal = l.input[start:l.pos]
	tok.End = l.pos
	return tok
}

// isLetter returns true if ch can start an identifier. Bytes of multi-byte
// UTF-8 sequences are accepted so that non-ASCII names stay in one token.
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, comments included, terminated
// by a single EOF token.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
