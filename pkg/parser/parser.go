// Package parser provides the SQL lexer and the recursive descent parser of
// the SQL subset that FetchXML can express.
//
// # Usage
//
//	stmt, err := parser.Parse("SELECT name FROM account WHERE statecode = 0")
//	if err != nil {
//	    var perr *parser.ParseError
//	    if errors.As(err, &perr) {
//	        // perr.Offset points at the first unexpected token
//	    }
//	}
//
// Parse never panics. It is called on every keystroke, so partial input is
// the common case and always yields a *ParseError rather than a crash.
//
// # Grammar Overview
//
//	statement → (select | insert | update | delete) [";"] EOF
//	select    → SELECT [DISTINCT] [TOP n] select_list FROM entity [[AS] alias]
//	            join* [WHERE cond] [GROUP BY colref_list]
//	            [ORDER BY order_list] [LIMIT n]
//	insert    → INSERT INTO entity "(" ident_list ")" VALUES row ("," row)*
//	update    → UPDATE entity SET ident "=" literal ("," ident "=" literal)* [WHERE cond]
//	delete    → DELETE FROM entity [WHERE cond]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SQL statement.
//
// The returned error is a *ParseError for malformed input, or a
// *core.InputTooLargeError when sql exceeds core.DefaultMaxInputSize.
func Parse(sql string) (stmt Statement, err error) {
	if err := core.CheckInputSize(sql); err != nil {
		return nil, err
	}

	p := NewParser(sql)
	defer func() {
		if r := recover(); r != nil {
			stmt = nil
			err = p.errorAt(p.token, fmt.Sprintf("internal parser error: %v", r))
		}
	}()

	stmt = p.parseStatement()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token, skipping comments.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	for {
		p.peek2 = p.lexer.NextToken()
		if p.peek2.Type != token.COMMENT {
			break
		}
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.errorExpected(describeType(t))
	return false
}

// failed reports whether an error has been recorded. Productions stop
// consuming input once it returns true.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// addError records a parse error at the current token. Only the first
// error is kept: it marks the first unexpected token.
func (p *Parser) addError(msg string) {
	if p.failed() {
		return
	}
	p.errors = append(p.errors, p.errorAt(p.token, msg))
}

// errorExpected records an "unexpected X, expected Y" error.
func (p *Parser) errorExpected(what string) {
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), what))
}

// errorAt builds a ParseError located at tok.
func (p *Parser) errorAt(tok token.Token, msg string) *ParseError {
	return &ParseError{
		Offset:  tok.Pos.Offset,
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Message: msg,
	}
}

// describeType renders an expected token type for error messages.
func describeType(t token.TokenType) string {
	switch t {
	case token.IDENT:
		return "identifier"
	case token.NUMBER:
		return "number"
	case token.STRING:
		return "string literal"
	case token.EOF:
		return "end of input"
	}
	if token.IsKeyword(t) {
		return t.String()
	}
	return fmt.Sprintf("%q", t.String())
}

// ---------- Shared Productions ----------

// parseIdent parses an identifier and returns its name.
func (p *Parser) parseIdent(what string) string {
	if !p.check(token.IDENT) {
		p.errorExpected(what)
		return ""
	}
	if p.token.Unterminated {
		p.addError(ErrUnterminatedIdent)
		return ""
	}
	name := p.token.Literal
	p.nextToken()
	return name
}

// parseColumnRef parses: ident ["." ident]
func (p *Parser) parseColumnRef() ColumnRef {
	name := p.parseIdent("column name")
	if p.failed() {
		return ColumnRef{}
	}
	if p.match(token.DOT) {
		return ColumnRef{Table: name, Name: p.parseIdent("column name")}
	}
	return ColumnRef{Name: name}
}

// parseAlias parses an optional alias: [AS] ident.
// A bare identifier is an alias because every clause keyword is a reserved token.
func (p *Parser) parseAlias() string {
	if p.match(token.AS) {
		return p.parseIdent("alias")
	}
	if p.check(token.IDENT) {
		return p.parseIdent("alias")
	}
	return ""
}

// parseTableRef parses: entity [[AS] alias]
func (p *Parser) parseTableRef() TableRef {
	entity := p.parseIdent("entity name")
	if p.failed() {
		return TableRef{}
	}
	return TableRef{Entity: entity, Alias: p.parseAlias()}
}

// parseCount parses a non-negative integer (TOP and LIMIT values).
func (p *Parser) parseCount() *int {
	if !p.check(token.NUMBER) {
		p.errorExpected("number")
		return nil
	}
	n, ok := atoi(p.token.Literal)
	if !ok {
		p.addError(fmt.Sprintf(ErrInvalidCount, p.token.Literal))
		return nil
	}
	p.nextToken()
	return &n
}

// atoi converts a plain decimal integer, rejecting decimals, exponents and
// values that overflow int32.
func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
		if n > 1<<31-1 {
			return 0, false
		}
	}
	return n, true
}

// parseLiteral parses: STRING | ["-"] NUMBER | NULL | TRUE | FALSE
func (p *Parser) parseLiteral() Literal {
	tok := p.token
	switch tok.Type {
	case token.STRING:
		if tok.Unterminated {
			p.addError(ErrUnterminatedString)
			return Literal{}
		}
		p.nextToken()
		return StringLit(tok.Literal)
	case token.NUMBER:
		p.nextToken()
		return NumberLit(tok.Literal)
	case token.MINUS, token.PLUS:
		if p.checkPeek(token.NUMBER) {
			p.nextToken()
			num := p.token.Literal
			p.nextToken()
			if tok.Type == token.MINUS {
				num = "-" + num
			}
			return NumberLit(num)
		}
	case token.NULL:
		p.nextToken()
		return Literal{Kind: LiteralNull, Value: "null"}
	case token.TRUE:
		p.nextToken()
		return Literal{Kind: LiteralBool, Value: "true"}
	case token.FALSE:
		p.nextToken()
		return Literal{Kind: LiteralBool, Value: "false"}
	}
	p.errorExpected("literal value")
	return Literal{}
}

// parseLiteralList parses: literal ("," literal)*
func (p *Parser) parseLiteralList() []Literal {
	var values []Literal
	for {
		values = append(values, p.parseLiteral())
		if p.failed() || !p.match(token.COMMA) {
			break
		}
	}
	return values
}
