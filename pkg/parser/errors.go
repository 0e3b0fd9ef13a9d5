package parser

import (
	"fmt"

	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// ParseError represents a parsing error with position information.
// Offset is the byte offset of the first unexpected token, or the length of
// the input when the text ends early.
type ParseError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Pos returns the error location as a token.Position.
func (e *ParseError) Pos() token.Position {
	return token.Position{Line: e.Line, Column: e.Column, Offset: e.Offset}
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected %s, expected %s"
	ErrUnsupportedJoin     = "%s JOIN is not supported, only INNER and LEFT joins can be expressed in FetchXML"
	ErrUnsupportedHaving   = "HAVING is not supported, filter on aggregates cannot be expressed in FetchXML"
	ErrUnsupportedNotGroup = "NOT before a condition is not supported, use NOT LIKE, NOT IN, NOT BETWEEN or IS NOT NULL"
	ErrNullComparison      = "comparison with NULL is never true, use IS NULL or IS NOT NULL"
	ErrAggregateStar       = "%s(*) is not supported, only COUNT accepts *"
	ErrAggregateDistinct   = "DISTINCT is only supported inside COUNT"
	ErrCompoundJoin        = "join condition must be a single equality between two columns"
	ErrValueCount          = "VALUES row has %d values, expected %d"
	ErrDuplicateLimit      = "TOP and LIMIT cannot both be used"
	ErrInvalidCount        = "expected a non-negative integer, got %s"
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
)

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case token.NUMBER:
		return "number " + tok.Literal
	case token.STRING:
		return "string literal"
	case token.COMMENT:
		return "comment"
	case token.ILLEGAL:
		return fmt.Sprintf("character %q", tok.Literal)
	}
	if token.IsKeyword(tok.Type) {
		return "keyword " + tok.Type.String()
	}
	return fmt.Sprintf("%q", tok.Type.String())
}
