// Package token defines the token types shared by the SQL lexer, the parser
// and the completion context detector.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	COMMENT // -- line or /* block */

	// Literals
	IDENT  // account, "quoted", [bracketed]
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello', 'O''Brien'

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;

	// Keywords (alphabetical)
	AND
	AS
	ASC
	BETWEEN
	BY
	CROSS
	DELETE
	DESC
	DISTINCT
	FALSE
	FROM
	FULL
	GROUP
	HAVING
	IN
	INNER
	INSERT
	INTO
	IS
	JOIN
	LEFT
	LIKE
	LIMIT
	NOT
	NULL
	ON
	OR
	ORDER
	OUTER
	RIGHT
	SELECT
	SET
	TOP
	TRUE
	UPDATE
	VALUES
	WHERE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	COMMENT: "COMMENT",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	EQ:        "=",
	NE:        "<>",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	SEMICOLON: ";",

	AND:      "AND",
	AS:       "AS",
	ASC:      "ASC",
	BETWEEN:  "BETWEEN",
	BY:       "BY",
	CROSS:    "CROSS",
	DELETE:   "DELETE",
	DESC:     "DESC",
	DISTINCT: "DISTINCT",
	FALSE:    "FALSE",
	FROM:     "FROM",
	FULL:     "FULL",
	GROUP:    "GROUP",
	HAVING:   "HAVING",
	IN:       "IN",
	INNER:    "INNER",
	INSERT:   "INSERT",
	INTO:     "INTO",
	IS:       "IS",
	JOIN:     "JOIN",
	LEFT:     "LEFT",
	LIKE:     "LIKE",
	LIMIT:    "LIMIT",
	NOT:      "NOT",
	NULL:     "NULL",
	ON:       "ON",
	OR:       "OR",
	ORDER:    "ORDER",
	OUTER:    "OUTER",
	RIGHT:    "RIGHT",
	SELECT:   "SELECT",
	SET:      "SET",
	TOP:      "TOP",
	TRUE:     "TRUE",
	UPDATE:   "UPDATE",
	VALUES:   "VALUES",
	WHERE:    "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"asc":      ASC,
	"between":  BETWEEN,
	"by":       BY,
	"cross":    CROSS,
	"delete":   DELETE,
	"desc":     DESC,
	"distinct": DISTINCT,
	"false":    FALSE,
	"from":     FROM,
	"full":     FULL,
	"group":    GROUP,
	"having":   HAVING,
	"in":       IN,
	"inner":    INNER,
	"insert":   INSERT,
	"into":     INTO,
	"is":       IS,
	"join":     JOIN,
	"left":     LEFT,
	"like":     LIKE,
	"limit":    LIMIT,
	"not":      NOT,
	"null":     NULL,
	"on":       ON,
	"or":       OR,
	"order":    ORDER,
	"outer":    OUTER,
	"right":    RIGHT,
	"select":   SELECT,
	"set":      SET,
	"top":      TOP,
	"true":     TRUE,
	"update":   UPDATE,
	"values":   VALUES,
	"where":    WHERE,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= WHERE
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= SEMICOLON
}

// Token represents a lexical token with position information.
type Token struct {
	Type TokenType
	// Literal is the source text of the token. STRING tokens hold the decoded
	// value (quotes removed, doubled quotes collapsed) and quoted identifiers
	// the name without delimiters.
	Literal string
	Pos     Position
	// End is the byte offset one past the last byte of the token.
	End int
	// Unterminated is set on STRING, quoted IDENT and block COMMENT tokens
	// that run to the end of input without a closing delimiter.
	Unterminated bool
}

// Contains reports whether offset lies strictly inside the token: after its
// first byte and before its end. For unterminated tokens the end of input
// counts as inside.
func (t Token) Contains(offset int) bool {
	if offset <= t.Pos.Offset {
		return false
	}
	if t.Unterminated {
		return offset <= t.End
	}
	return offset < t.End
}

// Is reports whether the token is of any of the given types.
func (t Token) Is(types ...TokenType) bool {
	for _, tt := range types {
		if t.Type == tt {
			return true
		}
	}
	return false
}
