package parser

import (
	"testing"

	"github.com/leapstack-labs/fetchsql/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Basic(t *testing.T) {
	input := "SELECT name, COUNT(*) FROM account WHERE revenue >= 10.5 AND x <> 'a'"
	expected := []token.TokenType{
		token.SELECT, token.IDENT, token.COMMA, token.IDENT, token.LPAREN, token.STAR, token.RPAREN,
		token.FROM, token.IDENT, token.WHERE, token.IDENT, token.GE, token.NUMBER,
		token.AND, token.IDENT, token.NE, token.STRING, token.EOF,
	}

	tokens := Tokenize(input)
	require.Len(t, tokens, len(expected))
	for i, tok := range tokens {
		assert.Equal(t, expected[i], tok.Type, "token %d (%q)", i, tok.Literal)
	}
}

func TestLexer_Offsets(t *testing.T) {
	input := "select  name\nfrom account"
	tokens := Tokenize(input)
	require.Len(t, tokens, 5)

	assert.Equal(t, token.SELECT, tokens[0].Type)
	assert.Equal(t, 0, tokens[0].Pos.Offset)
	assert.Equal(t, 6, tokens[0].End)

	assert.Equal(t, "name", tokens[1].Literal)
	assert.Equal(t, 8, tokens[1].Pos.Offset)
	assert.Equal(t, 12, tokens[1].End)

	from := tokens[2]
	assert.Equal(t, token.FROM, from.Type)
	assert.Equal(t, 13, from.Pos.Offset)
	assert.Equal(t, 2, from.Pos.Line)
	assert.Equal(t, 1, from.Pos.Column)

	eof := tokens[4]
	assert.Equal(t, token.EOF, eof.Type)
	assert.Equal(t, len(input), eof.Pos.Offset)
	assert.Equal(t, len(input), eof.End)
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		literal      string
		end          int
		unterminated bool
	}{
		{name: "simple", input: "'abc'", literal: "abc", end: 5},
		{name: "doubled quote", input: "'O''Brien'", literal: "O'Brien", end: 10},
		{name: "empty", input: "''", literal: "", end: 2},
		{name: "unterminated", input: "'abc", literal: "abc", end: 4, unterminated: true},
		{name: "unterminated after escape", input: "'it''s", literal: "it's", end: 6, unterminated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			require.Len(t, tokens, 2)
			tok := tokens[0]
			assert.Equal(t, token.STRING, tok.Type)
			assert.Equal(t, tt.literal, tok.Literal)
			assert.Equal(t, tt.end, tok.End)
			assert.Equal(t, tt.unterminated, tok.Unterminated)
		})
	}
}

func TestLexer_QuotedIdentifiers(t *testing.T) {
	tokens := Tokenize(`"my col" [other]]name] x`)
	require.Len(t, tokens, 4)
	assert.Equal(t, token.IDENT, tokens[0].Type)
	assert.Equal(t, "my col", tokens[0].Literal)
	assert.Equal(t, token.IDENT, tokens[1].Type)
	assert.Equal(t, "other]name", tokens[1].Literal)
	assert.Equal(t, "x", tokens[2].Literal)
}

func TestLexer_Comments(t *testing.T) {
	tokens := Tokenize("-- lead\nSELECT /* mid */ 1 /* open")
	types := make([]token.TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []token.TokenType{
		token.COMMENT, token.SELECT, token.COMMENT, token.NUMBER, token.COMMENT, token.EOF,
	}, types)

	assert.Equal(t, "-- lead", tokens[0].Literal)
	assert.False(t, tokens[2].Unterminated)
	assert.True(t, tokens[4].Unterminated)
}

func TestLexer_Operators(t *testing.T) {
	tokens := Tokenize("= <> != < > <= >= - + . ; /")
	expected := []token.TokenType{
		token.EQ, token.NE, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.MINUS, token.PLUS, token.DOT, token.SEMICOLON, token.ILLEGAL, token.EOF,
	}
	require.Len(t, tokens, len(expected))
	for i, tok := range tokens {
		assert.Equal(t, expected[i], tok.Type, "token %d", i)
	}
}

func TestLexer_Numbers(t *testing.T) {
	for _, input := range []string{"42", "3.14", "1e10", "2E-5", ".5"} {
		tokens := Tokenize(input)
		require.Len(t, tokens, 2, input)
		assert.Equal(t, token.NUMBER, tokens[0].Type, input)
		assert.Equal(t, input, tokens[0].Literal)
	}

	// "1e" is a number followed by an identifier
	tokens := Tokenize("1e")
	require.Len(t, tokens, 3)
	assert.Equal(t, "1", tokens[0].Literal)
	assert.Equal(t, token.IDENT, tokens[1].Type)
}

func TestLexer_KeywordsCaseInsensitive(t *testing.T) {
	tokens := Tokenize("Select DISTINCT top")
	assert.Equal(t, token.SELECT, tokens[0].Type)
	assert.Equal(t, token.DISTINCT, tokens[1].Type)
	assert.Equal(t, token.TOP, tokens[2].Type)
	assert.Equal(t, "Select", tokens[0].Literal)
}
