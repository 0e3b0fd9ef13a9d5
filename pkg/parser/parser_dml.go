package parser

import (
	"fmt"

	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// Data modification parsing: INSERT, UPDATE, DELETE.
//
// Grammar:
//
//	insert → INSERT INTO entity "(" ident ("," ident)* ")"
//	         VALUES "(" literal_list ")" ("," "(" literal_list ")")*
//	update → UPDATE entity SET ident "=" literal ("," ident "=" literal)* [WHERE cond]
//	delete → DELETE FROM entity [WHERE cond]

// parseInsert parses an INSERT statement.
func (p *Parser) parseInsert() *Insert {
	p.expect(token.INSERT)
	p.expect(token.INTO)
	stmt := &Insert{Entity: p.parseIdent("entity name")}

	if !p.expect(token.LPAREN) {
		return stmt
	}
	for !p.failed() {
		stmt.Columns = append(stmt.Columns, p.parseIdent("column name"))
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) || !p.expect(token.VALUES) {
		return stmt
	}

	for !p.failed() {
		rowStart := p.token
		if !p.expect(token.LPAREN) {
			break
		}
		row := p.parseLiteralList()
		if !p.expect(token.RPAREN) {
			break
		}
		if len(row) != len(stmt.Columns) {
			p.errors = append(p.errors, p.errorAt(rowStart, fmt.Sprintf(ErrValueCount, len(row), len(stmt.Columns))))
			break
		}
		stmt.Rows = append(stmt.Rows, row)
		if !p.match(token.COMMA) {
			break
		}
	}
	return stmt
}

// parseUpdate parses an UPDATE statement.
func (p *Parser) parseUpdate() *Update {
	p.expect(token.UPDATE)
	stmt := &Update{Entity: p.parseIdent("entity name")}

	if !p.expect(token.SET) {
		return stmt
	}
	for !p.failed() {
		var a Assignment
		a.Column = p.parseIdent("column name")
		if !p.expect(token.EQ) {
			break
		}
		a.Value = p.parseLiteral()
		stmt.Assignments = append(stmt.Assignments, a)
		if !p.match(token.COMMA) {
			break
		}
	}

	if !p.failed() && p.match(token.WHERE) {
		stmt.Where = p.parseCondition()
	}
	return stmt
}

// parseDelete parses a DELETE statement.
func (p *Parser) parseDelete() *Delete {
	p.expect(token.DELETE)
	p.expect(token.FROM)
	stmt := &Delete{Entity: p.parseIdent("entity name")}

	if !p.failed() && p.match(token.WHERE) {
		stmt.Where = p.parseCondition()
	}
	return stmt
}
