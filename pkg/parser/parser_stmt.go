package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// Statement parsing: SELECT, select list, joins, GROUP BY, ORDER BY.
//
// Grammar:
//
//	select      → SELECT [DISTINCT] [TOP n] select_list FROM entity [[AS] alias]
//	              join* [WHERE cond] [GROUP BY colref_list]
//	              [ORDER BY order_list] [LIMIT n]
//	select_list → select_item ("," select_item)*
//	select_item → "*" | alias "." "*" | colref [[AS] alias]
//	            | aggregate "(" ("*" | [DISTINCT] colref) ")" [[AS] alias]
//	join        → [INNER | LEFT [OUTER]] JOIN entity [[AS] alias] ON colref "=" colref
//	order_item  → colref [ASC | DESC]

// parseStatement parses a complete SQL statement.
func (p *Parser) parseStatement() Statement {
	var stmt Statement
	switch p.token.Type {
	case token.SELECT:
		stmt = p.parseSelect()
	case token.INSERT:
		stmt = p.parseInsert()
	case token.UPDATE:
		stmt = p.parseUpdate()
	case token.DELETE:
		stmt = p.parseDelete()
	default:
		p.errorExpected("SELECT, INSERT, UPDATE or DELETE")
		return nil
	}
	if p.failed() {
		return nil
	}

	p.match(token.SEMICOLON)
	if !p.check(token.EOF) {
		p.errorExpected("end of input")
		return nil
	}
	return stmt
}

// parseSelect parses a SELECT statement.
func (p *Parser) parseSelect() *Select {
	p.expect(token.SELECT)
	stmt := &Select{}

	if p.match(token.DISTINCT) {
		stmt.Distinct = true
	}
	if p.match(token.TOP) {
		if p.match(token.LPAREN) {
			stmt.Top = p.parseCount()
			p.expect(token.RPAREN)
		} else {
			stmt.Top = p.parseCount()
		}
	}
	if p.failed() {
		return stmt
	}

	stmt.Columns = p.parseSelectList()
	if p.failed() {
		return stmt
	}

	if !p.expect(token.FROM) {
		return stmt
	}
	stmt.From = p.parseTableRef()

	stmt.Joins = p.parseJoins()

	if p.match(token.WHERE) {
		stmt.Where = p.parseCondition()
	}

	if p.check(token.GROUP) {
		stmt.GroupBy = p.parseGroupBy()
	}

	if p.check(token.HAVING) {
		p.addError(ErrUnsupportedHaving)
		return stmt
	}

	if p.check(token.ORDER) {
		stmt.OrderBy = p.parseOrderBy()
	}

	if p.check(token.LIMIT) {
		if stmt.Top != nil {
			p.addError(ErrDuplicateLimit)
			return stmt
		}
		p.nextToken()
		stmt.Top = p.parseCount()
	}

	return stmt
}

// parseSelectList parses: select_item ("," select_item)*
func (p *Parser) parseSelectList() []Column {
	var cols []Column
	for {
		cols = append(cols, p.parseSelectItem())
		if p.failed() || !p.match(token.COMMA) {
			break
		}
	}
	return cols
}

// parseSelectItem parses a single SELECT list item.
func (p *Parser) parseSelectItem() Column {
	// Bare *
	if p.match(token.STAR) {
		return Column{Kind: ColumnWildcard}
	}

	// alias.*
	if p.check(token.IDENT) && p.checkPeek(token.DOT) && p.peek2.Type == token.STAR {
		table := p.token.Literal
		p.nextToken() // ident
		p.nextToken() // .
		p.nextToken() // *
		return Column{Kind: ColumnWildcard, Ref: ColumnRef{Table: table}}
	}

	// Aggregate function call
	if p.check(token.IDENT) && p.checkPeek(token.LPAREN) {
		if fn, ok := LookupAggregate(p.token.Literal); ok {
			agg := p.parseAggregate(fn)
			col := Column{Kind: ColumnAggregate, Aggregate: agg}
			if !p.failed() {
				col.Alias = p.parseAlias()
			}
			return col
		}
		p.addError(fmt.Sprintf("unsupported function %s, expected COUNT, SUM, AVG, MIN or MAX", strings.ToUpper(p.token.Literal)))
		return Column{}
	}

	ref := p.parseColumnRef()
	if p.failed() {
		return Column{}
	}
	return Column{Kind: ColumnPlain, Ref: ref, Alias: p.parseAlias()}
}

// parseAggregate parses: fn "(" ("*" | [DISTINCT] colref) ")"
func (p *Parser) parseAggregate(fn AggregateFunc) *AggregateColumn {
	p.nextToken() // function name
	p.expect(token.LPAREN)
	agg := &AggregateColumn{Func: fn}

	switch {
	case p.check(token.STAR):
		if fn != AggCount {
			p.addError(fmt.Sprintf(ErrAggregateStar, strings.ToUpper(string(fn))))
			return agg
		}
		p.nextToken()
	default:
		if p.check(token.DISTINCT) {
			if fn != AggCount {
				p.addError(ErrAggregateDistinct)
				return agg
			}
			p.nextToken()
			agg.Distinct = true
		}
		ref := p.parseColumnRef()
		agg.Arg = &ref
	}

	if !p.failed() {
		p.expect(token.RPAREN)
	}
	return agg
}

// parseJoins parses zero or more join clauses.
func (p *Parser) parseJoins() []Join {
	var joins []Join
	for !p.failed() {
		var join Join
		switch p.token.Type {
		case token.JOIN:
			join.Type = JoinInner
		case token.INNER:
			join.Type = JoinInner
			p.nextToken()
		case token.LEFT:
			join.Type = JoinLeft
			p.nextToken()
			p.match(token.OUTER)
		case token.RIGHT, token.FULL, token.CROSS:
			p.addError(fmt.Sprintf(ErrUnsupportedJoin, p.token.Type))
			return joins
		default:
			return joins
		}

		if !p.expect(token.JOIN) {
			return joins
		}
		table := p.parseTableRef()
		join.Entity, join.Alias = table.Entity, table.Alias

		if !p.expect(token.ON) {
			return joins
		}
		join.LeftKey = p.parseColumnRef()
		if p.failed() {
			return joins
		}
		if !p.check(token.EQ) {
			p.addError(ErrCompoundJoin)
			return joins
		}
		p.nextToken()
		join.RightKey = p.parseColumnRef()
		if p.check(token.AND) || p.check(token.OR) {
			p.addError(ErrCompoundJoin)
			return joins
		}

		joins = append(joins, join)
	}
	return joins
}

// parseGroupBy parses: GROUP BY colref ("," colref)*
func (p *Parser) parseGroupBy() []ColumnRef {
	p.expect(token.GROUP)
	p.expect(token.BY)

	var cols []ColumnRef
	for !p.failed() {
		cols = append(cols, p.parseColumnRef())
		if !p.match(token.COMMA) {
			break
		}
	}
	return cols
}

// parseOrderBy parses: ORDER BY order_item ("," order_item)*
func (p *Parser) parseOrderBy() []OrderItem {
	p.expect(token.ORDER)
	p.expect(token.BY)

	var items []OrderItem
	for !p.failed() {
		item := OrderItem{Column: p.parseColumnRef()}
		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}
