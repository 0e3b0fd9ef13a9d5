package parser

import "github.com/leapstack-labs/fetchsql/pkg/token"

// Condition parsing: WHERE trees.
//
// Grammar:
//
//	cond      → and_cond (OR and_cond)*
//	and_cond  → primary (AND primary)*
//	primary   → "(" cond ")" | colref predicate
//	predicate → cmp_op literal
//	          | [NOT] LIKE literal
//	          | IS [NOT] NULL
//	          | [NOT] IN "(" literal ("," literal)* ")"
//	          | [NOT] BETWEEN literal AND literal
//
// AND binds tighter than OR; both are left-associative.

// parseCondition parses a full condition tree.
func (p *Parser) parseCondition() Condition {
	left := p.parseAndCondition()
	for !p.failed() && p.match(token.OR) {
		right := p.parseAndCondition()
		left = &Logical{Op: OpOr, Left: left, Right: right}
	}
	return left
}

// parseAndCondition parses: primary (AND primary)*
func (p *Parser) parseAndCondition() Condition {
	left := p.parsePrimaryCondition()
	for !p.failed() && p.match(token.AND) {
		right := p.parsePrimaryCondition()
		left = &Logical{Op: OpAnd, Left: left, Right: right}
	}
	return left
}

// parsePrimaryCondition parses a parenthesised group or a comparison.
func (p *Parser) parsePrimaryCondition() Condition {
	if p.match(token.LPAREN) {
		inner := p.parseCondition()
		if !p.failed() {
			p.expect(token.RPAREN)
		}
		return inner
	}

	if p.check(token.NOT) {
		p.addError(ErrUnsupportedNotGroup)
		return nil
	}

	cmp := &Comparison{Column: p.parseColumnRef()}
	if p.failed() {
		return cmp
	}
	p.parsePredicate(cmp)
	return cmp
}

// cmpOperators maps comparison tokens to operators.
var cmpOperators = map[token.TokenType]Operator{
	token.EQ: OpEq,
	token.NE: OpNe,
	token.GT: OpGt,
	token.GE: OpGe,
	token.LT: OpLt,
	token.LE: OpLe,
}

// parsePredicate fills in the operator and values of cmp.
func (p *Parser) parsePredicate(cmp *Comparison) {
	if op, ok := cmpOperators[p.token.Type]; ok {
		p.nextToken()
		cmp.Operator = op
		if p.check(token.NULL) {
			p.addError(ErrNullComparison)
			return
		}
		cmp.Values = []Literal{p.parseLiteral()}
		return
	}

	switch p.token.Type {
	case token.IS:
		p.nextToken()
		cmp.Operator = OpIsNull
		if p.match(token.NOT) {
			cmp.Operator = OpIsNotNull
		}
		p.expect(token.NULL)
		return
	case token.NOT:
		p.nextToken()
		switch p.token.Type {
		case token.LIKE:
			cmp.Operator = OpNotLike
		case token.IN:
			cmp.Operator = OpNotIn
		case token.BETWEEN:
			cmp.Operator = OpNotBetween
		default:
			p.errorExpected("LIKE, IN or BETWEEN")
			return
		}
	case token.LIKE:
		cmp.Operator = OpLike
	case token.IN:
		cmp.Operator = OpIn
	case token.BETWEEN:
		cmp.Operator = OpBetween
	default:
		p.errorExpected("comparison operator")
		return
	}
	p.nextToken() // LIKE, IN or BETWEEN

	switch cmp.Operator {
	case OpLike, OpNotLike:
		cmp.Values = []Literal{p.parseLiteral()}
	case OpIn, OpNotIn:
		if !p.expect(token.LPAREN) {
			return
		}
		cmp.Values = p.parseLiteralList()
		if !p.failed() {
			p.expect(token.RPAREN)
		}
	case OpBetween, OpNotBetween:
		low := p.parseLiteral()
		if p.failed() || !p.expect(token.AND) {
			return
		}
		cmp.Values = []Literal{low, p.parseLiteral()}
	}
}
