package format

import (
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// formatConditionLines prints the top-level chain of a WHERE tree with one
// operand per line, each continuation prefixed by its operator.
func (p *Printer) formatConditionLines(c parser.Condition) {
	top, ok := c.(*parser.Logical)
	if !ok {
		p.formatCondition(c, "")
		return
	}

	operands := flatten(c, top.Op)
	for i, operand := range operands {
		if i > 0 {
			p.writeln()
			p.write(string(top.Op))
			p.space()
		}
		p.formatCondition(operand, top.Op)
	}
}

// flatten collects the operands of a chain of the same logical operator.
func flatten(c parser.Condition, op parser.LogicalOp) []parser.Condition {
	if l, ok := c.(*parser.Logical); ok && l.Op == op {
		return append(flatten(l.Left, op), flatten(l.Right, op)...)
	}
	return []parser.Condition{c}
}

// formatCondition prints a condition inline. parent is the operator of the
// enclosing node; OR groups under AND are parenthesised.
func (p *Printer) formatCondition(c parser.Condition, parent parser.LogicalOp) {
	switch n := c.(type) {
	case *parser.Logical:
		needParens := parent == parser.OpAnd && n.Op == parser.OpOr
		if needParens {
			p.write("(")
		}
		operands := flatten(n, n.Op)
		for i, operand := range operands {
			if i > 0 {
				p.space()
				p.write(string(n.Op))
				p.space()
			}
			p.formatCondition(operand, n.Op)
		}
		if needParens {
			p.write(")")
		}
	case *parser.Comparison:
		p.formatComparison(n)
	}
}

func (p *Printer) formatComparison(c *parser.Comparison) {
	p.formatColumnRef(c.Column)
	p.space()
	p.write(string(c.Operator))

	switch c.Operator {
	case parser.OpIsNull, parser.OpIsNotNull:
	case parser.OpIn, parser.OpNotIn:
		p.write(" (")
		p.formatList(len(c.Values), func(i int) { p.write(c.Values[i].String()) }, ", ", false)
		p.write(")")
	case parser.OpBetween, parser.OpNotBetween:
		if len(c.Values) == 2 {
			p.space()
			p.write(c.Values[0].String())
			p.space()
			p.kw(token.AND)
			p.space()
			p.write(c.Values[1].String())
		}
	default:
		if len(c.Values) > 0 {
			p.space()
			p.write(c.Values[0].String())
		}
	}
}
