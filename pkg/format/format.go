package format

import "github.com/leapstack-labs/fetchsql/pkg/parser"

// Format renders a statement as multi-line SQL, one clause per line with
// two-space indented clause bodies. The result ends with a newline.
func Format(stmt parser.Statement) string {
	p := newPrinter(false)
	p.formatStatement(stmt)
	return p.String()
}

// Inline renders a statement on a single line.
func Inline(stmt parser.Statement) string {
	p := newPrinter(true)
	p.formatStatement(stmt)
	return p.String()
}

// Condition renders a WHERE tree on a single line.
func Condition(c parser.Condition) string {
	p := newPrinter(true)
	p.formatCondition(c, "")
	return p.String()
}
