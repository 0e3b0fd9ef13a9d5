package format

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/leapstack-labs/fetchsql/pkg/token"
)

func (p *Printer) formatStatement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.Select:
		p.formatSelect(s)
	case *parser.Insert:
		p.formatInsert(s)
	case *parser.Update:
		p.formatUpdate(s)
	case *parser.Delete:
		p.formatDelete(s)
	}
}

func (p *Printer) formatSelect(s *parser.Select) {
	if s == nil {
		return
	}

	// SELECT [DISTINCT] [TOP n]
	p.kw(token.SELECT)
	if s.Distinct {
		p.space()
		p.kw(token.DISTINCT)
	}
	if s.Top != nil {
		p.space()
		p.kw(token.TOP)
		p.space()
		p.write(strconv.Itoa(*s.Top))
	}
	p.writeln()

	// Columns
	p.indent()
	p.formatList(len(s.Columns), func(i int) { p.formatColumn(s.Columns[i]) }, ",", true)
	p.writeln()
	p.dedent()

	// FROM
	p.kw(token.FROM)
	p.space()
	p.formatTable(s.From.Entity, s.From.Alias)
	p.writeln()

	for _, j := range s.Joins {
		p.formatJoin(j)
	}

	p.formatWhere(s.Where)

	if len(s.GroupBy) > 0 {
		p.kw(token.GROUP, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(s.GroupBy), func(i int) { p.formatColumnRef(s.GroupBy[i]) }, ",", true)
		p.writeln()
		p.dedent()
	}

	if len(s.OrderBy) > 0 {
		p.kw(token.ORDER, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(s.OrderBy), func(i int) {
			item := s.OrderBy[i]
			p.formatColumnRef(item.Column)
			if item.Desc {
				p.space()
				p.kw(token.DESC)
			}
		}, ",", true)
		p.writeln()
		p.dedent()
	}
}

func (p *Printer) formatColumn(c parser.Column) {
	switch c.Kind {
	case parser.ColumnWildcard:
		if c.Ref.Table != "" {
			p.ident(c.Ref.Table)
			p.write(".")
		}
		p.write("*")
		return
	case parser.ColumnAggregate:
		p.formatAggregate(c.Aggregate)
	default:
		p.formatColumnRef(c.Ref)
	}

	if c.Alias != "" {
		p.space()
		p.kw(token.AS)
		p.space()
		p.ident(c.Alias)
	}
}

func (p *Printer) formatAggregate(agg *parser.AggregateColumn) {
	if agg == nil {
		return
	}
	p.write(strings.ToUpper(string(agg.Func)))
	p.write("(")
	if agg.Distinct {
		p.kw(token.DISTINCT)
		p.space()
	}
	if agg.Arg == nil {
		p.write("*")
	} else {
		p.formatColumnRef(*agg.Arg)
	}
	p.write(")")
}

func (p *Printer) formatColumnRef(c parser.ColumnRef) {
	if c.Table != "" {
		p.ident(c.Table)
		p.write(".")
	}
	p.ident(c.Name)
}

func (p *Printer) formatTable(entity, alias string) {
	p.ident(entity)
	if alias != "" && alias != entity {
		p.space()
		p.ident(alias)
	}
}

func (p *Printer) formatJoin(j parser.Join) {
	if j.Type == parser.JoinLeft {
		p.kw(token.LEFT, token.JOIN)
	} else {
		p.kw(token.JOIN)
	}
	p.space()
	p.formatTable(j.Entity, j.Alias)
	p.writeln()

	p.indent()
	p.kw(token.ON)
	p.space()
	p.formatColumnRef(j.LeftKey)
	p.write(" = ")
	p.formatColumnRef(j.RightKey)
	p.writeln()
	p.dedent()
}

func (p *Printer) formatWhere(c parser.Condition) {
	if c == nil {
		return
	}
	p.kw(token.WHERE)
	p.writeln()
	p.indent()
	p.formatConditionLines(c)
	p.writeln()
	p.dedent()
}

func (p *Printer) formatInsert(s *parser.Insert) {
	p.kw(token.INSERT, token.INTO)
	p.space()
	p.ident(s.Entity)
	p.write(" (")
	p.formatList(len(s.Columns), func(i int) { p.ident(s.Columns[i]) }, ", ", false)
	p.write(")")
	p.writeln()

	p.kw(token.VALUES)
	p.writeln()
	p.indent()
	p.formatList(len(s.Rows), func(i int) {
		row := s.Rows[i]
		p.write("(")
		p.formatList(len(row), func(j int) { p.write(row[j].String()) }, ", ", false)
		p.write(")")
	}, ",", true)
	p.writeln()
	p.dedent()
}

func (p *Printer) formatUpdate(s *parser.Update) {
	p.kw(token.UPDATE)
	p.space()
	p.ident(s.Entity)
	p.writeln()

	p.kw(token.SET)
	p.writeln()
	p.indent()
	p.formatList(len(s.Assignments), func(i int) {
		a := s.Assignments[i]
		p.ident(a.Column)
		p.write(" = ")
		p.write(a.Value.String())
	}, ",", true)
	p.writeln()
	p.dedent()

	p.formatWhere(s.Where)
}

func (p *Printer) formatDelete(s *parser.Delete) {
	p.kw(token.DELETE, token.FROM)
	p.space()
	p.ident(s.Entity)
	p.writeln()

	p.formatWhere(s.Where)
}
