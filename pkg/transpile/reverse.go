package transpile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/fetchxml"
	"github.com/leapstack-labs/fetchsql/pkg/format"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
)

// Result is the outcome of translating FetchXML to SQL.
//
// FetchXML values are untyped, so Statement types them by their text: a
// value that reads as a canonical number or as true/false becomes a number
// or boolean literal even when the SQL it came from quoted it. IN ('1', '2')
// comes back as IN (1, 2).
type Result struct {
	SQL       string
	Statement *parser.Select // nil when the document has no usable <entity>
	Warnings  []Warning
}

// ToSQL translates a FetchXML document into SQL. It is best-effort: every
// validation error and every construct without a SQL equivalent becomes a
// Warning and translation continues. The error is non-nil only when text
// exceeds core.DefaultMaxInputSize.
//
// Columns of the root entity are qualified with its logical name when the
// query has joins. A link-entity without an alias is referenced by its
// entity name.
func ToSQL(text string) (*Result, error) {
	if err := core.CheckInputSize(text); err != nil {
		return nil, err
	}

	root, errs := fetchxml.Parse(text)
	r := &reverse{src: text}
	for _, e := range errs {
		r.warn(WarnValidation, e.Offset, "%s", e.Error())
	}

	res := &Result{Statement: r.build(root)}
	if res.Statement != nil {
		res.SQL = format.Format(res.Statement)
	}
	res.Warnings = r.warnings
	return res, nil
}

type reverse struct {
	src      string
	warnings []Warning

	stmt       *parser.Select
	where      []parser.Condition
	linkOrders []parser.OrderItem
}

func (r *reverse) warn(code WarningCode, offset int, msg string, args ...any) {
	r.warnings = append(r.warnings, Warning{
		Code:     code,
		Message:  fmt.Sprintf(msg, args...),
		Fragment: fragmentAt(r.src, offset),
		Offset:   offset,
	})
}

func (r *reverse) build(root *fetchxml.Node) *parser.Select {
	if root == nil || root.Name != fetchxml.ElemFetch {
		return nil
	}
	entity := root.Child(fetchxml.ElemEntity)
	if entity == nil || entity.Get("name") == "" {
		return nil
	}
	name := entity.Get("name")

	s := &parser.Select{From: parser.TableRef{Entity: name}}
	r.stmt = s
	s.Distinct = root.Flag("distinct")
	if top, err := strconv.Atoi(strings.TrimSpace(root.Get("top"))); err == nil && top >= 0 {
		s.Top = &top
	}

	var paging []string
	for _, attr := range []string{"count", "page", "paging-cookie"} {
		if _, ok := root.Attr(attr); ok {
			paging = append(paging, attr)
		}
	}
	if len(paging) > 0 {
		r.warn(WarnPaging, root.Offset, "paging attributes (%s) are ignored", strings.Join(paging, ", "))
	}

	qualifier := ""
	if hasJoins(entity) {
		qualifier = name
	}
	r.walkEntity(entity, qualifier, name, false)

	if len(s.Columns) == 0 {
		s.Columns = []parser.Column{{Kind: parser.ColumnWildcard}}
	}
	s.OrderBy = append(s.OrderBy, r.linkOrders...)
	s.Where = chain(parser.OpAnd, r.where)
	return s
}

// hasJoins reports whether the entity has a link-entity that becomes a JOIN.
func hasJoins(entity *fetchxml.Node) bool {
	for _, link := range entity.ChildrenNamed(fetchxml.ElemLinkEntity) {
		if _, ok := joinType(link); ok {
			return true
		}
	}
	return false
}

func joinType(link *fetchxml.Node) (parser.JoinType, bool) {
	switch link.Get("link-type") {
	case "", "inner":
		return parser.JoinInner, true
	case "outer":
		return parser.JoinLeft, true
	}
	return "", false
}

// walkEntity translates the children of the root entity or a link-entity.
// qualifier prefixes its columns; self is the name join keys use for it.
func (r *reverse) walkEntity(n *fetchxml.Node, qualifier, self string, outer bool) {
	isRoot := n.Name == fetchxml.ElemEntity
	for _, c := range n.Children {
		switch c.Name {
		case fetchxml.ElemAllAttributes:
			r.stmt.Columns = append(r.stmt.Columns, parser.Column{
				Kind: parser.ColumnWildcard,
				Ref:  parser.ColumnRef{Table: qualifier},
			})
		case fetchxml.ElemAttribute:
			r.attribute(c, qualifier)
		case fetchxml.ElemOrder:
			item, ok := r.order(c, qualifier)
			if !ok {
				continue
			}
			if isRoot {
				r.stmt.OrderBy = append(r.stmt.OrderBy, item)
			} else {
				r.linkOrders = append(r.linkOrders, item)
			}
		case fetchxml.ElemFilter:
			cond := r.filter(c, qualifier)
			if cond == nil {
				continue
			}
			if outer {
				r.warn(WarnLinkFilterApproximate, c.Offset,
					"filter inside outer link-entity %s is applied to the whole query", self)
			}
			r.where = append(r.where, cond)
		case fetchxml.ElemLinkEntity:
			r.link(c, self)
		}
	}
}

// ---------- Columns ----------

func (r *reverse) attribute(n *fetchxml.Node, qualifier string) {
	name := n.Get("name")
	if name == "" {
		return
	}
	alias := n.Get("alias")

	if _, ok := n.Attr("rowaggregate"); ok {
		r.warn(WarnUnsupportedAggregate, n.Offset, "rowaggregate on %s has no SQL equivalent; attribute omitted", name)
		return
	}

	ref := parser.ColumnRef{Table: qualifier, Name: name}
	if fn, ok := n.Attr("aggregate"); ok {
		agg, ok := aggregateFor(fn, ref, n.Flag("distinct"))
		if !ok {
			r.warn(WarnUnsupportedAggregate, n.Offset, "aggregate %q on %s is not supported; attribute omitted", fn, name)
			return
		}
		r.stmt.Columns = append(r.stmt.Columns, parser.Column{Kind: parser.ColumnAggregate, Aggregate: agg, Alias: alias})
		return
	}

	if n.Flag("groupby") {
		if dg := n.Get("dategrouping"); dg != "" {
			r.warn(WarnDateGrouping, n.Offset, "dategrouping %q on %s is approximated as GROUP BY %s", dg, name, ref)
		}
		r.stmt.GroupBy = append(r.stmt.GroupBy, ref)
	}
	if alias == name {
		alias = ""
	}
	r.stmt.Columns = append(r.stmt.Columns, parser.Column{Kind: parser.ColumnPlain, Ref: ref, Alias: alias})
}

// aggregateFor maps a FetchXML aggregate onto a SQL aggregate call.
func aggregateFor(fn string, ref parser.ColumnRef, distinct bool) (*parser.AggregateColumn, bool) {
	switch fn {
	case "count":
		return &parser.AggregateColumn{Func: parser.AggCount}, true
	case "countcolumn":
		return &parser.AggregateColumn{Func: parser.AggCount, Arg: &ref, Distinct: distinct}, true
	}
	for sqlFn, fetchFn := range aggregateNames {
		if fetchFn == fn {
			return &parser.AggregateColumn{Func: sqlFn, Arg: &ref}, true
		}
	}
	return nil, false
}

func (r *reverse) order(n *fetchxml.Node, qualifier string) (parser.OrderItem, bool) {
	desc := n.Flag("descending")
	if attr := n.Get("attribute"); attr != "" {
		if en := n.Get("entityname"); en != "" {
			qualifier = en
		}
		return parser.OrderItem{Column: parser.ColumnRef{Table: qualifier, Name: attr}, Desc: desc}, true
	}
	if alias := n.Get("alias"); alias != "" {
		return parser.OrderItem{Column: parser.ColumnRef{Name: alias}, Desc: desc}, true
	}
	return parser.OrderItem{}, false
}

// ---------- Joins ----------

// link turns a link-entity into a JOIN whose right key belongs to parent.
func (r *reverse) link(n *fetchxml.Node, parent string) {
	name := n.Get("name")
	jt, ok := joinType(n)
	if !ok {
		r.warn(WarnUnsupportedLinkType, n.Offset, "link-type %q is not supported; link-entity %s omitted", n.Get("link-type"), name)
		return
	}
	from, to := n.Get("from"), n.Get("to")
	if name == "" || from == "" || to == "" {
		return
	}

	alias := n.Get("alias")
	if alias == "" {
		alias = name
	}
	join := parser.Join{
		Type:     jt,
		Entity:   name,
		Alias:    alias,
		LeftKey:  parser.ColumnRef{Table: alias, Name: from},
		RightKey: parser.ColumnRef{Table: parent, Name: to},
	}
	if alias == name {
		join.Alias = ""
	}
	r.stmt.Joins = append(r.stmt.Joins, join)
	r.walkEntity(n, alias, alias, jt == parser.JoinLeft)
}

// ---------- Filters ----------

// filter translates a filter element. Untranslatable conditions are
// dropped with a warning; nil means nothing was left.
func (r *reverse) filter(n *fetchxml.Node, qualifier string) parser.Condition {
	op := parser.OpAnd
	if n.Get("type") == "or" {
		op = parser.OpOr
	}

	var parts []parser.Condition
	for _, c := range n.Children {
		var cond parser.Condition
		switch c.Name {
		case fetchxml.ElemCondition:
			if cmp := r.condition(c, qualifier); cmp != nil {
				cond = cmp
			}
		case fetchxml.ElemFilter:
			cond = r.filter(c, qualifier)
		case fetchxml.ElemLinkEntity:
			lt := c.Get("link-type")
			if lt == "" {
				lt = "any"
			}
			r.warn(WarnUnsupportedLinkType, c.Offset, "link-type %q is not supported; link-entity %s omitted", lt, c.Get("name"))
		}
		if cond != nil {
			parts = append(parts, cond)
		}
	}
	return chain(op, parts)
}

// chain folds conditions into a left-associative chain of op.
func chain(op parser.LogicalOp, parts []parser.Condition) parser.Condition {
	if len(parts) == 0 {
		return nil
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out = &parser.Logical{Op: op, Left: out, Right: p}
	}
	return out
}

func (r *reverse) condition(n *fetchxml.Node, qualifier string) *parser.Comparison {
	attr, op := n.Get("attribute"), n.Get("operator")
	if attr == "" || op == "" {
		return nil
	}
	if en := n.Get("entityname"); en != "" {
		qualifier = en
	}
	ref := parser.ColumnRef{Table: qualifier, Name: attr}

	if fn, ok := n.Attr("aggregate"); ok {
		r.warn(WarnHaving, n.Offset, "condition on %s(%s) filters aggregated rows (HAVING); condition omitted", fn, attr)
		return nil
	}
	if other, ok := n.Attr("valueof"); ok {
		r.warn(WarnColumnComparison, n.Offset, "column comparison %s %s %s is not supported; condition omitted", ref, op, other)
		return nil
	}
	values := conditionValues(n)

	if rw, ok := likeRewrites[op]; ok {
		if len(values) != 1 {
			r.warn(WarnValidation, n.Offset, "operator %s on %s expects one value; condition omitted", op, ref)
			return nil
		}
		return &parser.Comparison{Column: ref, Operator: rw.op, Values: []parser.Literal{parser.StringLit(rw.prefix + values[0] + rw.suffix)}}
	}

	m, ok := fetchToSQL[op]
	if !ok {
		r.warn(WarnUnsupportedOperator, n.Offset, "operator %q has no SQL equivalent; condition on %s omitted", op, ref)
		return nil
	}

	cmp := &parser.Comparison{Column: ref, Operator: m.sql}
	switch m.arity {
	case arityNone:
		return cmp
	case aritySingle:
		if len(values) != 1 {
			r.warn(WarnValidation, n.Offset, "operator %s on %s expects one value; condition omitted", op, ref)
			return nil
		}
	case arityList:
		if len(values) == 0 {
			r.warn(WarnValidation, n.Offset, "operator %s on %s has no values; condition omitted", op, ref)
			return nil
		}
	case arityPair:
		if len(values) != 2 {
			r.warn(WarnValidation, n.Offset, "operator %s on %s expects two values; condition omitted", op, ref)
			return nil
		}
	}

	for _, v := range values {
		if m.sql == parser.OpLike || m.sql == parser.OpNotLike {
			cmp.Values = append(cmp.Values, parser.StringLit(v))
			continue
		}
		cmp.Values = append(cmp.Values, literalFor(v))
	}
	return cmp
}

// conditionValues returns the value attribute followed by <value> children.
func conditionValues(n *fetchxml.Node) []string {
	var values []string
	if v, ok := n.Attr("value"); ok {
		values = append(values, v)
	}
	for _, c := range n.ChildrenNamed(fetchxml.ElemValue) {
		values = append(values, valueText(c))
	}
	return values
}

// valueText is the character data of a <value>. A value written on one line
// keeps its surrounding spaces; one laid out over several lines is trimmed.
func valueText(n *fetchxml.Node) string {
	if n.Raw == "" || strings.ContainsAny(n.Raw, "\r\n") {
		return n.Text
	}
	return n.Raw
}

var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// literalFor types a FetchXML value: canonical numbers and true/false keep
// their type, everything else is a string.
func literalFor(v string) parser.Literal {
	switch {
	case numberPattern.MatchString(v):
		return parser.NumberLit(v)
	case v == "true" || v == "false":
		return parser.Literal{Kind: parser.LiteralBool, Value: v}
	default:
		return parser.StringLit(v)
	}
}
