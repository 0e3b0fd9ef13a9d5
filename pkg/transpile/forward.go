package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/fetchxml"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
)

// ToFetchXML translates a parsed statement into a FetchXML document.
//
// SELECT statements map onto a fetch with the same columns, joins, filter and
// ordering. UPDATE and DELETE map onto a fetch retrieving the primary key of
// the affected records. INSERT returns ErrNoFetchEquivalent. Statements that
// parse but cannot be expressed return a *Error.
func ToFetchXML(stmt parser.Statement, opts ...Option) (string, error) {
	root, err := BuildFetch(stmt, opts...)
	if err != nil {
		return "", err
	}
	return root.Render(), nil
}

// BuildFetch is ToFetchXML without the final rendering step.
func BuildFetch(stmt parser.Statement, opts ...Option) (*fetchxml.Node, error) {
	o := buildOptions(opts)
	switch s := stmt.(type) {
	case *parser.Select:
		return newForward(s, o).build()
	case *parser.Update:
		return newForward(&parser.Select{From: parser.TableRef{Entity: s.Entity}, Where: s.Where}, o).buildKeyFetch()
	case *parser.Delete:
		return newForward(&parser.Select{From: parser.TableRef{Entity: s.Entity}, Where: s.Where}, o).buildKeyFetch()
	case *parser.Insert:
		return nil, ErrNoFetchEquivalent
	case nil:
		return nil, errorf("no statement to translate")
	default:
		return nil, fmt.Errorf("%w: %T", ErrNoFetchEquivalent, stmt)
	}
}

// entityScope is the root entity or one link-entity of the fetch. Child
// elements are collected per kind and assembled in schema order.
type entityScope struct {
	entity  string
	alias   string // SQL qualifier; empty for the root
	node    *fetchxml.Node
	allAttr bool
	attrs   []*fetchxml.Node
	orders  []*fetchxml.Node
	filter  *fetchxml.Node
	links   []*entityScope
}

func (e *entityScope) assemble() *fetchxml.Node {
	if e.allAttr {
		e.node.Append(fetchxml.NewNode(fetchxml.ElemAllAttributes))
	}
	e.node.Append(e.attrs...)
	e.node.Append(e.orders...)
	e.node.Append(e.filter)
	for _, l := range e.links {
		e.node.Append(l.assemble())
	}
	return e.node
}

// groupKey identifies a column of a scope.
type groupKey struct {
	scope  *entityScope
	column string
}

// groupColumn is a GROUP BY entry, deduplicated.
type groupColumn struct {
	groupKey
	name string
}

// output is a SELECT list entry that ORDER BY may refer to by alias.
type output struct {
	scope  *entityScope
	column string
	alias  string
}

type forward struct {
	stmt      *parser.Select
	opts      options
	root      *entityScope
	scopes    map[string]*entityScope
	aliases   *aliasSet
	aggregate bool

	grouped    []groupColumn
	groupAlias map[groupKey]string
	outputs    map[string]output
}

func newForward(s *parser.Select, o options) *forward {
	root := &entityScope{
		entity: s.From.Entity,
		node:   fetchxml.NewNode(fetchxml.ElemEntity, "name", s.From.Entity),
	}
	f := &forward{
		stmt:       s,
		opts:       o,
		root:       root,
		scopes:     make(map[string]*entityScope),
		aliases:    newAliasSet(),
		aggregate:  s.IsAggregate(),
		groupAlias: make(map[groupKey]string),
		outputs:    make(map[string]output),
	}
	f.scopes[strings.ToLower(s.From.Entity)] = root
	f.scopes[strings.ToLower(s.From.Name())] = root
	return f
}

// resolve returns the scope a column belongs to. Unqualified columns
// belong to the root entity.
func (f *forward) resolve(ref parser.ColumnRef) (*entityScope, error) {
	if ref.Table == "" {
		return f.root, nil
	}
	scope, ok := f.scopes[strings.ToLower(ref.Table)]
	if !ok {
		return nil, errorf(ErrUnknownQualifier, ref.Table)
	}
	return scope, nil
}

func (f *forward) build() (*fetchxml.Node, error) {
	if err := f.buildJoins(); err != nil {
		return nil, err
	}
	if err := f.buildColumns(); err != nil {
		return nil, err
	}
	if err := f.buildOrders(); err != nil {
		return nil, err
	}
	return f.finish()
}

// buildKeyFetch selects the primary key of the root entity.
func (f *forward) buildKeyFetch() (*fetchxml.Node, error) {
	f.root.attrs = append(f.root.attrs, fetchxml.NewNode(fetchxml.ElemAttribute, "name", f.root.entity+"id"))
	return f.finish()
}

func (f *forward) finish() (*fetchxml.Node, error) {
	s := f.stmt
	if s.Where != nil {
		filter, err := f.buildFilter(s.Where)
		if err != nil {
			return nil, err
		}
		f.root.filter = filter
	}

	fetch := fetchxml.NewNode(fetchxml.ElemFetch)
	if s.Distinct {
		fetch.SetAttr("distinct", "true")
	}
	if f.aggregate {
		fetch.SetAttr("aggregate", "true")
	}
	if s.Top != nil {
		fetch.SetAttr("top", strconv.Itoa(*s.Top))
	}
	return fetch.Append(f.root.assemble()), nil
}

// ---------- Joins ----------

// buildJoins turns each join into a link-entity under the scope its parent
// key belongs to. from is the key on the joined entity, to the key on the
// parent.
func (f *forward) buildJoins() error {
	for _, j := range f.stmt.Joins {
		name := j.Name()
		key := strings.ToLower(name)
		if existing, ok := f.scopes[key]; ok && (existing != f.root || strings.EqualFold(name, f.stmt.From.Name())) {
			return errorf(ErrDuplicateAlias, name)
		}

		var own, other parser.ColumnRef
		switch {
		case strings.EqualFold(j.LeftKey.Table, name):
			own, other = j.LeftKey, j.RightKey
		case strings.EqualFold(j.RightKey.Table, name):
			own, other = j.RightKey, j.LeftKey
		default:
			return errorf(ErrJoinKeys, name, name)
		}
		if strings.EqualFold(other.Table, name) {
			return errorf(ErrJoinKeys, name, name)
		}
		parent, err := f.resolve(other)
		if err != nil {
			return err
		}

		linkType := "inner"
		if j.Type == parser.JoinLeft {
			linkType = "outer"
		}
		node := fetchxml.NewNode(fetchxml.ElemLinkEntity,
			"name", j.Entity,
			"from", own.Name,
			"to", other.Name,
			"alias", name,
			"link-type", linkType,
		)
		link := &entityScope{entity: j.Entity, alias: name, node: node}
		parent.links = append(parent.links, link)
		f.scopes[key] = link
	}
	return nil
}

// ---------- Columns ----------

func (f *forward) buildColumns() error {
	s := f.stmt
	for _, col := range s.Columns {
		f.aliases.reserve(col.Alias)
	}
	for _, g := range s.GroupBy {
		scope, err := f.resolve(g)
		if err != nil {
			return err
		}
		k := groupKey{scope: scope, column: strings.ToLower(g.Name)}
		if !f.isGrouped(k) {
			f.grouped = append(f.grouped, groupColumn{groupKey: k, name: g.Name})
		}
	}

	for _, col := range s.Columns {
		var err error
		switch col.Kind {
		case parser.ColumnWildcard:
			err = f.wildcardColumn(col)
		case parser.ColumnPlain:
			err = f.plainColumn(col)
		case parser.ColumnAggregate:
			err = f.aggregateColumn(col)
		}
		if err != nil {
			return err
		}
	}

	// Group-by columns missing from the SELECT list.
	for _, g := range f.grouped {
		if _, done := f.groupAlias[g.groupKey]; done {
			continue
		}
		alias := f.aliases.generate(g.name)
		f.groupAlias[g.groupKey] = alias
		g.scope.attrs = append(g.scope.attrs, fetchxml.NewNode(fetchxml.ElemAttribute,
			"name", g.name,
			"alias", alias,
			"groupby", "true",
		))
	}
	return nil
}

func (f *forward) isGrouped(k groupKey) bool {
	for _, g := range f.grouped {
		if g.groupKey == k {
			return true
		}
	}
	return false
}

func (f *forward) wildcardColumn(col parser.Column) error {
	if f.aggregate {
		return errorf(ErrWildcardAggregate)
	}
	scope, err := f.resolve(col.Ref)
	if err != nil {
		return err
	}
	scope.allAttr = true
	return nil
}

func (f *forward) plainColumn(col parser.Column) error {
	scope, err := f.resolve(col.Ref)
	if err != nil {
		return err
	}
	name := col.Ref.Name

	if !f.aggregate {
		scope.attrs = append(scope.attrs, fetchxml.NewNode(fetchxml.ElemAttribute, "name", name, "alias", col.Alias))
		if col.Alias != "" {
			f.addOutput(output{scope: scope, column: name, alias: col.Alias})
		}
		return nil
	}

	k := groupKey{scope: scope, column: strings.ToLower(name)}
	if !f.isGrouped(k) {
		return errorf(ErrUngroupedColumn, col.Ref.String())
	}
	alias := col.Alias
	if alias == "" {
		alias = f.aliases.generate(name)
	}
	if _, ok := f.groupAlias[k]; !ok {
		f.groupAlias[k] = alias
	}
	scope.attrs = append(scope.attrs, fetchxml.NewNode(fetchxml.ElemAttribute,
		"name", name,
		"alias", alias,
		"groupby", "true",
	))
	f.addOutput(output{scope: scope, column: name, alias: alias})
	return nil
}

func (f *forward) aggregateColumn(col parser.Column) error {
	agg := col.Aggregate
	scope := f.root
	var name, fn string

	if agg.Arg == nil {
		name = "*"
		if f.opts.countStar == CountStarPrimaryKey {
			name = f.root.entity + "id"
		}
		fn = "count"
	} else {
		var err error
		if scope, err = f.resolve(*agg.Arg); err != nil {
			return err
		}
		name = agg.Arg.Name
		fn = aggregateNames[agg.Func]
		if agg.Func == parser.AggCount {
			fn = "countcolumn"
		}
	}

	alias := col.Alias
	if alias == "" {
		alias = f.aliases.generate(string(agg.Func))
	}
	distinct := ""
	if agg.Distinct {
		distinct = "true"
	}
	scope.attrs = append(scope.attrs, fetchxml.NewNode(fetchxml.ElemAttribute,
		"name", name,
		"alias", alias,
		"aggregate", fn,
		"distinct", distinct,
	))
	f.addOutput(output{scope: scope, column: name, alias: alias})
	return nil
}

func (f *forward) addOutput(o output) {
	key := strings.ToLower(o.alias)
	if _, exists := f.outputs[key]; !exists {
		f.outputs[key] = o
	}
}

// ---------- Ordering ----------

// buildOrders places every order on the root entity. Orders on joined
// columns carry entityname so the sort priority of ORDER BY is kept.
func (f *forward) buildOrders() error {
	for _, item := range f.stmt.OrderBy {
		descending := ""
		if item.Desc {
			descending = "true"
		}

		if f.aggregate {
			alias, err := f.orderAlias(item.Column)
			if err != nil {
				return err
			}
			f.root.orders = append(f.root.orders, fetchxml.NewNode(fetchxml.ElemOrder,
				"alias", alias,
				"descending", descending,
			))
			continue
		}

		scope, column, err := f.orderTarget(item.Column)
		if err != nil {
			return err
		}
		entityName := ""
		if scope != f.root {
			entityName = scope.alias
		}
		f.root.orders = append(f.root.orders, fetchxml.NewNode(fetchxml.ElemOrder,
			"attribute", column,
			"entityname", entityName,
			"descending", descending,
		))
	}
	return nil
}

// orderTarget resolves an ORDER BY column of a plain query. A select alias
// orders by the attribute behind it.
func (f *forward) orderTarget(ref parser.ColumnRef) (*entityScope, string, error) {
	if ref.Table == "" {
		if o, ok := f.outputs[strings.ToLower(ref.Name)]; ok {
			return o.scope, o.column, nil
		}
	}
	scope, err := f.resolve(ref)
	if err != nil {
		return nil, "", err
	}
	return scope, ref.Name, nil
}

// orderAlias resolves an ORDER BY column of an aggregate query to the alias
// of an aggregate or group-by attribute.
func (f *forward) orderAlias(ref parser.ColumnRef) (string, error) {
	if ref.Table == "" {
		if o, ok := f.outputs[strings.ToLower(ref.Name)]; ok {
			return o.alias, nil
		}
	}
	scope, err := f.resolve(ref)
	if err != nil {
		return "", err
	}
	if alias, ok := f.groupAlias[groupKey{scope: scope, column: strings.ToLower(ref.Name)}]; ok {
		return alias, nil
	}
	return "", errorf(ErrOrderAggregate, ref.String())
}

// ---------- Filters ----------

// buildFilter turns a WHERE tree into nested filters. Chains of the same
// operator share one filter.
func (f *forward) buildFilter(c parser.Condition) (*fetchxml.Node, error) {
	logical, ok := c.(*parser.Logical)
	if !ok {
		cond, err := f.buildCondition(c.(*parser.Comparison))
		if err != nil {
			return nil, err
		}
		return fetchxml.NewNode(fetchxml.ElemFilter, "type", "and").Append(cond), nil
	}

	filter := fetchxml.NewNode(fetchxml.ElemFilter, "type", strings.ToLower(string(logical.Op)))
	for _, operand := range flatten(logical.Op, logical) {
		var child *fetchxml.Node
		var err error
		switch n := operand.(type) {
		case *parser.Logical:
			child, err = f.buildFilter(n)
		case *parser.Comparison:
			child, err = f.buildCondition(n)
		}
		if err != nil {
			return nil, err
		}
		filter.Append(child)
	}
	return filter, nil
}

// flatten returns the operands of a chain of op, left to right.
func flatten(op parser.LogicalOp, c parser.Condition) []parser.Condition {
	if l, ok := c.(*parser.Logical); ok && l.Op == op {
		return append(flatten(op, l.Left), flatten(op, l.Right)...)
	}
	return []parser.Condition{c}
}

func (f *forward) buildCondition(cmp *parser.Comparison) (*fetchxml.Node, error) {
	scope, err := f.resolve(cmp.Column)
	if err != nil {
		return nil, err
	}
	m, ok := sqlToFetch[cmp.Operator]
	if !ok {
		return nil, errorf("operator %s is not supported", cmp.Operator)
	}
	entityName := ""
	if scope != f.root {
		entityName = scope.alias
	}

	cond := fetchxml.NewNode(fetchxml.ElemCondition,
		"entityname", entityName,
		"attribute", cmp.Column.Name,
		"operator", m.fetch,
	)
	switch m.arity {
	case aritySingle:
		if len(cmp.Values) != 1 {
			return nil, errorf("operator %s on %s expects one value", cmp.Operator, cmp.Column)
		}
		cond.SetAttr("value", cmp.Values[0].Value)
	case arityList, arityPair:
		if len(cmp.Values) == 0 || (m.arity == arityPair && len(cmp.Values) != 2) {
			return nil, errorf("operator %s on %s has the wrong number of values", cmp.Operator, cmp.Column)
		}
		for _, v := range cmp.Values {
			cond.Append(&fetchxml.Node{Name: fetchxml.ElemValue, Text: v.Value, Offset: -1})
		}
	}
	return cond, nil
}
