package transpile

import "github.com/leapstack-labs/fetchsql/pkg/parser"

// operatorArity describes how a condition carries its values.
type operatorArity int

const (
	aritySingle operatorArity = iota // value="..." attribute
	arityNone                        // no value
	arityList                        // one or more <value> children
	arityPair                        // exactly two <value> children
)

type operatorMapping struct {
	sql   parser.Operator
	fetch string
	arity operatorArity
}

// operatorTable is the fixed SQL operator to FetchXML operator mapping.
var operatorTable = []operatorMapping{
	{parser.OpEq, "eq", aritySingle},
	{parser.OpNe, "ne", aritySingle},
	{parser.OpGt, "gt", aritySingle},
	{parser.OpGe, "ge", aritySingle},
	{parser.OpLt, "lt", aritySingle},
	{parser.OpLe, "le", aritySingle},
	{parser.OpLike, "like", aritySingle},
	{parser.OpNotLike, "not-like", aritySingle},
	{parser.OpIsNull, "null", arityNone},
	{parser.OpIsNotNull, "not-null", arityNone},
	{parser.OpIn, "in", arityList},
	{parser.OpNotIn, "not-in", arityList},
	{parser.OpBetween, "between", arityPair},
	{parser.OpNotBetween, "not-between", arityPair},
}

var (
	sqlToFetch = make(map[parser.Operator]operatorMapping, len(operatorTable))
	fetchToSQL = make(map[string]operatorMapping, len(operatorTable)+1)
)

func init() {
	for _, m := range operatorTable {
		sqlToFetch[m.sql] = m
		fetchToSQL[m.fetch] = m
	}
	// Legacy spelling of ne.
	fetchToSQL["neq"] = operatorMapping{parser.OpNe, "neq", aritySingle}
}

// likeRewrites maps the prefix/suffix operators onto LIKE patterns.
var likeRewrites = map[string]struct {
	op             parser.Operator
	prefix, suffix string
}{
	"begins-with":    {parser.OpLike, "", "%"},
	"not-begin-with": {parser.OpNotLike, "", "%"},
	"ends-with":      {parser.OpLike, "%", ""},
	"not-end-with":   {parser.OpNotLike, "%", ""},
}

// aggregateNames maps SQL aggregate functions to FetchXML aggregate values.
// COUNT is special-cased: count for COUNT(*), countcolumn otherwise.
var aggregateNames = map[parser.AggregateFunc]string{
	parser.AggSum: "sum",
	parser.AggAvg: "avg",
	parser.AggMin: "min",
	parser.AggMax: "max",
}
