package parser

import "strings"

// Statement represents a parsed SQL statement.
// It is implemented by *Select, *Insert, *Update and *Delete.
type Statement interface {
	stmtNode()
}

// Condition represents a node of a WHERE tree.
// It is implemented by *Logical and *Comparison.
type Condition interface {
	condNode()
}

// ---------- Statement Types ----------

// Select represents a SELECT statement.
type Select struct {
	Distinct bool
	Top      *int
	Columns  []Column
	From     TableRef
	Joins    []Join
	Where    Condition // nil when there is no WHERE clause
	GroupBy  []ColumnRef
	OrderBy  []OrderItem
}

func (*Select) stmtNode() {}

// IsAggregate reports whether the statement uses aggregate functions or GROUP BY.
func (s *Select) IsAggregate() bool {
	if len(s.GroupBy) > 0 {
		return true
	}
	for _, c := range s.Columns {
		if c.Kind == ColumnAggregate {
			return true
		}
	}
	return false
}

// Insert represents an INSERT INTO ... VALUES statement.
type Insert struct {
	Entity  string
	Columns []string
	Rows    [][]Literal
}

func (*Insert) stmtNode() {}

// Update represents an UPDATE statement.
type Update struct {
	Entity      string
	Assignments []Assignment
	Where       Condition
}

func (*Update) stmtNode() {}

// Assignment is a single "column = value" pair of an UPDATE.
type Assignment struct {
	Column string
	Value  Literal
}

// Delete represents a DELETE FROM statement.
type Delete struct {
	Entity string
	Where  Condition
}

func (*Delete) stmtNode() {}

// ---------- Tables and Columns ----------

// TableRef is an entity in a FROM clause.
type TableRef struct {
	Entity string
	Alias  string
}

// Name returns the name the table is referenced by: its alias, or the
// entity name when it has none.
func (t TableRef) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Entity
}

// JoinType is the kind of join.
type JoinType string

// JoinType constants. Only joins that FetchXML can express are modelled.
const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
)

// Join represents a JOIN entity ON left = right clause.
type Join struct {
	Type     JoinType
	Entity   string
	Alias    string
	LeftKey  ColumnRef
	RightKey ColumnRef
}

// Name returns the alias of the joined entity, or its entity name.
func (j Join) Name() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Entity
}

// ColumnRef is a possibly qualified column reference.
type ColumnRef struct {
	Table string // qualifier (alias or entity name), may be empty
	Name  string
}

func (c ColumnRef) String() string {
	if c.Table != "" {
		return c.Table + "." + c.Name
	}
	return c.Name
}

// ColumnKind discriminates the Column sum type.
type ColumnKind int

// ColumnKind values.
const (
	ColumnPlain     ColumnKind = iota // Ref holds the column
	ColumnAggregate                   // Aggregate holds the function call
	ColumnWildcard                    // "*" or "alias.*"; Ref.Table holds the qualifier
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnPlain:
		return "plain"
	case ColumnAggregate:
		return "aggregate"
	case ColumnWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Column is an item of a SELECT list.
type Column struct {
	Kind      ColumnKind
	Ref       ColumnRef
	Aggregate *AggregateColumn
	Alias     string // output alias of plain and aggregate columns
}

// AggregateFunc is an aggregate function name.
type AggregateFunc string

// Supported aggregate functions.
const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// LookupAggregate returns the aggregate function with the given
// case-insensitive name.
func LookupAggregate(name string) (AggregateFunc, bool) {
	switch fn := AggregateFunc(strings.ToLower(name)); fn {
	case AggCount, AggSum, AggAvg, AggMin, AggMax:
		return fn, true
	}
	return "", false
}

// AggregateColumn is an aggregate function call in a SELECT list.
type AggregateColumn struct {
	Func     AggregateFunc
	Arg      *ColumnRef // nil means '*'
	Distinct bool
}

// OrderItem is an ORDER BY entry.
type OrderItem struct {
	Column ColumnRef
	Desc   bool
}

// ---------- Conditions ----------

// LogicalOp joins two conditions.
type LogicalOp string

// LogicalOp values.
const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// Logical is a binary AND/OR node.
type Logical struct {
	Op    LogicalOp
	Left  Condition
	Right Condition
}

func (*Logical) condNode() {}

// Operator is a comparison operator in its SQL spelling.
type Operator string

// Supported comparison operators.
const (
	OpEq         Operator = "="
	OpNe         Operator = "<>"
	OpGt         Operator = ">"
	OpGe         Operator = ">="
	OpLt         Operator = "<"
	OpLe         Operator = "<="
	OpLike       Operator = "LIKE"
	OpNotLike    Operator = "NOT LIKE"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT IN"
	OpBetween    Operator = "BETWEEN"
	OpNotBetween Operator = "NOT BETWEEN"
)

// Comparison is a condition leaf: column operator values.
// IS [NOT] NULL has no values, BETWEEN has exactly two.
type Comparison struct {
	Column   ColumnRef
	Operator Operator
	Values   []Literal
}

func (*Comparison) condNode() {}

// Walk calls fn for every comparison of the tree, left to right.
func Walk(c Condition, fn func(*Comparison)) {
	switch n := c.(type) {
	case *Logical:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Comparison:
		fn(n)
	}
}

// ---------- Literals ----------

// LiteralKind is the type of a literal value.
type LiteralKind int

// LiteralKind values.
const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralNull
	LiteralBool
)

// Literal is a constant value. Value holds the decoded text: strings
// without quotes, numbers as written, booleans as "true"/"false".
type Literal struct {
	Kind  LiteralKind
	Value string
}

// StringLit returns a string literal.
func StringLit(v string) Literal { return Literal{Kind: LiteralString, Value: v} }

// NumberLit returns a numeric literal.
func NumberLit(v string) Literal { return Literal{Kind: LiteralNumber, Value: v} }

// String renders the literal as SQL.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
	case LiteralNull:
		return "NULL"
	case LiteralBool:
		return strings.ToUpper(l.Value)
	default:
		return l.Value
	}
}
