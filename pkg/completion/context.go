// Package completion detects what kind of completion is valid at a cursor
// position in SQL or FetchXML text.
//
// Detection is a pure function of the text and the cursor offset. The
// resulting Context names a category (keywords, entity names, attribute
// names, XML elements) and carries the keyword set or enumerated values where
// those are fixed; entity and attribute names come from a metadata provider
// in the host.
package completion

// Kind discriminates the Context sum type.
type Kind int

// Kind values.
const (
	None           Kind = iota // no suggestion is safe here
	StatementStart             // SELECT, INSERT, UPDATE, DELETE
	ColumnList                 // SELECT list: keywords plus attribute names of Entity
	EntityName                 // entity logical names
	ClauseKeyword              // Keywords only
	WhereAttribute             // attribute names of Entity at the start of a condition
	OrderDirection             // ASC, DESC, ","
	AttributeName              // attribute names of Entity in Clause

	XMLElement        // element names in Values; Closing for </
	XMLAttribute      // attribute names of Element in Values
	XMLAttributeValue // enumerated values of Element@Attribute in Values
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case StatementStart:
		return "statement-start"
	case ColumnList:
		return "column-list"
	case EntityName:
		return "entity-name"
	case ClauseKeyword:
		return "clause-keyword"
	case WhereAttribute:
		return "where-attribute"
	case OrderDirection:
		return "order-direction"
	case AttributeName:
		return "attribute-name"
	case XMLElement:
		return "xml-element"
	case XMLAttribute:
		return "xml-attribute"
	case XMLAttributeValue:
		return "xml-attribute-value"
	default:
		return "unknown"
	}
}

// ScopeEntry is a table visible in a SQL statement.
type ScopeEntry struct {
	Entity string `json:"entity"`
	Alias  string `json:"alias,omitempty"`
}

// Context is the completion context at a cursor position.
type Context struct {
	Kind Kind `json:"kind"`

	// Keywords are the keywords and punctuation valid at the cursor, in
	// presentation order.
	Keywords []string `json:"keywords,omitempty"`

	// Entity is the entity whose attributes apply, when known.
	Entity string `json:"entity,omitempty"`
	// Scope lists the tables of the current statement.
	Scope []ScopeEntry `json:"scope,omitempty"`
	// Clause is the SQL clause of an AttributeName context: SELECT, ON,
	// WHERE, GROUP BY, ORDER BY, SET or INSERT.
	Clause string `json:"clause,omitempty"`
	// Qualifier is the alias typed before the cursor ("c." in c.name).
	Qualifier string `json:"qualifier,omitempty"`

	// Element and Attribute locate FetchXML contexts.
	Element   string   `json:"element,omitempty"`
	Attribute string   `json:"attribute,omitempty"`
	Values    []string `json:"values,omitempty"`
	Closing   bool     `json:"closing,omitempty"`

	// Prefix is the partial word before the cursor.
	Prefix string `json:"prefix,omitempty"`
}

// none is the empty context.
var none = Context{Kind: None}

// Keyword sets. The SQL sets are a fixed contract with editors.
var (
	statementKeywords   = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	columnListKeywords  = []string{"DISTINCT", "TOP", "*", "COUNT", "SUM", "AVG", "MIN", "MAX", "FROM"}
	fromEntityKeywords  = []string{"WHERE", "ORDER BY", "JOIN", "LEFT JOIN", "INNER JOIN", "AS", "GROUP BY"}
	joinEntityKeywords  = []string{"ON"}
	joinedKeywords      = []string{"WHERE", "ORDER BY", "JOIN", "LEFT JOIN", "INNER JOIN", "GROUP BY"}
	joinKeywords        = []string{"JOIN"}
	conditionKeywords   = []string{"AND", "OR", "ORDER BY"}
	directionKeywords   = []string{"ASC", "DESC", ","}
	orderedKeywords     = []string{","}
	groupedKeywords     = []string{",", "ORDER BY"}
	byKeywords          = []string{"BY"}
	insertEntityKeyword = []string{"(", "VALUES"}
	insertColsKeywords  = []string{"VALUES"}
	intoKeywords        = []string{"INTO"}
	updateEntityKeyword = []string{"SET"}
	assignmentKeywords  = []string{",", "WHERE"}
	deleteKeywords      = []string{"FROM"}
	deleteEntityKeyword = []string{"WHERE"}
)

// clone keeps callers from mutating the shared keyword sets.
func clone(list []string) []string {
	return append([]string(nil), list...)
}
