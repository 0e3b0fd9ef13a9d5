package fetchxml

import "sort"

// Element names of the FetchXML schema.
const (
	ElemFetch         = "fetch"
	ElemEntity        = "entity"
	ElemAttribute     = "attribute"
	ElemAllAttributes = "all-attributes"
	ElemOrder         = "order"
	ElemFilter        = "filter"
	ElemCondition     = "condition"
	ElemValue         = "value"
	ElemLinkEntity    = "link-entity"
)

// ValueKind classifies the values an attribute accepts.
type ValueKind int

// ValueKind values.
const (
	ValueAny        ValueKind = iota // free text
	ValueBool                        // true|false|1|0
	ValueInt                         // decimal integer
	ValueEnum                        // one of AttributeSpec.Enum
	ValueEntity                      // an entity logical name
	ValueAttribute                   // an attribute of the nearest entity
	ValueLinkedAttr                  // an attribute of the parent entity (link-entity@to)
)

// AttributeSpec describes one XML attribute of an element.
type AttributeSpec struct {
	Kind ValueKind
	Enum []string
}

// ElementSpec describes one FetchXML element.
type ElementSpec struct {
	Attributes map[string]AttributeSpec
	Required   []string
	Children   []string
	// Text reports whether the element carries character data.
	Text bool
}

var boolAttr = AttributeSpec{Kind: ValueBool}

// BoolValues are the literal spellings accepted for boolean attributes.
var BoolValues = []string{"true", "false", "1", "0"}

// FilterTypes are the values of filter@type.
var FilterTypes = []string{"and", "or"}

// LinkTypes are the values of link-entity@link-type.
var LinkTypes = []string{
	"inner", "outer", "any", "not any", "all", "not all", "exists", "in", "matchfirstrowusingcrossapply",
}

// AggregateTypes are the values of attribute@aggregate.
var AggregateTypes = []string{"count", "countcolumn", "sum", "avg", "min", "max"}

// DateGroupings are the values of attribute@dategrouping.
var DateGroupings = []string{"day", "week", "month", "quarter", "year", "fiscal-period", "fiscal-year"}

// Operators are the values of condition@operator.
var Operators = []string{
	"eq", "ne", "neq", "gt", "ge", "lt", "le",
	"like", "not-like", "begins-with", "not-begin-with", "ends-with", "not-end-with",
	"in", "not-in", "between", "not-between", "null", "not-null",
	"yesterday", "today", "tomorrow",
	"last-seven-days", "next-seven-days",
	"last-week", "this-week", "next-week",
	"last-month", "this-month", "next-month",
	"last-year", "this-year", "next-year",
	"on", "on-or-before", "on-or-after",
	"last-x-hours", "next-x-hours", "last-x-days", "next-x-days",
	"last-x-weeks", "next-x-weeks", "last-x-months", "next-x-months",
	"last-x-years", "next-x-years",
	"olderthan-x-minutes", "olderthan-x-hours", "olderthan-x-days",
	"olderthan-x-weeks", "olderthan-x-months", "olderthan-x-years",
	"eq-userid", "ne-userid", "eq-userteams", "eq-useroruserteams",
	"eq-useroruserhierarchy", "eq-useroruserhierarchyandteams",
	"eq-businessid", "ne-businessid", "eq-userlanguage",
	"this-fiscal-year", "this-fiscal-period", "next-fiscal-year", "next-fiscal-period",
	"last-fiscal-year", "last-fiscal-period",
	"last-x-fiscal-years", "last-x-fiscal-periods", "next-x-fiscal-years", "next-x-fiscal-periods",
	"in-fiscal-year", "in-fiscal-period", "in-fiscal-period-and-year",
	"in-or-before-fiscal-period-and-year", "in-or-after-fiscal-period-and-year",
	"under", "eq-or-under", "not-under", "above", "eq-or-above",
	"contain-values", "not-contain-values",
}

var entityChildren = []string{ElemAllAttributes, ElemAttribute, ElemOrder, ElemFilter, ElemLinkEntity}

// Schema is the FetchXML element table used by the validator, the reverse
// transpiler and the context detector.
var Schema = map[string]ElementSpec{
	ElemFetch: {
		Attributes: map[string]AttributeSpec{
			"version":                {},
			"output-format":          {},
			"mapping":                {Kind: ValueEnum, Enum: []string{"logical", "internal"}},
			"distinct":               boolAttr,
			"no-lock":                boolAttr,
			"aggregate":              boolAttr,
			"aggregatelimit":         {Kind: ValueInt},
			"top":                    {Kind: ValueInt},
			"count":                  {Kind: ValueInt},
			"page":                   {Kind: ValueInt},
			"paging-cookie":          {},
			"returntotalrecordcount": boolAttr,
			"utc-offset":             {Kind: ValueInt},
			"latematerialize":        boolAttr,
			"useraworderby":          boolAttr,
			"datasource":             {Kind: ValueEnum, Enum: []string{"retained"}},
			"options":                {},
		},
		Children: []string{ElemEntity},
	},
	ElemEntity: {
		Attributes: map[string]AttributeSpec{
			"name":                   {Kind: ValueEntity},
			"enableprefiltering":     boolAttr,
			"prefilterparametername": {},
		},
		Required: []string{"name"},
		Children: entityChildren,
	},
	ElemLinkEntity: {
		Attributes: map[string]AttributeSpec{
			"name":                   {Kind: ValueEntity},
			"from":                   {Kind: ValueAttribute},
			"to":                     {Kind: ValueLinkedAttr},
			"alias":                  {},
			"link-type":              {Kind: ValueEnum, Enum: LinkTypes},
			"visible":                boolAttr,
			"intersect":              boolAttr,
			"enableprefiltering":     boolAttr,
			"prefilterparametername": {},
		},
		Required: []string{"name", "from", "to"},
		Children: entityChildren,
	},
	ElemAttribute: {
		Attributes: map[string]AttributeSpec{
			"name":         {Kind: ValueAttribute},
			"alias":        {},
			"aggregate":    {Kind: ValueEnum, Enum: AggregateTypes},
			"groupby":      boolAttr,
			"dategrouping": {Kind: ValueEnum, Enum: DateGroupings},
			"distinct":     boolAttr,
			"usertimezone": boolAttr,
			"rowaggregate": {Kind: ValueEnum, Enum: []string{"CountChildren"}},
			"build":        {},
			"addedby":      {},
		},
		Required: []string{"name"},
	},
	ElemAllAttributes: {
		Attributes: map[string]AttributeSpec{},
	},
	ElemOrder: {
		Attributes: map[string]AttributeSpec{
			"attribute":  {Kind: ValueAttribute},
			"alias":      {},
			"descending": boolAttr,
			"entityname": {},
		},
	},
	ElemFilter: {
		Attributes: map[string]AttributeSpec{
			"type":                                 {Kind: ValueEnum, Enum: FilterTypes},
			"isquickfindfields":                    boolAttr,
			"overridequickfindrecordlimitenabled":  boolAttr,
			"overridequickfindrecordlimitdisabled": boolAttr,
			"bypassquickfind":                      boolAttr,
			"hint":                                 {},
		},
		Children: []string{ElemCondition, ElemFilter, ElemLinkEntity},
	},
	ElemCondition: {
		Attributes: map[string]AttributeSpec{
			"attribute":    {Kind: ValueAttribute},
			"operator":     {Kind: ValueEnum, Enum: Operators},
			"value":        {},
			"valueof":      {},
			"entityname":   {},
			"aggregate":    {Kind: ValueEnum, Enum: AggregateTypes},
			"rowaggregate": {Kind: ValueEnum, Enum: []string{"CountChildren"}},
			"alias":        {},
			"uiname":       {},
			"uitype":       {},
			"uihidden":     boolAttr,
		},
		Required: []string{"attribute", "operator"},
		Children: []string{ElemValue},
	},
	ElemValue: {
		Attributes: map[string]AttributeSpec{
			"uiname": {},
			"uitype": {},
		},
		Text: true,
	},
}

// AllowsChild reports whether child may appear directly inside parent.
// An empty parent means document level, where only fetch is allowed.
func AllowsChild(parent, child string) bool {
	if parent == "" {
		return child == ElemFetch
	}
	spec, ok := Schema[parent]
	if !ok {
		return false
	}
	for _, c := range spec.Children {
		if c == child {
			return true
		}
	}
	return false
}

// ChildElements returns the elements allowed inside parent, in schema order.
func ChildElements(parent string) []string {
	if parent == "" {
		return []string{ElemFetch}
	}
	return append([]string(nil), Schema[parent].Children...)
}

// AttributeNames returns the sorted attribute names of element.
func AttributeNames(element string) []string {
	spec, ok := Schema[element]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(spec.Attributes))
	for name := range spec.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupAttribute returns the spec of attribute attr on element.
func LookupAttribute(element, attr string) (AttributeSpec, bool) {
	spec, ok := Schema[element]
	if !ok {
		return AttributeSpec{}, false
	}
	a, ok := spec.Attributes[attr]
	return a, ok
}

// ParseBool reports the boolean meaning of a FetchXML flag value.
func ParseBool(v string) (value, ok bool) {
	switch v {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
