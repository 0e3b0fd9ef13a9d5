package completion

import (
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/fetchxml"
)

// frame is an open element preceding the cursor.
type frame struct {
	name   string
	entity string // nearest entity or link-entity name
}

// DetectFetchXML returns the completion context at offset in FetchXML text.
//
// Only a cursor inside a tag yields a context: on the element name of a
// start or end tag, among the attributes of a start tag, or inside a quoted
// attribute value. Character data, comments and directives yield None.
func DetectFetchXML(text string, offset int) Context {
	if offset < 0 || offset > len(text) || core.CheckInputSize(text) != nil {
		return none
	}

	var stack []frame
	for _, it := range fetchxml.Scan(text) {
		if it.Start >= offset {
			break
		}
		if it.Contains(offset) {
			return tagContext(text, it, stack, offset)
		}
		stack = replay(stack, it)
	}
	return none
}

// replay applies a complete item to the open element stack.
func replay(stack []frame, it fetchxml.Item) []frame {
	switch it.Kind {
	case fetchxml.ItemStartTag:
		if it.SelfClosing || it.Unterminated {
			return stack
		}
		return append(stack, frame{name: it.Name, entity: entityOf(stack, it)})
	case fetchxml.ItemEndTag:
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].name == it.Name {
				return stack[:i]
			}
		}
	}
	return stack
}

// entityOf returns the entity whose attributes apply inside it.
func entityOf(stack []frame, it fetchxml.Item) string {
	if it.Name == fetchxml.ElemEntity || it.Name == fetchxml.ElemLinkEntity {
		if a, ok := it.Attr("name"); ok {
			return a.Value
		}
		return ""
	}
	return top(stack).entity
}

func top(stack []frame) frame {
	if len(stack) == 0 {
		return frame{}
	}
	return stack[len(stack)-1]
}

func tagContext(text string, it fetchxml.Item, stack []frame, offset int) Context {
	parent := top(stack)

	switch it.Kind {
	case fetchxml.ItemEndTag:
		// "</" then the name.
		if offset < it.Start+2 || offset > it.NameEnd {
			return none
		}
		ctx := Context{Kind: XMLElement, Closing: true, Prefix: text[it.Start+2 : offset]}
		if parent.name != "" {
			ctx.Values = []string{parent.name}
		}
		return ctx

	case fetchxml.ItemStartTag:
		if offset <= it.NameEnd {
			return Context{
				Kind:    XMLElement,
				Element: parent.name,
				Values:  fetchxml.ChildElements(parent.name),
				Prefix:  text[it.Start+1 : offset],
			}
		}
		if it.SelfClosing && !it.Unterminated && offset >= it.End-1 {
			return none
		}
		return attributeContext(text, it, stack, offset)
	}
	return none
}

func attributeContext(text string, it fetchxml.Item, stack []frame, offset int) Context {
	for _, a := range it.Attrs {
		if offset < a.Offset {
			break
		}
		if offset <= a.NameEnd {
			return Context{
				Kind:    XMLAttribute,
				Element: it.Name,
				Values:  missingAttributes(it, a.Name),
				Prefix:  text[a.Offset:offset],
			}
		}
		if a.ValueStart < 0 {
			// Bare name.
			continue
		}
		if offset < a.ValueStart {
			return none
		}
		if offset <= a.ValueEnd {
			if a.Quote == 0 {
				return none
			}
			return valueContext(it, a, stack, text[a.ValueStart:offset])
		}
	}

	return Context{Kind: XMLAttribute, Element: it.Name, Values: missingAttributes(it, "")}
}

// missingAttributes lists the attributes of the element not yet written,
// keeping the one being edited.
func missingAttributes(it fetchxml.Item, editing string) []string {
	var out []string
	for _, name := range fetchxml.AttributeNames(it.Name) {
		if _, present := it.Attr(name); present && name != editing {
			continue
		}
		out = append(out, name)
	}
	return out
}

func valueContext(it fetchxml.Item, a fetchxml.Attr, stack []frame, prefix string) Context {
	spec, ok := fetchxml.LookupAttribute(it.Name, a.Name)
	if !ok {
		return none
	}

	ctx := Context{Element: it.Name, Attribute: a.Name, Prefix: prefix}
	switch spec.Kind {
	case fetchxml.ValueEntity:
		ctx.Kind = EntityName
	case fetchxml.ValueAttribute:
		ctx.Kind = AttributeName
		ctx.Entity = entityOf(stack, it)
	case fetchxml.ValueLinkedAttr:
		ctx.Kind = AttributeName
		ctx.Entity = top(stack).entity
	case fetchxml.ValueBool:
		ctx.Kind = XMLAttributeValue
		ctx.Values = []string{"true", "false"}
	case fetchxml.ValueEnum:
		ctx.Kind = XMLAttributeValue
		ctx.Values = clone(spec.Enum)
	default:
		return none
	}
	return ctx
}
