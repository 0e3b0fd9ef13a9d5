// Package fetchxml models FetchXML documents: a tolerant scanner, a
// best-effort document tree, the element schema and a validator.
//
// Nothing in this package requires well-formed input. Editors call it on
// every keystroke, so half-typed markup yields errors, never panics.
package fetchxml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// ValidationError is a problem found in a FetchXML document.
type ValidationError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Validate checks text for well-formedness (balanced and terminated tags),
// a single <fetch> root, known elements and attributes, valid parent/child
// pairs, required attributes and enumerated or numeric values.
//
// The error is non-nil only when text exceeds core.DefaultMaxInputSize.
func Validate(text string) ([]ValidationError, error) {
	if err := core.CheckInputSize(text); err != nil {
		return nil, err
	}
	_, errs := Parse(text)
	return errs, nil
}

// validateTree checks the tree against the schema.
func (b *builder) validateTree(root *Node) {
	if root.Name != ElemFetch {
		b.addError(root.Offset, "root element must be <fetch>, found <"+root.Name+">")
	}
	b.validateNode(root, "")
}

func (b *builder) validateNode(n *Node, parent string) {
	spec, known := Schema[n.Name]
	if !known {
		b.addError(n.Offset, "unknown element <"+n.Name+">")
		return
	}
	if parent != "" && !AllowsChild(parent, n.Name) {
		b.addError(n.Offset, "<"+n.Name+"> is not allowed inside <"+parent+">")
	}

	for _, a := range n.Attrs {
		attrSpec, ok := spec.Attributes[a.Name]
		if !ok {
			b.addError(attrOffset(n, a), "unknown attribute "+a.Name+" on <"+n.Name+">")
			continue
		}
		if msg := checkValue(attrSpec, a.Value); msg != "" {
			b.addError(attrOffset(n, a), fmt.Sprintf("invalid value %q for %s@%s: %s", a.Value, n.Name, a.Name, msg))
		}
	}

	for _, req := range spec.Required {
		if _, ok := n.Attr(req); !ok {
			b.addError(n.Offset, "<"+n.Name+"> requires attribute "+req)
		}
	}

	switch n.Name {
	case ElemOrder:
		_, hasAttr := n.Attr("attribute")
		_, hasAlias := n.Attr("alias")
		if !hasAttr && !hasAlias {
			b.addError(n.Offset, "<order> requires attribute or alias")
		}
	case ElemFetch:
		if len(n.ChildrenNamed(ElemEntity)) != 1 {
			b.addError(n.Offset, "<fetch> must contain exactly one <entity>")
		}
	}

	if n.Text != "" && !spec.Text {
		b.addError(n.Offset, "<"+n.Name+"> cannot contain text")
	}

	for _, c := range n.Children {
		b.validateNode(c, n.Name)
	}
}

// attrOffset returns the source offset of an attribute, falling back to its
// element for in-memory nodes.
func attrOffset(n *Node, a Attr) int {
	if a.Offset <= 0 {
		return n.Offset
	}
	return a.Offset
}

// checkValue returns a message when v is not acceptable for spec.
func checkValue(spec AttributeSpec, v string) string {
	switch spec.Kind {
	case ValueBool:
		if _, ok := ParseBool(v); !ok {
			return "expected true or false"
		}
	case ValueInt:
		if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return "expected an integer"
		}
	case ValueEnum:
		if !contains(spec.Enum, v) {
			if len(spec.Enum) > 8 {
				return "unknown value"
			}
			return "expected one of " + strings.Join(spec.Enum, ", ")
		}
	case ValueEntity, ValueAttribute, ValueLinkedAttr:
		if strings.TrimSpace(v) == "" {
			return "name cannot be empty"
		}
	}
	return ""
}

// sorted returns the errors ordered by offset, keeping discovery order for
// equal offsets.
func (b *builder) sorted() []ValidationError {
	sort.SliceStable(b.errs, func(i, j int) bool {
		return b.errs[i].Offset < b.errs[j].Offset
	})
	return b.errs
}

// ---------- Positions ----------

// lineIndex maps offsets to 1-based line and column numbers.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (idx lineIndex) position(offset int) (line, col int) {
	i := sort.Search(len(idx), func(i int) bool { return idx[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - idx[i] + 1
}
