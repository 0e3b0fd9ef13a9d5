package fetchxml

import (
	"bytes"
	"strings"
)

// Node is an element of a FetchXML document tree.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string // character data, whitespace-trimmed
	Raw      string // character data as written
	Parent   *Node

	// Offset is the offset of the element's '<' in the source, or -1 for
	// nodes built in memory.
	Offset int
}

// NewNode creates an in-memory element with the given attribute name/value
// pairs. Pairs with an empty value are skipped.
func NewNode(name string, attrs ...string) *Node {
	n := &Node{Name: name, Offset: -1}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] != "" {
			n.SetAttr(attrs[i], attrs[i+1])
		}
	}
	return n
}

// SetAttr sets an attribute, keeping the position of an existing one.
func (n *Node) SetAttr(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value, ValueStart: -1})
	return n
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Get returns the value of the named attribute, or "" when absent.
func (n *Node) Get(name string) string {
	v, _ := n.Attr(name)
	return v
}

// Flag reports whether a boolean attribute is set to true.
func (n *Node) Flag(name string) bool {
	v, _ := ParseBool(n.Get(name))
	return v
}

// Child returns the first child element with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns the child elements with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ---------- Tree building ----------

// Parse builds a document tree from text and validates it. It never fails:
// unclosed elements are closed at the end of input and unknown markup is
// kept, so callers get a best-effort tree alongside the errors. The root is
// nil when text contains no element.
//
// Parse does not enforce the input size limit; Validate and the transpiler
// entry points do.
func Parse(text string) (*Node, []ValidationError) {
	b := newBuilder(text)
	root := b.build()
	if root != nil {
		b.validateTree(root)
	} else if len(b.errs) == 0 {
		b.addError(len(text), "document has no <fetch> element")
	}
	return root, b.sorted()
}

type builder struct {
	src   string
	lines lineIndex
	errs  []ValidationError
}

func newBuilder(text string) *builder {
	return &builder{src: text, lines: newLineIndex(text)}
}

func (b *builder) addError(offset int, msg string) {
	line, col := b.lines.position(offset)
	b.errs = append(b.errs, ValidationError{Offset: offset, Line: line, Column: col, Message: msg})
}

// build replays the scanned items into a tree and records structural errors.
func (b *builder) build() *Node {
	var root *Node
	var stack []*Node

	for _, it := range Scan(b.src) {
		for _, p := range it.Problems {
			b.addError(p.Offset, p.Message)
		}

		switch it.Kind {
		case ItemStartTag:
			if it.Name == "" {
				continue
			}
			node := &Node{Name: it.Name, Attrs: it.Attrs, Offset: it.Start}
			b.checkDuplicateAttrs(node)
			if len(stack) == 0 {
				if root != nil {
					b.addError(it.Start, "unexpected element <"+it.Name+"> after the root element")
					continue
				}
				root = node
			} else {
				stack[len(stack)-1].Append(node)
			}
			if !it.SelfClosing {
				stack = append(stack, node)
			}

		case ItemEndTag:
			if it.Name == "" {
				continue
			}
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Name == it.Name {
					idx = i
					break
				}
			}
			if idx < 0 {
				b.addError(it.Start, "unexpected closing tag </"+it.Name+">")
				continue
			}
			for i := len(stack) - 1; i > idx; i-- {
				b.addError(stack[i].Offset, "element <"+stack[i].Name+"> is not closed")
			}
			stack = stack[:idx]

		case ItemText, ItemCData:
			if len(stack) > 0 {
				stack[len(stack)-1].Raw += it.Text
			}
			text := strings.TrimSpace(it.Text)
			if text == "" {
				continue
			}
			if len(stack) == 0 {
				b.addError(it.Start, "text outside the root element")
				continue
			}
			top := stack[len(stack)-1]
			if top.Text != "" {
				top.Text += " "
			}
			top.Text += text
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		b.addError(stack[i].Offset, "element <"+stack[i].Name+"> is not closed")
	}
	return root
}

func (b *builder) checkDuplicateAttrs(n *Node) {
	seen := make(map[string]bool, len(n.Attrs))
	for _, a := range n.Attrs {
		if seen[a.Name] {
			b.addError(a.Offset, "duplicate attribute "+a.Name+" on <"+n.Name+">")
		}
		seen[a.Name] = true
	}
}

// ---------- Rendering ----------

// Render serialises the tree with two-space indentation. Elements without
// children or text are self-closing: <attribute name="x" />.
func (n *Node) Render() string {
	var buf bytes.Buffer
	n.render(&buf, 0)
	return buf.String()
}

func (n *Node) render(buf *bytes.Buffer, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(EscapeAttr(a.Value))
		buf.WriteByte('"')
	}

	switch {
	case len(n.Children) == 0 && n.Text == "":
		buf.WriteString(" />\n")
	case len(n.Children) == 0:
		buf.WriteByte('>')
		buf.WriteString(EscapeText(n.Text))
		buf.WriteString("</")
		buf.WriteString(n.Name)
		buf.WriteString(">\n")
	default:
		buf.WriteString(">\n")
		for _, c := range n.Children {
			c.render(buf, depth+1)
		}
		buf.WriteString(indent)
		buf.WriteString("</")
		buf.WriteString(n.Name)
		buf.WriteString(">\n")
	}
}
