package fetchxml

import (
	"strconv"
	"strings"
)

// ItemKind is the type of a scanned markup item.
type ItemKind int

// ItemKind values.
const (
	ItemText      ItemKind = iota // character data between tags
	ItemStartTag                  // <name ...> or <name .../>
	ItemEndTag                    // </name>
	ItemComment                   // <!-- ... -->
	ItemDirective                 // <?...?> and <!...>
	ItemCData                     // <![CDATA[...]]>
)

func (k ItemKind) String() string {
	switch k {
	case ItemText:
		return "text"
	case ItemStartTag:
		return "start-tag"
	case ItemEndTag:
		return "end-tag"
	case ItemComment:
		return "comment"
	case ItemDirective:
		return "directive"
	case ItemCData:
		return "cdata"
	default:
		return "unknown"
	}
}

// Attr is an XML attribute with its source offsets. Attributes built in
// memory (not scanned) have zero offsets.
type Attr struct {
	Name  string
	Value string // entity-decoded value

	Offset     int  // offset of the attribute name
	NameEnd    int  // offset one past the name
	ValueStart int  // offset of the first value byte (after the quote), -1 without value
	ValueEnd   int  // offset one past the last value byte
	Quote      byte // quote character, 0 for unquoted values
	Closed     bool // closing quote present
}

// Problem is a well-formedness problem found while scanning.
type Problem struct {
	Offset  int
	Message string
}

// Item is one markup construct of a FetchXML document.
//
// The scanner never fails: a tag cut off by the end of input or by the next
// '<' is returned with Unterminated set, so editors can reason about
// half-typed markup.
type Item struct {
	Kind         ItemKind
	Name         string // element name of tags
	NameEnd      int    // offset one past the element name
	Attrs        []Attr
	SelfClosing  bool
	Start        int // offset of the first byte ('<' for markup)
	End          int // offset one past the last byte
	Unterminated bool
	Text         string // decoded character data of text and CDATA items
	Problems     []Problem
}

// Contains reports whether offset lies inside the item: after its first
// byte and before its last. For unterminated items the end of input counts
// as inside.
func (it Item) Contains(offset int) bool {
	if offset <= it.Start {
		return false
	}
	if it.Unterminated {
		return offset <= it.End
	}
	return offset < it.End
}

// Attr returns the attribute with the given name.
func (it Item) Attr(name string) (Attr, bool) {
	for _, a := range it.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// scanner splits a document into items.
type scanner struct {
	src string
	pos int
}

// Scan splits text into markup items. It never fails; malformed markup is
// reported through Item.Problems and Item.Unterminated.
func Scan(text string) []Item {
	s := &scanner{src: text}
	var items []Item
	for s.pos < len(s.src) {
		items = append(items, s.next())
	}
	return items
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

func (s *scanner) next() Item {
	switch {
	case s.src[s.pos] != '<':
		return s.scanText()
	case s.hasPrefix("<!--"):
		return s.scanDelimited(ItemComment, "<!--", "-->")
	case s.hasPrefix("<![CDATA["):
		it := s.scanDelimited(ItemCData, "<![CDATA[", "]]>")
		body := s.src[it.Start+len("<![CDATA[") : it.End]
		it.Text = strings.TrimSuffix(body, "]]>")
		return it
	case s.hasPrefix("<?"):
		return s.scanDelimited(ItemDirective, "<?", "?>")
	case s.hasPrefix("<!"):
		return s.scanDelimited(ItemDirective, "<!", ">")
	case s.hasPrefix("</"):
		return s.scanEndTag()
	default:
		return s.scanStartTag()
	}
}

// scanText reads character data up to the next '<'.
func (s *scanner) scanText() Item {
	start := s.pos
	end := strings.IndexByte(s.src[start:], '<')
	if end < 0 {
		end = len(s.src)
	} else {
		end += start
	}
	s.pos = end
	raw := s.src[start:end]
	it := Item{Kind: ItemText, Start: start, End: end}
	it.Text, it.Problems = decodeEntities(raw, start)
	return it
}

// scanDelimited reads a construct that runs from open to closing.
func (s *scanner) scanDelimited(kind ItemKind, open, closing string) Item {
	start := s.pos
	idx := strings.Index(s.src[start+len(open):], closing)
	it := Item{Kind: kind, Start: start}
	if idx < 0 {
		it.End = len(s.src)
		it.Unterminated = true
		it.Problems = append(it.Problems, Problem{Offset: start, Message: "unterminated " + kind.String()})
	} else {
		it.End = start + len(open) + idx + len(closing)
	}
	s.pos = it.End
	return it
}

// scanName reads an XML name starting at s.pos.
func (s *scanner) scanName() string {
	start := s.pos
	for s.pos < len(s.src) && isNameChar(s.src[s.pos], s.pos == start) {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

// scanEndTag reads </name>.
func (s *scanner) scanEndTag() Item {
	it := Item{Kind: ItemEndTag, Start: s.pos}
	s.pos += 2
	it.Name = s.scanName()
	it.NameEnd = s.pos
	if it.Name == "" {
		it.Problems = append(it.Problems, Problem{Offset: s.pos, Message: "expected element name after </"})
	}
	s.skipSpace()

	switch {
	case s.pos < len(s.src) && s.src[s.pos] == '>':
		s.pos++
	default:
		it.Unterminated = true
		it.Problems = append(it.Problems, Problem{Offset: it.Start, Message: "unterminated closing tag </" + it.Name + ">"})
		// Resynchronise on the next tag.
		if idx := strings.IndexAny(s.src[s.pos:], "<>"); idx >= 0 && s.src[s.pos+idx] == '>' {
			s.pos += idx + 1
			it.Unterminated = false
		}
	}
	it.End = s.pos
	return it
}

// scanStartTag reads <name attr="value" ...> or its self-closing form.
func (s *scanner) scanStartTag() Item {
	it := Item{Kind: ItemStartTag, Start: s.pos}
	s.pos++ // '<'
	it.Name = s.scanName()
	it.NameEnd = s.pos
	if it.Name == "" {
		it.Problems = append(it.Problems, Problem{Offset: s.pos, Message: "expected element name after <"})
	}

	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			it.Unterminated = true
			break
		}
		ch := s.src[s.pos]
		if ch == '>' {
			s.pos++
			break
		}
		if ch == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '>' {
			it.SelfClosing = true
			s.pos += 2
			break
		}
		if ch == '<' {
			// The next tag starts before this one was closed.
			it.Unterminated = true
			break
		}
		if !isNameChar(ch, true) {
			it.Problems = append(it.Problems, Problem{Offset: s.pos, Message: "unexpected character " + strconv.QuoteRune(rune(ch)) + " in tag <" + it.Name + ">"})
			s.pos++
			continue
		}

		attr, problems := s.scanAttr()
		it.Problems = append(it.Problems, problems...)
		it.Attrs = append(it.Attrs, attr)
		if attr.Quote != 0 && !attr.Closed {
			it.Unterminated = true
			break
		}
	}

	if it.Unterminated {
		it.Problems = append(it.Problems, Problem{Offset: it.Start, Message: "unterminated tag <" + it.Name + ">"})
	}
	it.End = s.pos
	return it
}

// scanAttr reads name="value". s.pos is on the first name byte.
func (s *scanner) scanAttr() (Attr, []Problem) {
	var problems []Problem
	a := Attr{Offset: s.pos, ValueStart: -1}
	a.Name = s.scanName()
	a.NameEnd = s.pos

	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '=' {
		problems = append(problems, Problem{Offset: a.Offset, Message: "attribute " + a.Name + " has no value"})
		a.ValueEnd = a.NameEnd
		return a, problems
	}
	s.pos++ // '='
	s.skipSpace()

	if s.pos < len(s.src) && (s.src[s.pos] == '"' || s.src[s.pos] == '\'') {
		a.Quote = s.src[s.pos]
		s.pos++
		a.ValueStart = s.pos
		for s.pos < len(s.src) && s.src[s.pos] != a.Quote && s.src[s.pos] != '<' {
			s.pos++
		}
		a.ValueEnd = s.pos
		if s.pos < len(s.src) && s.src[s.pos] == a.Quote {
			a.Closed = true
			s.pos++
		} else {
			problems = append(problems, Problem{Offset: a.Offset, Message: "unterminated value of attribute " + a.Name})
		}
	} else {
		a.ValueStart = s.pos
		for s.pos < len(s.src) && !isSpace(s.src[s.pos]) && s.src[s.pos] != '>' && s.src[s.pos] != '<' &&
			!(s.src[s.pos] == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '>') {
			s.pos++
		}
		a.ValueEnd = s.pos
		problems = append(problems, Problem{Offset: a.Offset, Message: "value of attribute " + a.Name + " must be quoted"})
	}

	value, valueProblems := decodeEntities(s.src[a.ValueStart:a.ValueEnd], a.ValueStart)
	a.Value = value
	problems = append(problems, valueProblems...)
	return a, problems
}

// isNameChar reports whether ch may appear in an XML name. first restricts
// the check to name-start characters.
func isNameChar(ch byte, first bool) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_', ch == ':', ch >= 0x80:
		return true
	case ch >= '0' && ch <= '9', ch == '-', ch == '.':
		return !first
	}
	return false
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

var namedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"quot": `"`,
	"apos": "'",
}

// decodeEntities replaces character and entity references in raw. base is
// the offset of raw in the document, used to locate problems.
func decodeEntities(raw string, base int) (string, []Problem) {
	if !strings.Contains(raw, "&") {
		return raw, nil
	}

	var problems []Problem
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '&' {
			b.WriteByte(raw[i])
			continue
		}
		end := strings.IndexByte(raw[i:], ';')
		if end < 0 {
			problems = append(problems, Problem{Offset: base + i, Message: "unescaped '&' (use &amp;)"})
			b.WriteByte('&')
			continue
		}
		ref := raw[i+1 : i+end]
		if decoded, ok := decodeReference(ref); ok {
			b.WriteString(decoded)
			i += end
			continue
		}
		problems = append(problems, Problem{Offset: base + i, Message: "unknown entity &" + ref + ";"})
		b.WriteByte('&')
	}
	return b.String(), problems
}

func decodeReference(ref string) (string, bool) {
	if v, ok := namedEntities[ref]; ok {
		return v, true
	}
	if !strings.HasPrefix(ref, "#") {
		return "", false
	}
	num := ref[1:]
	base := 10
	if strings.HasPrefix(num, "x") || strings.HasPrefix(num, "X") {
		num, base = num[1:], 16
	}
	n, err := strconv.ParseInt(num, base, 32)
	if err != nil || n <= 0 || n > 0x10FFFF {
		return "", false
	}
	return string(rune(n)), true
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

var textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")

// EscapeAttr escapes a value for use inside a double-quoted attribute.
func EscapeAttr(v string) string {
	return attrEscaper.Replace(v)
}

// EscapeText escapes character data.
func EscapeText(v string) string {
	return textEscaper.Replace(v)
}
