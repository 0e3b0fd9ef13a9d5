package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
)

// Document is an open editor buffer.
//
// Offsets into Content are bytes. Positions exchanged with the client
// count UTF-16 code units, the protocol's default encoding; the conversion
// happens in PositionToOffset and OffsetToPosition.
type Document struct {
	URI      string
	Content  string
	Version  int
	Language completion.Language // Auto when neither languageId nor extension decide

	lines []int // byte offset of each line start
}

func newDocument(uri string, lang completion.Language, content string, version int) *Document {
	d := &Document{URI: uri, Version: version, Language: lang}
	d.setContent(content)
	return d
}

func (d *Document) setContent(content string) {
	d.Content = content
	d.lines = d.lines[:0]
	d.lines = append(d.lines, 0)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			d.lines = append(d.lines, i+1)
		}
	}
}

// Lang returns the syntax of the document, deciding from its content when
// the language was not fixed at open.
func (d *Document) Lang() completion.Language {
	return completion.Resolve(d.Language, d.Content)
}

// documentLanguage picks the syntax of a newly opened document from the
// client's languageId, then the file extension.
func documentLanguage(uri, languageID string) completion.Language {
	if lang, ok := completion.ParseLanguage(languageID); ok && lang != completion.Auto {
		return lang
	}
	path := URIToPath(uri)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql", ".xml", ".fetchxml":
		return convert.Language(path, "")
	}
	return completion.Auto
}

// lineBounds returns the byte range of line, without its line break.
func (d *Document) lineBounds(line int) (int, int) {
	start := d.lines[line]
	end := len(d.Content)
	if line+1 < len(d.lines) {
		end = d.lines[line+1] - 1
	}
	return start, end
}

// PositionToOffset converts a client position to a byte offset. Lines past
// the end map to the end of the document and characters past the end of a
// line map to the line break.
func (d *Document) PositionToOffset(pos Position) int {
	if int(pos.Line) >= len(d.lines) {
		return len(d.Content)
	}
	start, end := d.lineBounds(int(pos.Line))

	units := int(pos.Character)
	offset := start
	for offset < end && units > 0 {
		r, size := utf8.DecodeRuneInString(d.Content[offset:end])
		units -= utf16Len(r)
		offset += size
	}
	return offset
}

// OffsetToPosition converts a byte offset to a client position. Offsets
// are clamped to the document.
func (d *Document) OffsetToPosition(offset int) Position {
	offset = max(0, min(offset, len(d.Content)))
	line := sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset }) - 1

	units := 0
	for _, r := range d.Content[d.lines[line]:offset] {
		units += utf16Len(r)
	}
	return Position{
		Line:      uint32(line),  //nolint:gosec // G115: line is never negative
		Character: uint32(units), //nolint:gosec // G115: units is never negative
	}
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// WordRange returns the range of the word starting at offset. When no word
// starts there the range covers one byte, or nothing at the end of a line.
func (d *Document) WordRange(offset int) Range {
	offset = max(0, min(offset, len(d.Content)))

	end := offset
	for end < len(d.Content) && isWordChar(d.Content[end]) {
		end++
	}
	if end == offset && end < len(d.Content) && d.Content[end] != '\n' {
		end++
	}

	return Range{Start: d.OffsetToPosition(offset), End: d.OffsetToPosition(end)}
}

// FullRange covers the whole document.
func (d *Document) FullRange() Range {
	return Range{End: d.OffsetToPosition(len(d.Content))}
}

// apply performs one content change. A change without a range replaces the
// whole document.
func (d *Document) apply(change TextDocumentContentChangeEvent) error {
	if change.Range == nil {
		d.setContent(change.Text)
		return nil
	}
	start := d.PositionToOffset(change.Range.Start)
	end := d.PositionToOffset(change.Range.End)
	if end < start {
		return fmt.Errorf("change range ends before it starts (%d:%d)", change.Range.End.Line, change.Range.End.Character)
	}
	d.setContent(d.Content[:start] + change.Text + d.Content[end:])
	return nil
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-' || c == '.'
}

// DocumentStore holds the open documents.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*Document)}
}

// Open adds or replaces a document.
func (s *DocumentStore) Open(uri, languageID, content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[uri] = newDocument(uri, documentLanguage(uri, languageID), content, version)
}

// Close forgets a document.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}

// Get returns a snapshot of a document, or nil when it is not open.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]
	if !ok {
		return nil
	}
	snapshot := *doc
	snapshot.lines = append([]int(nil), doc.lines...)
	return &snapshot
}

// Apply performs content changes in order and sets the new version. It
// reports whether the document is open. Changes are all-or-nothing: when
// one fails the document keeps its previous content and version.
func (s *DocumentStore) Apply(uri string, version int, changes ...TextDocumentContentChangeEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok {
		return false, nil
	}
	next := *doc
	next.lines = append([]int(nil), doc.lines...)
	for _, ch := range changes {
		if err := next.apply(ch); err != nil {
			return true, err
		}
	}
	next.Version = version
	s.documents[uri] = &next
	return true, nil
}

// URIs returns the open document URIs in sorted order.
func (s *DocumentStore) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// URIToPath converts a file URI to a file system path, decoding percent
// escapes. Anything that is not a file URI is returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// PathToURI converts a file system path to a file URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
