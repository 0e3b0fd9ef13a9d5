package completion

import "strings"

// Language selects the grammar used by Detect.
type Language int

// Language values.
const (
	Auto Language = iota
	SQL
	FetchXML
)

func (l Language) String() string {
	switch l {
	case SQL:
		return "sql"
	case FetchXML:
		return "fetchxml"
	default:
		return "auto"
	}
}

// ParseLanguage maps "sql", "fetchxml" or "auto" (any case) to a Language.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, true
	case "sql":
		return SQL, true
	case "fetchxml", "xml":
		return FetchXML, true
	}
	return Auto, false
}

// IsFetchXML reports whether text looks like markup: its first
// non-whitespace byte is '<'.
func IsFetchXML(text string) bool {
	return strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), "<")
}

// Detect returns the completion context at offset, choosing the grammar
// from the text itself. An offset outside the text yields None.
func Detect(text string, offset int) Context {
	return DetectAs(Auto, text, offset)
}

// Resolve replaces Auto with the language text looks like.
func Resolve(lang Language, text string) Language {
	if lang != Auto {
		return lang
	}
	if IsFetchXML(text) {
		return FetchXML
	}
	return SQL
}

// DetectAs is Detect with an explicit language.
func DetectAs(lang Language, text string, offset int) Context {
	if Resolve(lang, text) == FetchXML {
		return DetectFetchXML(text, offset)
	}
	return DetectSQL(text, offset)
}
