// Package convert is the host-side translation use case shared by the CLI,
// the language server and the preview server: it picks the direction,
// runs the translator and flattens every outcome into positioned
// diagnostics.
package convert

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/fetchxml"
	"github.com/leapstack-labs/fetchsql/pkg/format"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/leapstack-labs/fetchsql/pkg/token"
	"github.com/leapstack-labs/fetchsql/pkg/transpile"
)

// Diagnostic codes for problems that are not reverse-translation warnings.
const (
	CodeSyntax        = "SYNTAX"
	CodeUnsupported   = "UNSUPPORTED"
	CodeInputTooLarge = "INPUT_TOO_LARGE"
)

// Diagnostic is a positioned problem found while translating.
type Diagnostic struct {
	Severity core.Severity `json:"severity"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Offset   int           `json:"offset"`
	Line     int           `json:"line"`
	Column   int           `json:"column"`
	Fragment string        `json:"fragment,omitempty"`
}

// Result is the outcome of one translation.
type Result struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Output      string       `json:"output"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == core.SeverityError {
			return true
		}
	}
	return false
}

// Translate converts text to the other syntax. lang may be Auto.
//
// Problems in the input never produce an error; they are reported as
// diagnostics and Output holds whatever could be produced. Oversized input
// is the exception: it returns core.ErrInputTooLarge.
func Translate(text string, lang completion.Language, opts ...transpile.Option) (*Result, error) {
	if err := core.CheckInputSize(text); err != nil {
		return nil, err
	}

	if completion.Resolve(lang, text) == completion.FetchXML {
		return toSQL(text)
	}
	return toFetchXML(text, opts)
}

func toFetchXML(text string, opts []transpile.Option) (*Result, error) {
	res := &Result{From: completion.SQL.String(), To: completion.FetchXML.String()}

	stmt, err := parser.Parse(text)
	if err != nil {
		var perr *parser.ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		res.add(text, core.SeverityError, CodeSyntax, perr.Message, perr.Offset, "")
		return res, nil
	}

	out, err := transpile.ToFetchXML(stmt, opts...)
	if err != nil {
		var terr *transpile.Error
		switch {
		case errors.As(err, &terr):
			res.add(text, core.SeverityError, CodeUnsupported, terr.Message, 0, "")
		case errors.Is(err, transpile.ErrNoFetchEquivalent):
			res.add(text, core.SeverityError, CodeUnsupported, err.Error(), 0, "")
		default:
			return nil, err
		}
		return res, nil
	}
	res.Output = out
	return res, nil
}

func toSQL(text string) (*Result, error) {
	res := &Result{From: completion.FetchXML.String(), To: completion.SQL.String()}

	rev, err := transpile.ToSQL(text)
	if err != nil {
		return nil, err
	}
	for _, w := range rev.Warnings {
		severity := core.SeverityWarning
		if w.Code == transpile.WarnValidation {
			severity = core.SeverityError
		}
		res.add(text, severity, string(w.Code), w.Message, w.Offset, w.Fragment)
	}
	res.Output = rev.SQL
	return res, nil
}

func (r *Result) add(src string, severity core.Severity, code, msg string, offset int, fragment string) {
	pos := token.PositionAt(src, offset)
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  msg,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
		Fragment: fragment,
	})
}

// Validate checks a document without translating it. SQL is parsed and
// checked for a FetchXML equivalent; FetchXML is validated against the
// schema.
func Validate(text string, lang completion.Language, opts ...transpile.Option) (*Result, error) {
	if completion.Resolve(lang, text) == completion.SQL {
		res, err := Translate(text, completion.SQL, opts...)
		if err != nil {
			return nil, err
		}
		res.Output = ""
		return res, nil
	}

	errs, err := fetchxml.Validate(text)
	if err != nil {
		return nil, err
	}
	res := &Result{From: completion.FetchXML.String()}
	for _, e := range errs {
		res.add(text, core.SeverityError, string(transpile.WarnValidation), e.Message, e.Offset, "")
	}
	return res, nil
}

// Format reformats SQL text through the printer.
func Format(text string) (string, error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return "", err
	}
	return format.Format(stmt), nil
}

// Language names a document by file name, falling back to its content.
func Language(name, text string) completion.Language {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".sql"):
		return completion.SQL
	case strings.HasSuffix(strings.ToLower(name), ".xml"), strings.HasSuffix(strings.ToLower(name), ".fetchxml"):
		return completion.FetchXML
	}
	return completion.Resolve(completion.Auto, text)
}
