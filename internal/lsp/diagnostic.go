package lsp

import (
	"errors"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/core"
)

const diagnosticSource = "fetchsql"

// publishDiagnostics translates the document and publishes what the
// translation reported.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	_, diagnostics := s.translate(doc)
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// translate runs the document through the translator. Diagnostics is never
// nil so that an empty list clears the client's markers.
func (s *Server) translate(doc *Document) (*convert.Result, []Diagnostic) {
	res, err := convert.Translate(doc.Content, doc.Lang(), s.transpile...)
	if err != nil {
		msg := err.Error()
		code := convert.CodeUnsupported
		if errors.Is(err, core.ErrInputTooLarge) {
			code = convert.CodeInputTooLarge
		}
		return nil, []Diagnostic{{
			Range:    Range{},
			Severity: DiagnosticSeverityError,
			Code:     code,
			Source:   diagnosticSource,
			Message:  msg,
		}}
	}

	diagnostics := make([]Diagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		diagnostics = append(diagnostics, toDiagnostic(doc, d))
	}
	return res, diagnostics
}

// toDiagnostic converts a translation diagnostic into an LSP diagnostic
// spanning the word at its offset, or its fragment when it has one.
func toDiagnostic(doc *Document, d convert.Diagnostic) Diagnostic {
	r := doc.WordRange(d.Offset)
	if d.Fragment != "" && d.Offset+len(d.Fragment) <= len(doc.Content) &&
		doc.Content[d.Offset:d.Offset+len(d.Fragment)] == d.Fragment {
		r.End = doc.OffsetToPosition(d.Offset + len(d.Fragment))
	}

	return Diagnostic{
		Range:    r,
		Severity: severityToLSP(d.Severity),
		Code:     d.Code,
		Source:   diagnosticSource,
		Message:  d.Message,
	}
}

func severityToLSP(s core.Severity) DiagnosticSeverity {
	if s == core.SeverityWarning {
		return DiagnosticSeverityWarning
	}
	return DiagnosticSeverityError
}
