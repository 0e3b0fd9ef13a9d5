package lsp

import (
	"encoding/json"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
)

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	actions := s.getCodeActions(params)
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions offers to rewrite the whole document in the other syntax
// when it translates without errors.
func (s *Server) getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}

	if len(params.Context.Only) > 0 && !wantsKind(params.Context.Only, CodeActionKindRefactorRewrite) {
		return actions
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return actions
	}

	res, _ := s.translate(doc)
	if res == nil || res.HasErrors() || res.Output == "" {
		return actions
	}

	title := "Convert to FetchXML"
	if res.To == completion.SQL.String() {
		title = "Convert to SQL"
	}
	actions = append(actions, CodeAction{
		Title:       title,
		Kind:        CodeActionKindRefactorRewrite,
		Diagnostics: params.Context.Diagnostics,
		Edit: &WorkspaceEdit{
			Changes: map[string][]TextEdit{
				doc.URI: {{Range: doc.FullRange(), NewText: res.Output}},
			},
		},
	})

	if doc.Lang() == completion.SQL {
		if formatted, err := convert.Format(doc.Content); err == nil && formatted != doc.Content {
			actions = append(actions, CodeAction{
				Title: "Format SQL",
				Kind:  CodeActionKindRefactorRewrite,
				Edit: &WorkspaceEdit{
					Changes: map[string][]TextEdit{
						doc.URI: {{Range: doc.FullRange(), NewText: formatted}},
					},
				},
			})
		}
	}
	return actions
}

// wantsKind reports whether kind, or a parent of it, was requested.
func wantsKind(only []CodeActionKind, kind CodeActionKind) bool {
	for _, k := range only {
		if k == kind || k == "refactor" {
			return true
		}
	}
	return false
}

// handleFormatting reformats SQL documents through the printer. FetchXML
// documents and SQL that does not parse are left alone.
func (s *Server) handleFormatting(msg *JSONRPCMessage) error {
	var params DocumentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	edits := []TextEdit{}
	doc := s.documents.Get(params.TextDocument.URI)
	if doc != nil && doc.Lang() == completion.SQL {
		if formatted, err := convert.Format(doc.Content); err == nil && formatted != doc.Content {
			edits = append(edits, TextEdit{Range: doc.FullRange(), NewText: formatted})
		}
	}
	s.sendResponse(msg.ID, edits, nil)
	return nil
}
