package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/fetchsql/internal/suggest"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
)

func (s *Server) handleCompletion(ctx context.Context, msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	items, err := s.getCompletions(ctx, params)
	if err != nil {
		// Metadata failures yield an empty list.
		s.logger.Warn("Completion failed", "uri", params.TextDocument.URI, "error", err)
		items = []CompletionItem{}
	}
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

// getCompletions detects the context at the cursor and resolves it against
// the metadata provider. Items keep the suggestion order through SortText
// and replace the partial word before the cursor.
func (s *Server) getCompletions(ctx context.Context, params CompletionParams) ([]CompletionItem, error) {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []CompletionItem{}, nil
	}

	offset := doc.PositionToOffset(params.Position)
	cctx := completion.DetectAs(doc.Lang(), doc.Content, offset)
	s.logger.Debug("Completion context", "kind", cctx.Kind.String(), "prefix", cctx.Prefix, "entity", cctx.Entity)
	if cctx.Kind == completion.None {
		return []CompletionItem{}, nil
	}

	suggestions, err := suggest.Suggest(ctx, s.metadata, cctx)
	if err != nil {
		return nil, err
	}

	replace := Range{
		Start: doc.OffsetToPosition(offset - len(cctx.Prefix)),
		End:   doc.OffsetToPosition(offset),
	}

	items := make([]CompletionItem, 0, len(suggestions))
	for i, sug := range suggestions {
		items = append(items, CompletionItem{
			Label:    sug.Label,
			Kind:     itemKind(sug.Kind),
			Detail:   sug.Detail,
			SortText: fmt.Sprintf("%04d", i),
			TextEdit: &TextEdit{Range: replace, NewText: sug.Label},
		})
	}
	return items, nil
}

func itemKind(k suggest.ItemKind) CompletionItemKind {
	switch k {
	case suggest.KindKeyword:
		return CompletionItemKindKeyword
	case suggest.KindEntity:
		return CompletionItemKindClass
	case suggest.KindAttribute:
		return CompletionItemKindField
	case suggest.KindTable:
		return CompletionItemKindModule
	case suggest.KindElement:
		return CompletionItemKindProperty
	default:
		return CompletionItemKindEnumMember
	}
}
