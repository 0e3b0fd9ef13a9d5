package lsp

import (
	"encoding/json"
)

// MethodPreview is the custom request returning a document translated to
// the other syntax, for editors that show a live side-by-side preview.
const MethodPreview = "fetchsql/preview"

func (s *Server) handlePreview(msg *JSONRPCMessage) error {
	var params PreviewParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{
			Code:    codeInvalidParams,
			Message: "document is not open: " + params.TextDocument.URI,
		})
		return nil
	}

	res, diagnostics := s.translate(doc)
	if res == nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{
			Code:    codeInternalError,
			Message: diagnostics[0].Message,
			Data:    diagnostics,
		})
		return nil
	}

	s.sendResponse(msg.ID, &PreviewResult{
		URI:         doc.URI,
		Version:     doc.Version,
		From:        res.From,
		To:          res.To,
		Output:      res.Output,
		Diagnostics: diagnostics,
	}, nil)
	return nil
}
