package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/internal/suggest"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// maxBodyBytes bounds request bodies: a maximal document plus room for
// JSON escaping.
const maxBodyBytes = 2*core.DefaultMaxInputSize + 4096

// FetchXMLRequest is the body of POST /api/v1/fetchxml.
type FetchXMLRequest struct {
	SQL string `json:"sql"`
}

// SQLRequest is the body of POST /api/v1/sql.
type SQLRequest struct {
	FetchXML string `json:"fetchxml"`
}

// DocumentRequest is the body of POST /api/v1/validate and
// POST /api/v1/complete. Language is auto, sql or fetchxml.
type DocumentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ValidateResponse reports whether a document is free of errors.
type ValidateResponse struct {
	Valid       bool                 `json:"valid"`
	Language    string               `json:"language"`
	Diagnostics []convert.Diagnostic `json:"diagnostics"`
}

// CompleteResponse is the detected context and its suggestions.
type CompleteResponse struct {
	Kind    string             `json:"kind"`
	Context completion.Context `json:"context"`
	Items   []suggest.Item     `json:"items"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleToFetchXML(w http.ResponseWriter, r *http.Request) {
	var req FetchXMLRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.translate(w, r, req.SQL, completion.SQL)
}

func (s *Server) handleToSQL(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.translate(w, r, req.FetchXML, completion.FetchXML)
}

// translate answers 200 with the result, or 422 with the result when it
// carries errors.
func (s *Server) translate(w http.ResponseWriter, r *http.Request, text string, lang completion.Language) {
	res, err := convert.Translate(text, lang, s.transpile...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []convert.Diagnostic{}
	}

	status := http.StatusOK
	if res.HasErrors() {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, r, status, res)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang, ok := completion.ParseLanguage(req.Language)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown language %q", req.Language))
		return
	}

	res, err := convert.Validate(req.Text, lang, s.transpile...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := ValidateResponse{
		Valid:       !res.HasErrors(),
		Language:    res.From,
		Diagnostics: res.Diagnostics,
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []convert.Diagnostic{}
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang, ok := completion.ParseLanguage(req.Language)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown language %q", req.Language))
		return
	}
	if err := core.CheckInputSize(req.Text); err != nil {
		s.fail(w, r, err)
		return
	}

	c := completion.DetectAs(lang, req.Text, req.Offset)
	items, err := suggest.Suggest(r.Context(), s.metadata, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []suggest.Item{}
	}
	s.writeJSON(w, r, http.StatusOK, CompleteResponse{Kind: c.Kind.String(), Context: c, Items: items})
}

// handleEvents streams preview events as server-sent events, starting
// with the latest event of every watched file.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, ev := range s.hub.Snapshot() {
		if err := writeEvent(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub:
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: preview\ndata: %s\n\n", data)
	return err
}

// decode reads a JSON body into v, answering 400 or 413 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// fail maps an error from the use case to a response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrInputTooLarge) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	s.writeError(w, r, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, ErrorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func (s *Server) writeJSON(w http.ResponseWriter, _ *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
