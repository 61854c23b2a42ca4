package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/stats"
)

type anchorRequest struct {
	ID         string `json:"id"`
	XPath      string `json:"xpath"`
	Text       string `json:"text"`
	Offset     *int   `json:"offset"`
	Occurrence int    `json:"occurrence"`
}

// handleAnchor generates CFIs for an element id, an XPath selection or a
// text search. Exactly one selector must be given.
func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req anchorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	set := 0
	for _, v := range []string{req.ID, req.XPath, req.Text} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		jsonError(w, "exactly one of id, xpath or text is required", http.StatusBadRequest)
		return
	}
	if req.Offset != nil && *req.Offset < 0 {
		jsonError(w, "offset must not be negative", http.StatusBadRequest)
		return
	}

	var (
		cfis []cfi.CFI
		err  error
	)
	switch {
	case req.ID != "":
		var c cfi.CFI
		c, err = e.AnchorID(req.ID, req.Offset)
		cfis = []cfi.CFI{c}
	case req.XPath != "":
		cfis, err = e.AnchorXPath(req.XPath, req.Offset)
	default:
		cfis, err = e.AnchorText(req.Text, req.Occurrence)
	}
	if errors.Is(err, library.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := make([]string, len(cfis))
	for i, c := range cfis {
		out[i] = c.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": e.DocID, "cfis": out})
}

// handleResolve maps a CFI onto the document and records its latency and
// outcome.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("cfi")
	if raw == "" {
		jsonError(w, "cfi query parameter is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := e.Resolve(raw)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, library.ErrInvalidCFI):
		jsonError(w, "invalid cfi", http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrUnresolved):
		s.resolveStats.Record(elapsed, stats.Failed)
		jsonError(w, "cfi does not resolve in this document", http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	outcome := stats.Exact
	switch {
	case res.Partial:
		outcome = stats.Partial
	case res.Recovered:
		outcome = stats.Recovered
	}
	s.resolveStats.Record(elapsed, outcome)
	if outcome != stats.Exact {
		s.log.Debug("inexact resolve", "doc_id", e.DocID, "cfi", res.CFI, "outcome", outcome.String())
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": e.DocID, "highlights": e.Highlights()})
}

// handleHighlight wraps a range in ignorable markup.
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req struct {
		CFI string `json:"cfi"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := e.Highlight(req.CFI)
	switch {
	case errors.Is(err, library.ErrInvalidCFI):
		jsonError(w, "cfi must be a valid range", http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrUnresolved):
		jsonError(w, "cfi does not resolve in this document", http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   e.DocID,
		"cfi":      req.CFI,
		"wrappers": n,
	})
}
