package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docanchor/internal/library"
)

// requireUser reads the user_id query parameter.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

// entry looks up the document named in the URL for the requesting user.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*library.Entry, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	e := s.library.Get(userID, chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not loaded", http.StatusNotFound)
		return nil, false
	}
	return e, true
}

// handleListDocuments lists a user's loaded documents, plus documents
// persisted by earlier runs that are not loaded.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	loaded := s.library.List(userID)
	seen := make(map[string]bool, len(loaded))
	for _, d := range loaded {
		seen[d.DocID] = true
	}

	stored, err := s.orchestrator.Pathstore().ListDocuments(r.Context(), userID, 1000)
	if err != nil {
		s.log.Warn("list stored documents failed", "user_id", userID, "error", err)
	}
	var unloaded []any
	for _, m := range stored {
		if !seen[m.DocID] {
			unloaded = append(unloaded, m)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": loaded,
		"stored":    unloaded,
	})
}

// handleDeleteDocument drops a document from memory and pathstore.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docID := chi.URLParam(r, "docID")

	unloaded := s.library.Delete(userID, docID)
	if err := s.orchestrator.Pathstore().DeleteDocument(r.Context(), userID, docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   docID,
		"unloaded": unloaded,
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	locs := e.Locations()
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":    e.DocID,
		"count":     len(locs),
		"locations": locs,
	})
}
