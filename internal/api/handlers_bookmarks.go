package api

import (
	"net/http"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/pathstore"
)

type bookmarkRequest struct {
	UserID string `json:"user_id"`
	DocID  string `json:"doc_id"`
	CFI    string `json:"cfi"`
	Label  string `json:"label"`
}

func (s *Server) handlePutBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.DocID == "" {
		jsonError(w, "user_id and doc_id are required", http.StatusBadRequest)
		return
	}
	if !cfi.IsCFIString(req.CFI) || !cfi.Parse(req.CFI).Valid() {
		jsonError(w, "invalid cfi", http.StatusBadRequest)
		return
	}

	b, err := s.orchestrator.Pathstore().PutBookmark(r.Context(), req.UserID, pathstore.Bookmark{
		DocID: req.DocID,
		CFI:   req.CFI,
		Label: req.Label,
	})
	if err != nil {
		s.log.Error("bookmark write failed", "user_id", req.UserID, "doc_id", req.DocID, "error", err)
		jsonError(w, "failed to store bookmark: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		jsonError(w, "doc_id query parameter is required", http.StatusBadRequest)
		return
	}

	bookmarks, err := s.orchestrator.Pathstore().ListBookmarks(r.Context(), userID, docID)
	if err != nil {
		jsonError(w, "failed to list bookmarks: "+err.Error(), http.StatusBadGateway)
		return
	}
	if bookmarks == nil {
		bookmarks = []pathstore.Bookmark{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": bookmarks})
}
