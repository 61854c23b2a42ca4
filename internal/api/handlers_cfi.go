package api

import (
	"net/http"

	"github.com/dgallion1/docanchor/internal/cfi"
)

// describe is the JSON view of a parsed CFI.
func describe(c cfi.CFI) map[string]any {
	return map[string]any{
		"cfi":      c.String(),
		"valid":    c.Valid(),
		"is_range": c.IsRange(),
		"model":    c,
	}
}

func (s *Server) handleCFIParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CFI string `json:"cfi"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	c := cfi.Parse(req.CFI)
	if !c.Valid() {
		jsonError(w, "invalid cfi", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, describe(c))
}

func (s *Server) handleCFICompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	a, b := cfi.Parse(req.A), cfi.Parse(req.B)
	if !a.Valid() || !b.Valid() {
		jsonError(w, "both a and b must be valid cfis", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": cfi.Compare(a, b)})
}

// handleCFISort orders CFIs in reading order. Invalid inputs are returned
// separately rather than sorted.
func (s *Server) handleCFISort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CFIs []string `json:"cfis"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var (
		valid   []cfi.CFI
		invalid = []string{}
	)
	for _, raw := range req.CFIs {
		c := cfi.Parse(raw)
		if !c.Valid() {
			invalid = append(invalid, raw)
			continue
		}
		valid = cfi.Insert(valid, c)
	}
	sorted := make([]string, len(valid))
	for i, c := range valid {
		sorted[i] = c.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"cfis": sorted, "invalid": invalid})
}

func (s *Server) handleCFICollapse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CFI     string `json:"cfi"`
		ToStart *bool  `json:"to_start"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	c := cfi.Parse(req.CFI)
	if !c.Valid() {
		jsonError(w, "invalid cfi", http.StatusUnprocessableEntity)
		return
	}
	toStart := req.ToStart == nil || *req.ToStart
	writeJSON(w, http.StatusOK, describe(c.Collapse(toStart)))
}
