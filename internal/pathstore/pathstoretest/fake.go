// Package pathstoretest provides an in-memory pathstore server for tests.
package pathstoretest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docanchor/internal/pathstore"
)

// Server is a fake pathstore backed by a map.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nodes    map[string]json.RawMessage
	links    []pathstore.LinkRequest
	failures []int
	puts     int
}

// New starts a fake server. Close it when done.
func New() *Server {
	s := &Server{nodes: make(map[string]json.RawMessage)}
	r := chi.NewRouter()
	r.Put("/kv/*", s.put)
	r.Get("/kv/*", s.get)
	r.Delete("/kv/*", s.delete)
	r.Put("/links", s.putLink)
	s.Server = httptest.NewServer(s.failing(r))
	return s
}

// Client returns a pathstore client pointed at s.
func (s *Server) Client() *pathstore.Client {
	return pathstore.NewClient(s.URL, "test-key")
}

// FailNext makes the next len(statuses) requests answer with the given
// status codes, in order.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// Keys returns every stored key in sorted order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Value returns the raw value stored at key.
func (s *Server) Value(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.nodes[key]
	return v, ok
}

// Links returns the recorded links.
func (s *Server) Links() []pathstore.LinkRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.links)
}

// Puts returns the number of successful node writes.
func (s *Server) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *Server) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.nodes[chi.URLParam(r, "*")] = req.Value
	s.puts++
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	s.mu.Lock()
	defer s.mu.Unlock()

	if prefix, ok := strings.CutSuffix(key, "/*"); ok {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var keys []string
		for k := range s.nodes {
			if strings.HasPrefix(k, prefix+"/") {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		if limit > 0 && len(keys) > limit {
			keys = keys[:limit]
		}
		nodes := make([]pathstore.NodeResponse, 0, len(keys))
		for _, k := range keys {
			nodes = append(nodes, pathstore.NodeResponse{Key: k, Value: s.nodes[k]})
		}
		writeJSON(w, map[string]any{"nodes": nodes})
		return
	}

	v, ok := s.nodes[key]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, pathstore.NodeResponse{Key: key, Value: v})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	recursive := r.URL.Query().Get("children") == "true"
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for k := range s.nodes {
		if k == key || (recursive && strings.HasPrefix(k, key+"/")) {
			delete(s.nodes, k)
			found = true
		}
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putLink(w http.ResponseWriter, r *http.Request) {
	var req pathstore.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.links = append(s.links, req)
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
