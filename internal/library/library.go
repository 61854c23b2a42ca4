package library

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/doctree"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidCFI = errors.New("invalid cfi")
	ErrUnresolved = errors.New("cfi does not resolve")
)

// Meta describes an ingested document.
type Meta struct {
	DocID       string      `json:"doc_id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Filename    string      `json:"filename"`
	ContentHash string      `json:"content_hash"`
	Base        cfi.Segment `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Summary is the listing form of an entry.
type Summary struct {
	Meta
	Base       string `json:"base"`
	Locations  int    `json:"locations"`
	Highlights int    `json:"highlights"`
}

// Library is a thread-safe registry of parsed documents keyed by user and
// document ID.
type Library struct {
	mu     sync.RWMutex
	docs   map[string]*Entry
	class  string
	ignore cfi.IgnoreFunc
	log    *slog.Logger
}

// New creates a Library whose highlights use class, which is also treated
// as ignorable markup when generating and resolving CFIs.
func New(class string, log *slog.Logger) *Library {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Library{
		docs:   make(map[string]*Entry),
		class:  class,
		ignore: doctree.IgnoreClass(class),
		log:    log,
	}
}

// Ignore returns the predicate used for injected highlight markup.
func (l *Library) Ignore() cfi.IgnoreFunc {
	return l.ignore
}

func key(userID, docID string) string {
	return userID + "/" + docID
}

// Put registers e, replacing any entry with the same user and document ID.
func (l *Library) Put(e *Entry) {
	e.class = l.class
	e.resolver = cfi.Resolver{Ignore: l.ignore, Log: l.log.With("doc_id", e.DocID)}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[key(e.UserID, e.DocID)] = e
}

// Get returns the entry or nil.
func (l *Library) Get(userID, docID string) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.docs[key(userID, docID)]
}

// Delete removes an entry and reports whether it existed.
func (l *Library) Delete(userID, docID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(userID, docID)
	if _, ok := l.docs[k]; !ok {
		return false
	}
	delete(l.docs, k)
	return true
}

// FindByHash returns the document ID of an entry of userID with the given
// content hash, or "".
func (l *Library) FindByHash(userID, hash string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.docs {
		if e.UserID == userID && e.ContentHash == hash {
			return e.DocID
		}
	}
	return ""
}

// List returns summaries of userID's documents, oldest first.
func (l *Library) List(userID string) []Summary {
	l.mu.RLock()
	var entries []*Entry
	for _, e := range l.docs {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	l.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary())
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DocID, b.DocID)
	})
	return out
}
