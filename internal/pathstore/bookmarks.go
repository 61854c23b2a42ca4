package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/ordered"
)

// Bookmark is a saved position in a document.
type Bookmark struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	CFI       string    `json:"cfi"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PutBookmark stores b for userID and links it to the document's meta
// node. IDs are time-ordered UUIDs assigned when b.ID is empty.
func (c *Client) PutBookmark(ctx context.Context, userID string, b Bookmark) (Bookmark, error) {
	parsed := cfi.Parse(b.CFI)
	if !parsed.Valid() {
		return b, fmt.Errorf("bookmark: invalid cfi %q", b.CFI)
	}
	b.CFI = parsed.String()
	if b.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return b, fmt.Errorf("bookmark id: %w", err)
		}
		b.ID = id.String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	key := BookmarkPrefix(userID, b.DocID) + "/" + b.ID
	err := c.PutNode(ctx, key, NodeRequest{
		Value:      b,
		MemoryType: "episodic",
		Salience:   0.3,
		Source:     "docanchor:" + b.DocID,
	})
	if err != nil {
		return b, err
	}
	err = c.PutLink(ctx, LinkRequest{
		From:    key,
		To:      DocumentPrefix(userID, b.DocID) + "/meta",
		Weight:  1,
		Summary: b.Label,
	})
	return b, err
}

type sortedBookmark struct {
	at  cfi.CFI
	key string
	b   Bookmark
}

// compareBookmarks orders by reading position, then by canonical form, so
// only structurally equal CFIs compare equal.
func compareBookmarks(a, b sortedBookmark) int {
	if c := cfi.Compare(a.at, b.at); c != 0 {
		return c
	}
	return strings.Compare(a.key, b.key)
}

// ListBookmarks returns userID's bookmarks in docID in reading order.
// Bookmarks with the same canonical CFI are listed once.
func (c *Client) ListBookmarks(ctx context.Context, userID, docID string) ([]Bookmark, error) {
	nodes, err := c.ListChildren(ctx, BookmarkPrefix(userID, docID), 0)
	if err != nil {
		return nil, err
	}
	var seq []sortedBookmark
	for _, n := range nodes {
		var b Bookmark
		if err := json.Unmarshal(n.Value, &b); err != nil {
			continue
		}
		item := sortedBookmark{at: cfi.Parse(b.CFI), b: b}
		if !item.at.Valid() {
			continue
		}
		item.key = item.at.String()
		if ordered.FindIndex(item, seq, compareBookmarks) >= 0 {
			continue
		}
		i := ordered.InsertIndex(item, seq, compareBookmarks)
		seq = append(seq, sortedBookmark{})
		copy(seq[i+1:], seq[i:])
		seq[i] = item
	}

	out := make([]Bookmark, len(seq))
	for i, s := range seq {
		out[i] = s.b
	}
	return out, nil
}

// DeleteBookmarks removes every bookmark of userID in docID.
func (c *Client) DeleteBookmarks(ctx context.Context, userID, docID string) error {
	return c.DeleteNode(ctx, BookmarkPrefix(userID, docID), true)
}
