package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentMeta is the persisted record of an ingested document.
type DocumentMeta struct {
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	Base        string    `json:"base"`
	Locations   int       `json:"locations"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutDocument writes a document's meta node and its hash index entry.
func (c *Client) PutDocument(ctx context.Context, userID string, m DocumentMeta) error {
	source := "docanchor:" + m.DocID
	err := c.PutNode(ctx, DocumentPrefix(userID, m.DocID)+"/meta", NodeRequest{
		Value:      m,
		MemoryType: "metacognitive",
		Salience:   0.5,
		Source:     source,
	})
	if err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	err = c.PutNode(ctx, HashKey(userID, m.ContentHash, m.DocID), NodeRequest{
		Value: map[string]any{
			"filename":   m.Filename,
			"created_at": m.CreatedAt.Format(time.RFC3339),
		},
		MemoryType: "metacognitive",
		Salience:   0.1,
		Source:     source,
	})
	if err != nil {
		return fmt.Errorf("hash index: %w", err)
	}
	return nil
}

// GetDocument returns a document's meta record, or nil if absent.
func (c *Client) GetDocument(ctx context.Context, userID, docID string) (*DocumentMeta, error) {
	node, err := c.GetNode(ctx, DocumentPrefix(userID, docID)+"/meta")
	if err != nil || node == nil {
		return nil, err
	}
	var m DocumentMeta
	if err := json.Unmarshal(node.Value, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &m, nil
}

// ListDocuments returns the meta records stored for userID.
func (c *Client) ListDocuments(ctx context.Context, userID string, limit int) ([]DocumentMeta, error) {
	nodes, err := c.ListChildren(ctx, UserPrefix(userID)+"/documents", limit)
	if err != nil {
		return nil, err
	}
	var out []DocumentMeta
	for _, n := range nodes {
		if !strings.HasSuffix(n.Key, "meta") {
			continue
		}
		var m DocumentMeta
		if err := json.Unmarshal(n.Value, &m); err != nil || m.DocID == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// FindByHash returns the ID of a stored document of userID with the given
// content hash, or "".
func (c *Client) FindByHash(ctx context.Context, userID, hash string) (string, error) {
	nodes, err := c.ListChildren(ctx, fmt.Sprintf("%s/hashes/%s", UserPrefix(userID), hash), 1)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", nil
	}
	return LastSegment(nodes[0].Key), nil
}

// DeleteDocument removes a document's nodes, its hash index entry and its
// bookmarks.
func (c *Client) DeleteDocument(ctx context.Context, userID, docID string) error {
	meta, err := c.GetDocument(ctx, userID, docID)
	if err != nil {
		return err
	}
	if err := c.DeleteNode(ctx, DocumentPrefix(userID, docID), true); err != nil {
		return err
	}
	if meta != nil && meta.ContentHash != "" {
		if err := c.DeleteNode(ctx, HashKey(userID, meta.ContentHash, docID), false); err != nil {
			return err
		}
	}
	return c.DeleteBookmarks(ctx, userID, docID)
}
