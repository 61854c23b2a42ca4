package library

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/chunker"
	"github.com/dgallion1/docanchor/internal/doctree"
)

// excerptChars bounds the text returned with a resolved position.
const excerptChars = 200

// Entry is one parsed document with its location index. Reads share the
// lock; highlighting mutates the tree and takes it exclusively.
type Entry struct {
	Meta

	mu         sync.RWMutex
	doc        *doctree.Document
	index      *chunker.Index
	highlights []cfi.CFI
	class      string
	resolver   cfi.Resolver
}

// NewEntry wraps a parsed document and its location index.
func NewEntry(meta Meta, doc *doctree.Document, index *chunker.Index) *Entry {
	if index == nil {
		index = &chunker.Index{}
	}
	return &Entry{Meta: meta, doc: doc, index: index}
}

// Summary returns the listing form of e.
func (e *Entry) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Summary{
		Meta:       e.Meta,
		Base:       e.Base.String(),
		Locations:  e.index.Len(),
		Highlights: len(e.highlights),
	}
}

// Locations returns a copy of the location index entries.
func (e *Entry) Locations() []chunker.Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.index.Locations)
}

// Highlights returns the highlighted ranges in reading order.
func (e *Entry) Highlights() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.highlights))
	for i, c := range e.highlights {
		out[i] = c.String()
	}
	return out
}

// Endpoint is one resolved boundary point.
type Endpoint struct {
	XPath    string `json:"xpath"`
	Kind     string `json:"kind"`
	Offset   int    `json:"offset"`
	Position int    `json:"position"` // characters from the start of the document text
}

// Resolution is the concrete meaning of a CFI within an entry.
type Resolution struct {
	CFI        string   `json:"cfi"`
	Start      Endpoint `json:"start"`
	End        Endpoint `json:"end"`
	Collapsed  bool     `json:"collapsed"`
	Text       string   `json:"text"`
	Recovered  bool     `json:"recovered"`
	Partial    bool     `json:"partial"`
	Location   int      `json:"location"`
	Percentage float64  `json:"percentage"`
}

// Resolve maps a serialized CFI onto the document.
func (e *Entry) Resolve(s string) (Resolution, error) {
	c := cfi.Parse(s)
	if !c.Valid() {
		return Resolution{}, ErrInvalidCFI
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	rng, ok := e.resolver.ToRange(c, e.doc.Root())
	if !ok {
		return Resolution{}, ErrUnresolved
	}
	root := e.doc.Root()
	res := Resolution{
		CFI:        c.String(),
		Start:      endpoint(root, rng.StartContainer, rng.StartOffset),
		End:        endpoint(root, rng.EndContainer, rng.EndOffset),
		Collapsed:  rng.Collapsed,
		Recovered:  rng.Recovered,
		Partial:    rng.Partial,
	}
	res.Location = e.index.LocationAt(res.Start.Position)
	res.Percentage = e.index.PercentageAt(res.Start.Position)
	if rng.Collapsed {
		res.Text = doctree.TextAt(root, res.Start.Position, excerptChars)
	} else {
		res.Text = doctree.RangeText(root, rng)
	}
	return res, nil
}

func endpoint(root *doctree.Node, container cfi.Node, offset int) Endpoint {
	pos, _ := doctree.Position(root, container, offset)
	kind := "element"
	if container.Kind() == cfi.TextNode {
		kind = "text"
	}
	// Rendered without the ignore predicate so the expression matches the
	// tree as it stands, highlight wrappers included.
	path := cfi.PathTo(container, nil, nil)
	return Endpoint{
		XPath:    cfi.StepsToXPath(path.Steps),
		Kind:     kind,
		Offset:   offset,
		Position: pos,
	}
}

// AnchorID addresses the element with the given id, or a character
// offset inside it.
func (e *Entry) AnchorID(id string, offset *int) (cfi.CFI, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := e.doc.Root().NodeByID(id)
	if n == nil {
		return cfi.CFI{}, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	return cfi.FromPosition(n, offset, e.Base, e.resolver.Ignore), nil
}

// AnchorXPath addresses every node selected by expr, in reading order.
func (e *Entry) AnchorXPath(expr string, offset *int) ([]cfi.CFI, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	nodes, err := doctree.Select(e.doc.Root(), expr)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("xpath %q: %w", expr, ErrNotFound)
	}
	out := make([]cfi.CFI, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind() == cfi.DocumentNode {
			continue
		}
		out = append(out, cfi.FromPosition(n, offset, e.Base, e.resolver.Ignore))
	}
	cfi.Sort(out)
	return out, nil
}

// AnchorText addresses occurrences of q in the body text as ranges. A
// positive occurrence selects the nth match (1-based); zero returns all.
func (e *Entry) AnchorText(q string, occurrence int) ([]cfi.CFI, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("empty query")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	body := e.doc.Body()
	if body == nil {
		return nil, fmt.Errorf("text %q: %w", q, ErrNotFound)
	}
	matches := doctree.FindText(body, q)
	var out []cfi.CFI
	for i, m := range matches {
		if occurrence > 0 && i+1 != occurrence {
			continue
		}
		out = append(out, cfi.FromSpan(m.Node, m.Offset, m.Node, m.Offset+m.Length, e.Base, e.resolver.Ignore))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("text %q: %w", q, ErrNotFound)
	}
	cfi.Sort(out)
	return out, nil
}

// Highlight wraps the range addressed by s in ignorable markup and
// returns the number of wrapper elements inserted. Highlighting the same
// range twice is a no-op.
func (e *Entry) Highlight(s string) (int, error) {
	c := cfi.Parse(s)
	if !c.Valid() || !c.IsRange() {
		return 0, ErrInvalidCFI
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if slices.ContainsFunc(e.highlights, c.Equal) {
		return 0, nil
	}
	rng, ok := e.resolver.ToRange(c, e.doc.Root())
	if !ok {
		return 0, ErrUnresolved
	}
	wrappers, err := doctree.Highlight(e.doc.Root(), rng, e.class)
	if err != nil {
		return len(wrappers), err
	}
	e.highlights = cfi.Insert(e.highlights, c)
	return len(wrappers), nil
}
