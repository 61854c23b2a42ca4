package chunker

import (
	"sort"
	"strings"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/doctree"
	"github.com/dgallion1/docanchor/internal/ordered"
)

// DefaultChars is the default number of characters per location.
const DefaultChars = 150

// Config controls location indexing.
type Config struct {
	Chars  int            // Characters per location.
	Ignore cfi.IgnoreFunc // Markup to see through when generating CFIs.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Chars: DefaultChars}
}

// Location is one entry of a location index: a CFI range covering a run
// of Chars characters.
type Location struct {
	Index      int      `json:"index"`
	CFI        string   `json:"cfi"`
	Text       string   `json:"text"`
	Breadcrumb []string `json:"breadcrumb,omitempty"` // Heading hierarchy, e.g. ["Part One", "Chapter 2"]
	Tokens     int      `json:"tokens"`
	Start      int      `json:"start"` // characters of document text before the location
}

// Index maps a document onto evenly sized locations.
type Index struct {
	Chars     int
	Locations []Location
	starts    []cfi.CFI
}

type point struct {
	node   *doctree.Node
	offset int
}

type heading struct {
	level int
	title string
}

// Build walks the text of doc in document order and cuts it into
// locations of cfg.Chars characters. Whitespace-only text nodes are
// skipped; the final location may be shorter.
func Build(doc *doctree.Document, base cfi.Segment, cfg Config) *Index {
	if cfg.Chars <= 0 {
		cfg.Chars = DefaultChars
	}
	idx := &Index{Chars: cfg.Chars}
	body := doc.Body()
	if body == nil {
		return idx
	}

	// seen counts every text character in document order, matching
	// doctree.Position from the document root.
	seen, _ := doctree.Position(doc.Root(), body, 0)

	var (
		stack    []heading
		crumb    []string
		start    point
		startPos int
		last     point
		text     strings.Builder
		count    int
		open     bool
	)

	emit := func(end point) {
		c := cfi.FromSpan(start.node, start.offset, end.node, end.offset, base, cfg.Ignore)
		t := text.String()
		idx.Locations = append(idx.Locations, Location{
			Index:      len(idx.Locations),
			CFI:        c.String(),
			Text:       t,
			Breadcrumb: crumb,
			Tokens:     EstimateTokens(t),
			Start:      startPos,
		})
		idx.starts = append(idx.starts, c.Collapse(true))
		text.Reset()
		count = 0
		open = false
	}

	body.Walk(func(n *doctree.Node) bool {
		if level := n.HeadingLevel(); level > 0 {
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			if title := strings.TrimSpace(n.Text()); title != "" {
				stack = append(stack, heading{level: level, title: title})
			}
			return true
		}
		if n.Kind() != cfi.TextNode {
			return true
		}
		if strings.TrimSpace(n.Data) == "" {
			seen += n.TextLen()
			return true
		}

		runes := []rune(n.Data)
		pos := 0
		for pos < len(runes) {
			if !open {
				start, open = point{node: n, offset: pos}, true
				startPos = seen + pos
				crumb = breadcrumb(stack)
			}
			take := min(cfg.Chars-count, len(runes)-pos)
			text.WriteString(string(runes[pos : pos+take]))
			count += take
			pos += take
			if count == cfg.Chars {
				emit(point{node: n, offset: pos})
			}
		}
		last = point{node: n, offset: len(runes)}
		seen += len(runes)
		return true
	})
	if open && count > 0 {
		emit(last)
	}
	return idx
}

func breadcrumb(stack []heading) []string {
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, h := range stack {
		out[i] = h.title
	}
	return out
}

// Len returns the number of locations.
func (x *Index) Len() int {
	return len(x.Locations)
}

// LocationOf returns the index of the location containing c, or -1 for an
// empty index. Ranges are located by their start. The rank follows
// cfi.Compare, which ignores step kinds: where an element and a text node
// share a sibling index it can differ from document order. LocationAt is
// exact when c has been resolved to a character position.
func (x *Index) LocationOf(c cfi.CFI) int {
	if len(x.starts) == 0 {
		return -1
	}
	target := c.Collapse(true)
	i := ordered.InsertIndex(target, x.starts, cfi.Compare)
	if i < len(x.starts) && cfi.Compare(x.starts[i], target) == 0 {
		return i
	}
	return max(i-1, 0)
}

// Percentage returns how far through the document c is, from 0 to 1.
func (x *Index) Percentage(c cfi.CFI) float64 {
	return x.fraction(x.LocationOf(c))
}

// LocationAt returns the index of the location containing the character
// position pos of the document text, or -1 for an empty index.
func (x *Index) LocationAt(pos int) int {
	if len(x.Locations) == 0 {
		return -1
	}
	i := sort.Search(len(x.Locations), func(i int) bool {
		return x.Locations[i].Start > pos
	})
	return max(i-1, 0)
}

// PercentageAt is Percentage for a character position.
func (x *Index) PercentageAt(pos int) float64 {
	return x.fraction(x.LocationAt(pos))
}

func (x *Index) fraction(loc int) float64 {
	if loc <= 0 || len(x.Locations) < 2 {
		return 0
	}
	return float64(loc) / float64(len(x.Locations)-1)
}

// CFIAt returns the range CFI of location i.
func (x *Index) CFIAt(i int) (string, bool) {
	if i < 0 || i >= len(x.Locations) {
		return "", false
	}
	return x.Locations[i].CFI, true
}
