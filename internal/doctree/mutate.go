package doctree

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docanchor/internal/cfi"
)

func (n *Node) nextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	sibs := n.parent.children
	if i := slices.Index(sibs, n); i >= 0 && i+1 < len(sibs) {
		return sibs[i+1]
	}
	return nil
}

// SplitText breaks a text node at a character offset. The tail becomes
// the next sibling and is returned.
func SplitText(t *Node, offset int) (*Node, error) {
	if t.kind != cfi.TextNode {
		return nil, fmt.Errorf("split text: node is not text")
	}
	if offset < 0 || offset > t.TextLen() {
		return nil, fmt.Errorf("split text: offset %d outside 0-%d", offset, t.TextLen())
	}
	i := runeIndex(t.Data, offset)
	tail := NewText(t.Data[i:])
	t.Data = t.Data[:i]
	if t.parent != nil {
		t.parent.InsertBefore(tail, t.nextSibling())
	}
	return tail, nil
}

// WrapText moves characters [start, end) of a text node into wrapper,
// which takes their place in the tree.
func WrapText(t *Node, start, end int, wrapper *Node) error {
	if t.kind != cfi.TextNode {
		return fmt.Errorf("wrap text: node is not text")
	}
	if start < 0 || end < start || end > t.TextLen() {
		return fmt.Errorf("wrap text: range %d-%d outside 0-%d", start, end, t.TextLen())
	}
	if t.parent == nil {
		return fmt.Errorf("wrap text: node is detached")
	}
	mid := t
	if start > 0 {
		var err error
		if mid, err = SplitText(t, start); err != nil {
			return fmt.Errorf("wrap text: %w", err)
		}
	}
	if end-start < mid.TextLen() {
		if _, err := SplitText(mid, end-start); err != nil {
			return fmt.Errorf("wrap text: %w", err)
		}
	}
	mid.parent.InsertBefore(wrapper, mid)
	wrapper.AppendChild(mid)
	return nil
}

// Unwrap replaces an element with its children.
func Unwrap(el *Node) {
	p := el.parent
	if p == nil {
		return
	}
	for _, c := range slices.Clone(el.children) {
		p.InsertBefore(c, el)
	}
	el.Remove()
}

// Normalize merges adjacent text nodes and drops empty ones below n.
func Normalize(n *Node) {
	var out []*Node
	for _, c := range n.children {
		if c.kind == cfi.TextNode {
			if c.Data == "" {
				c.parent = nil
				continue
			}
			if k := len(out); k > 0 && out[k-1].kind == cfi.TextNode {
				out[k-1].Data += c.Data
				c.parent = nil
				continue
			}
		} else {
			Normalize(c)
		}
		out = append(out, c)
	}
	n.children = out
}

// Highlight wraps the text of a resolved range in <span class=class>
// elements, one per text node it touches, and returns the wrappers.
func Highlight(root *Node, rng cfi.Range, class string) ([]*Node, error) {
	start, ok := Position(root, rng.StartContainer, rng.StartOffset)
	if !ok {
		return nil, fmt.Errorf("highlight: start container not in tree")
	}
	end, ok := Position(root, rng.EndContainer, rng.EndOffset)
	if !ok {
		return nil, fmt.Errorf("highlight: end container not in tree")
	}
	if end < start {
		start, end = end, start
	}

	type cut struct {
		node       *Node
		from, till int
	}
	var cuts []cut
	pos := 0
	for _, t := range root.TextNodes() {
		l := t.TextLen()
		from, till := max(start-pos, 0), min(end-pos, l)
		if from < till {
			cuts = append(cuts, cut{node: t, from: from, till: till})
		}
		pos += l
	}

	var wrappers []*Node
	for _, c := range cuts {
		w := NewElement("span", Attr{Name: "class", Value: class})
		if err := WrapText(c.node, c.from, c.till, w); err != nil {
			return wrappers, fmt.Errorf("highlight: %w", err)
		}
		wrappers = append(wrappers, w)
	}
	return wrappers, nil
}

// Position converts a boundary point into a character position within
// the text of root.
func Position(root *Node, container cfi.Node, offset int) (int, bool) {
	target, ok := container.(*Node)
	if !ok || target == nil {
		return 0, false
	}
	var stop *Node
	atEnd := false
	if target.kind != cfi.TextNode {
		if offset >= 0 && offset < len(target.children) {
			stop = target.children[offset]
		} else {
			stop, atEnd = target, true
		}
	}

	pos := 0
	var walk func(*Node) bool
	walk = func(n *Node) bool {
		if n == target && n.kind == cfi.TextNode {
			pos += min(max(offset, 0), n.TextLen())
			return true
		}
		if n == stop && !atEnd {
			return true
		}
		if n.kind == cfi.TextNode {
			pos += n.TextLen()
		}
		for _, c := range n.children {
			if walk(c) {
				return true
			}
		}
		return n == stop && atEnd
	}
	found := walk(root)
	return pos, found
}

// RangeText returns the characters covered by a resolved range.
func RangeText(root *Node, rng cfi.Range) string {
	start, ok := Position(root, rng.StartContainer, rng.StartOffset)
	if !ok {
		return ""
	}
	end, ok := Position(root, rng.EndContainer, rng.EndOffset)
	if !ok {
		return ""
	}
	return TextAt(root, start, end-start)
}

// TextAt returns up to n characters of root's text starting at pos.
func TextAt(root *Node, pos, n int) string {
	text := []rune(root.Text())
	if pos < 0 || pos > len(text) || n <= 0 {
		return ""
	}
	return string(text[pos:min(pos+n, len(text))])
}

// Match is an occurrence of a search string inside one text node.
type Match struct {
	Node   *Node
	Offset int // characters from the start of Node
	Length int
}

// FindText returns every occurrence of q in the text nodes below root.
// Occurrences spanning node boundaries are not reported.
func FindText(root *Node, q string) []Match {
	if q == "" {
		return nil
	}
	qlen := utf8.RuneCountInString(q)
	var out []Match
	for _, t := range root.TextNodes() {
		data := t.Data
		base := 0
		for {
			i := strings.Index(data[base:], q)
			if i < 0 {
				break
			}
			at := base + i
			out = append(out, Match{Node: t, Offset: utf8.RuneCountInString(t.Data[:at]), Length: qlen})
			base = at + len(q)
		}
	}
	return out
}
