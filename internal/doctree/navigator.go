package doctree

import (
	"fmt"
	"slices"

	"github.com/antchfx/xpath"
	"github.com/dgallion1/docanchor/internal/cfi"
)

// Navigator walks a doctree for XPath evaluation.
type Navigator struct {
	root, curr *Node
	attr       int
}

var _ xpath.NodeNavigator = (*Navigator)(nil)

// NewNavigator returns a navigator positioned at top.
func NewNavigator(top *Node) *Navigator {
	return &Navigator{root: top, curr: top, attr: -1}
}

// Current returns the node the navigator is positioned on.
func (x *Navigator) Current() *Node {
	return x.curr
}

func (x *Navigator) NodeType() xpath.NodeType {
	switch x.curr.kind {
	case cfi.DocumentNode:
		return xpath.RootNode
	case cfi.TextNode:
		return xpath.TextNode
	}
	if x.attr != -1 {
		return xpath.AttributeNode
	}
	return xpath.ElementNode
}

func (x *Navigator) LocalName() string {
	if x.attr != -1 {
		return x.curr.Attrs[x.attr].Name
	}
	return x.curr.Tag
}

func (x *Navigator) Prefix() string {
	return ""
}

func (x *Navigator) Value() string {
	if x.attr != -1 {
		return x.curr.Attrs[x.attr].Value
	}
	return x.curr.Text()
}

func (x *Navigator) Copy() xpath.NodeNavigator {
	n := *x
	return &n
}

func (x *Navigator) MoveToRoot() {
	x.curr = x.root
	x.attr = -1
}

func (x *Navigator) MoveToParent() bool {
	if x.attr != -1 {
		x.attr = -1
		return true
	}
	if x.curr == x.root || x.curr.parent == nil {
		return false
	}
	x.curr = x.curr.parent
	return true
}

func (x *Navigator) MoveToNextAttribute() bool {
	if x.curr.kind != cfi.ElementNode || x.attr >= len(x.curr.Attrs)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *Navigator) MoveToChild() bool {
	if x.attr != -1 || len(x.curr.children) == 0 {
		return false
	}
	x.curr = x.curr.children[0]
	return true
}

func (x *Navigator) MoveToFirst() bool {
	if x.attr != -1 || x.curr == x.root || x.curr.parent == nil {
		return false
	}
	first := x.curr.parent.children[0]
	if first == x.curr {
		return false
	}
	x.curr = first
	return true
}

func (x *Navigator) MoveToNext() bool {
	if x.attr != -1 || x.curr == x.root {
		return false
	}
	next := x.curr.nextSibling()
	if next == nil {
		return false
	}
	x.curr = next
	return true
}

func (x *Navigator) MoveToPrevious() bool {
	if x.attr != -1 || x.curr == x.root || x.curr.parent == nil {
		return false
	}
	sibs := x.curr.parent.children
	i := slices.Index(sibs, x.curr)
	if i <= 0 {
		return false
	}
	x.curr = sibs[i-1]
	return true
}

func (x *Navigator) MoveTo(other xpath.NodeNavigator) bool {
	node, ok := other.(*Navigator)
	if !ok || node.root != x.root {
		return false
	}
	x.curr = node.curr
	x.attr = node.attr
	return true
}

// Select evaluates an XPath expression from top and returns the matched
// nodes. Attribute matches yield their element.
func Select(top *Node, expr string) ([]*Node, error) {
	exp, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath: %w", err)
	}
	var out []*Node
	iter := exp.Select(NewNavigator(top))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*Navigator)
		if !ok {
			continue
		}
		out = append(out, nav.curr)
	}
	return out, nil
}
