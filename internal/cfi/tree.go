package cfi

// NodeKind classifies a node in the addressed tree.
type NodeKind int

const (
	DocumentNode NodeKind = iota
	ElementNode
	TextNode
)

// Node is the read-only view of a document tree that generation and
// resolution walk. Implementations must not be mutated while a call that
// received them is running; nothing here takes locks.
type Node interface {
	Kind() NodeKind
	// Children returns element and text children in document order.
	Children() []Node
	// Parent returns nil above the root.
	Parent() Node
	ID() string
	// TextLen is the character length of a text node and 0 for elements.
	TextLen() int
}

// IDLookup is implemented by trees that index nodes by identifier.
type IDLookup interface {
	NodeByID(id string) Node
}

// IgnoreFunc reports whether a node is injected markup that must not
// perturb addressing (highlight wrappers and the like).
type IgnoreFunc func(Node) bool

func (f IgnoreFunc) ignored(n Node) bool {
	return f != nil && n != nil && n.Kind() == ElementNode && f(n)
}

// textLength returns the length of all text below n.
func textLength(n Node) int {
	if n.Kind() == TextNode {
		return n.TextLen()
	}
	total := 0
	for _, c := range n.Children() {
		total += textLength(c)
	}
	return total
}

func indexOf(children []Node, n Node) int {
	for i, c := range children {
		if c == n {
			return i
		}
	}
	return -1
}

// documentElement returns the element resolution starts from.
func documentElement(root Node) Node {
	if root == nil || root.Kind() != DocumentNode {
		return root
	}
	for _, c := range root.Children() {
		if c.Kind() == ElementNode {
			return c
		}
	}
	return nil
}

func findByID(root Node, id string) Node {
	if l, ok := root.(IDLookup); ok {
		return l.NodeByID(id)
	}
	if top := root.Parent(); top != nil {
		if l, ok := top.(IDLookup); ok {
			return l.NodeByID(id)
		}
	}
	var walk func(Node) Node
	walk = func(n Node) Node {
		if n.Kind() == ElementNode && n.ID() == id {
			return n
		}
		for _, c := range n.Children() {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(root)
}
