package doctree

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docanchor/internal/cfi"
)

// Attr is an element attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is a document, element or text node. It implements cfi.Node.
type Node struct {
	kind     cfi.NodeKind
	Tag      string // element name
	Attrs    []Attr
	Data     string // text content of a text node
	parent   *Node
	children []*Node
}

// Document is a parsed document: a document node holding <html>.
type Document struct {
	Title string
	root  *Node
}

// NewDocument returns a document with an empty <head> and <body>.
func NewDocument(title string) *Document {
	root := &Node{kind: cfi.DocumentNode}
	html := root.AppendChild(NewElement("html"))
	head := html.AppendChild(NewElement("head"))
	if title != "" {
		head.AppendChild(NewElement("title")).AppendChild(NewText(title))
	}
	html.AppendChild(NewElement("body"))
	return &Document{Title: title, root: root}
}

// WrapDocument adopts an existing document node.
func WrapDocument(title string, root *Node) *Document {
	return &Document{Title: title, root: root}
}

// NewDocumentNode returns an empty document node for builders.
func NewDocumentNode() *Node {
	return &Node{kind: cfi.DocumentNode}
}

// Root returns the document node.
func (d *Document) Root() *Node { return d.root }

// Element returns the document element, normally <html>.
func (d *Document) Element() *Node {
	for _, c := range d.root.children {
		if c.kind == cfi.ElementNode {
			return c
		}
	}
	return nil
}

// Body returns <body>, or the document element when there is none.
func (d *Document) Body() *Node {
	el := d.Element()
	if el == nil {
		return nil
	}
	if body := el.FindFirst(func(n *Node) bool { return n.Tag == "body" }); body != nil {
		return body
	}
	return el
}

// NewElement returns a detached element.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{kind: cfi.ElementNode, Tag: tag, Attrs: attrs}
}

// NewText returns a detached text node.
func NewText(s string) *Node {
	return &Node{kind: cfi.TextNode, Data: s}
}

func (n *Node) Kind() cfi.NodeKind { return n.kind }

func (n *Node) Children() []cfi.Node {
	out := make([]cfi.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) Parent() cfi.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) ID() string { return n.Attr("id") }

// TextLen counts characters (runes) of a text node.
func (n *Node) TextLen() int {
	if n.kind != cfi.TextNode {
		return 0
	}
	return utf8.RuneCountInString(n.Data)
}

// NodeByID finds the element with the given id below n.
func (n *Node) NodeByID(id string) cfi.Node {
	found := n.FindFirst(func(c *Node) bool { return c.kind == cfi.ElementNode && c.ID() == id })
	if found == nil {
		return nil
	}
	return found
}

// ParentNode is Parent without the interface conversion.
func (n *Node) ParentNode() *Node { return n.parent }

// ChildNodes returns the children slice. Callers must not modify it.
func (n *Node) ChildNodes() []*Node { return n.children }

// Attr returns an attribute value or "".
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// HasClass reports whether the class attribute lists class.
func (n *Node) HasClass(class string) bool {
	if n.kind != cfi.ElementNode || class == "" {
		return false
	}
	return slices.Contains(strings.Fields(n.Attr("class")), class)
}

// Text returns the text of a text node or the concatenated text below an element.
func (n *Node) Text() string {
	if n.kind == cfi.TextNode {
		return n.Data
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.kind == cfi.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// AppendChild attaches child as the last child of n and returns child.
func (n *Node) AppendChild(child *Node) *Node {
	child.detach()
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// InsertBefore attaches child before ref, or last when ref is nil.
func (n *Node) InsertBefore(child, ref *Node) *Node {
	if ref == nil {
		return n.AppendChild(child)
	}
	child.detach()
	i := slices.Index(n.children, ref)
	if i < 0 {
		return n.AppendChild(child)
	}
	child.parent = n
	n.children = slices.Insert(n.children, i, child)
	return child
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	n.detach()
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	p := n.parent
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// FindFirst returns the first node in document order matching pred.
func (n *Node) FindFirst(pred func(*Node) bool) *Node {
	if pred(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.FindFirst(pred); found != nil {
			return found
		}
	}
	return nil
}

// TextNodes returns every text node below n in document order.
func (n *Node) TextNodes() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.kind == cfi.TextNode {
			out = append(out, c)
		}
		return true
	})
	return out
}

// IgnoreClass flags elements carrying class as ignorable markup.
func IgnoreClass(class string) cfi.IgnoreFunc {
	if class == "" {
		return nil
	}
	return func(n cfi.Node) bool {
		dn, ok := n.(*Node)
		return ok && dn.HasClass(class)
	}
}

// runeIndex converts a character offset into a byte index of s.
func runeIndex(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == offset {
			return pos
		}
		i++
	}
	return len(s)
}

// HeadingLevel returns 1-6 for h1-h6 elements and 0 otherwise.
func (n *Node) HeadingLevel() int {
	if n.kind != cfi.ElementNode || len(n.Tag) != 2 || n.Tag[0] != 'h' {
		return 0
	}
	if l := int(n.Tag[1] - '0'); l >= 1 && l <= 6 {
		return l
	}
	return 0
}
