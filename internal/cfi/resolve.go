package cfi

import "log/slog"

// Range is a resolved span of concrete tree positions. For a single
// position the end equals the start and Collapsed is set.
type Range struct {
	StartContainer Node
	StartOffset    int
	EndContainer   Node
	EndOffset      int
	Collapsed      bool

	// Recovered is set when an endpoint was re-derived by miss recovery.
	Recovered bool
	// Partial is set when an element step could not be resolved; the
	// endpoint is the deepest container reached, not the addressed one.
	Partial bool
}

// Resolver maps CFIs back onto a tree. The zero value resolves without an
// ignore predicate and logs nothing.
type Resolver struct {
	Ignore IgnoreFunc
	Log    *slog.Logger
}

// ToRange resolves c against root using a zero-config Resolver with ignore.
func ToRange(c CFI, root Node, ignore IgnoreFunc) (Range, bool) {
	return Resolver{Ignore: ignore}.ToRange(c, root)
}

type point struct {
	node      Node
	offset    int
	recovered bool
	partial   bool
}

// ToRange resolves c against root. It returns false only when c is not a
// valid location or no start container exists at all.
func (r Resolver) ToRange(c CFI, root Node) (Range, bool) {
	if !c.Valid() || root == nil {
		return Range{}, false
	}
	start, ok := r.resolvePoint(c.Start(), root)
	if !ok {
		if r.Log != nil {
			r.Log.Warn("no start container found", "cfi", c.String())
		}
		return Range{}, false
	}
	rng := Range{
		StartContainer: start.node,
		StartOffset:    start.offset,
		EndContainer:   start.node,
		EndOffset:      start.offset,
		Collapsed:      true,
		Recovered:      start.recovered,
		Partial:        start.partial,
	}
	if !c.IsRange() {
		return rng, true
	}
	end, ok := r.resolvePoint(c.End(), root)
	if !ok {
		return rng, true
	}
	rng.EndContainer = end.node
	rng.EndOffset = end.offset
	rng.Collapsed = end.node == start.node && end.offset == start.offset
	rng.Recovered = rng.Recovered || end.recovered
	rng.Partial = rng.Partial || end.partial
	return rng, true
}

func (r Resolver) resolvePoint(seg Segment, root Node) (point, bool) {
	container, consumed := WalkToNode(seg.Steps, root, r.Ignore)
	if container == nil {
		return point{}, false
	}
	off, _ := seg.Terminal.offset()
	n := len(seg.Steps)

	if consumed < n {
		if consumed == n-1 && seg.Steps[n-1].Kind == TextStep {
			return r.recover(seg.Steps, off, root), true
		}
		return point{node: container, offset: clampOffset(container, off), partial: true}, true
	}
	if r.fits(container, off) {
		return point{node: container, offset: off}, true
	}
	return r.recover(seg.Steps, off, root), true
}

func (r Resolver) recover(steps []Step, offset int, root Node) point {
	node, off, ok := FixMiss(steps, offset, root, r.Ignore)
	// A miss inside a run split by ignorable markup is not a recovery.
	return point{node: node, offset: off, recovered: !ok || !r.runIsWrapped(steps, root)}
}

// runIsWrapped reports whether the text run addressed by the final step
// contains an ignorable element.
func (r Resolver) runIsWrapped(steps []Step, root Node) bool {
	if r.Ignore == nil || len(steps) == 0 {
		return false
	}
	parent, _ := WalkToNode(steps[:len(steps)-1], root, r.Ignore)
	if parent == nil {
		return false
	}
	target := steps[len(steps)-1].Index
	children := parent.Children()
	for i, sl := range normalize(children, r.Ignore, true) {
		if sl.kind == TextStep && sl.index == target && r.Ignore.ignored(children[i]) {
			return true
		}
	}
	return false
}

// fits reports whether offset is a valid boundary inside container.
func (r Resolver) fits(container Node, offset int) bool {
	if offset < 0 {
		return false
	}
	switch container.Kind() {
	case TextNode:
		return offset <= container.TextLen()
	case ElementNode:
		return !r.Ignore.ignored(container) && offset <= len(container.Children())
	}
	return false
}

// WalkToNode descends from the document element of root along steps. It
// returns the deepest container reached and how many steps were consumed;
// a short count means the remaining steps could not be resolved.
func WalkToNode(steps []Step, root Node, ignore IgnoreFunc) (Node, int) {
	top := documentElement(root)
	if top == nil {
		return nil, 0
	}
	container := top
	for i, st := range steps {
		var next Node
		if st.Kind == ElementStep && st.ID != "" {
			next = findByID(top, st.ID)
		}
		if next == nil {
			next = childAt(container, st, ignore)
		}
		if next == nil {
			return container, i
		}
		container = next
	}
	return container, len(steps)
}

func childAt(container Node, st Step, ignore IgnoreFunc) Node {
	children := container.Children()
	for i, sl := range normalize(children, ignore, ignore != nil) {
		if sl.kind == st.Kind && sl.index == st.Index {
			return children[i]
		}
	}
	return nil
}

// FixMiss re-derives a container and offset for a final text step whose
// node was split, merged or wrapped since the CFI was generated. It sums
// the lengths of every child in the target's collapsed text run until the
// offset fits. ok is false when no child fits; the parent is then returned
// with the offset clamped to its bounds.
func FixMiss(steps []Step, offset int, root Node, ignore IgnoreFunc) (Node, int, bool) {
	if len(steps) == 0 {
		top := documentElement(root)
		if top == nil {
			return nil, 0, false
		}
		return top, clampOffset(top, offset), false
	}
	parent, _ := WalkToNode(steps[:len(steps)-1], root, ignore)
	if parent == nil {
		return nil, 0, false
	}
	target := steps[len(steps)-1].Index
	children := parent.Children()
	remaining := offset
	for i, sl := range normalize(children, ignore, true) {
		if sl.kind != TextStep || sl.index != target {
			continue
		}
		child := children[i]
		length := textLength(child)
		if remaining > length {
			remaining -= length
			continue
		}
		if child.Kind() == ElementNode {
			return descendText(child, remaining)
		}
		return child, remaining, true
	}
	return parent, clampOffset(parent, offset), false
}

// descendText finds the text node holding offset within an element.
func descendText(el Node, offset int) (Node, int, bool) {
	var found Node
	remaining := offset
	var walk func(Node) bool
	walk = func(n Node) bool {
		if n.Kind() == TextNode {
			if remaining <= n.TextLen() {
				found = n
				return true
			}
			remaining -= n.TextLen()
			return false
		}
		for _, c := range n.Children() {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if walk(el) {
		return found, remaining, true
	}
	return el, 0, true
}

func clampOffset(n Node, offset int) int {
	limit := 0
	switch n.Kind() {
	case TextNode:
		limit = n.TextLen()
	default:
		limit = len(n.Children())
	}
	return min(max(offset, 0), limit)
}
