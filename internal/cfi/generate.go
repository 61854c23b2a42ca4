package cfi

// Input is the union of values a CFI can be built from.
type Input interface {
	input()
}

// TextInput is a serialized CFI.
type TextInput string

// NodeInput is a single node, with an optional character offset.
type NodeInput struct {
	Node   Node
	Offset *int
}

// SpanInput is a pair of (container, offset) boundary points.
type SpanInput struct {
	StartNode   Node
	StartOffset int
	EndNode     Node
	EndOffset   int
}

func (TextInput) input() {}
func (NodeInput) input() {}
func (SpanInput) input() {}

// New builds a CFI from any Input. base and ignore are unused for TextInput.
func New(in Input, base Segment, ignore IgnoreFunc) CFI {
	switch v := in.(type) {
	case TextInput:
		return Parse(string(v))
	case NodeInput:
		return FromPosition(v.Node, v.Offset, base, ignore)
	case SpanInput:
		return FromSpan(v.StartNode, v.StartOffset, v.EndNode, v.EndOffset, base, ignore)
	}
	return CFI{SpinePos: -1}
}

// FromNode addresses a node without a character offset.
func FromNode(node Node, base Segment, ignore IgnoreFunc) CFI {
	return FromPosition(node, nil, base, ignore)
}

// FromPosition addresses node, or a character offset within it.
func FromPosition(node Node, offset *int, base Segment, ignore IgnoreFunc) CFI {
	return CFI{
		SpinePos: spinePos(base),
		Base:     base.clone(),
		Path:     PathTo(node, offset, ignore),
	}
}

// FromSpan addresses the range between two boundary points, factoring
// their shared leading steps into Path.
func FromSpan(startNode Node, startOffset int, endNode Node, endOffset int, base Segment, ignore IgnoreFunc) CFI {
	start := PathTo(startNode, &startOffset, ignore)
	end := PathTo(endNode, &endOffset, ignore)

	out := CFI{SpinePos: spinePos(base), Base: base.clone()}
	if start.Equal(end) {
		out.Path = start
		return out
	}

	common := 0
	for common < len(start.Steps) && common < len(end.Steps) && start.Steps[common].Equal(end.Steps[common]) {
		common++
	}
	// Both tails keep at least their final step so the terminals stay attached.
	common = min(common, len(start.Steps)-1, len(end.Steps)-1)
	common = max(common, 0)

	out.Path = Segment{Steps: append([]Step(nil), start.Steps[:common]...)}
	out.Range = &Span{
		Start: Segment{Steps: append([]Step(nil), start.Steps[common:]...), Terminal: start.Terminal},
		End:   Segment{Steps: append([]Step(nil), end.Steps[common:]...), Terminal: end.Terminal},
	}
	return out
}

// PathTo builds the segment leading from the document element down to
// node. With an offset the segment always ends on a text step; negative
// offsets are clamped to 0.
func PathTo(node Node, offset *int, ignore IgnoreFunc) Segment {
	var seg Segment
	if node == nil {
		return seg
	}

	cur := node
	asText := node.Kind() == TextNode
	if asText && ignore != nil {
		cur = outermostWrapper(node, ignore)
	}

	var reversed []Step
	for first := true; cur != nil; first = false {
		parent := cur.Parent()
		if parent == nil || parent.Kind() == DocumentNode {
			break
		}
		switch {
		case first && asText:
			reversed = append(reversed, Step{Kind: TextStep, Index: slotOf(cur, ignore).index})
		case ignore.ignored(cur):
			// injected markup contributes no step
		default:
			sl := slotOf(cur, ignore)
			reversed = append(reversed, Step{Kind: sl.kind, Index: sl.index, ID: cur.ID()})
		}
		cur = parent
	}
	seg.Steps = make([]Step, 0, len(reversed)+1)
	for i := len(reversed) - 1; i >= 0; i-- {
		seg.Steps = append(seg.Steps, reversed[i])
	}

	if offset != nil {
		off := max(*offset, 0)
		if asText && ignore != nil {
			off = patchOffset(node, off, ignore)
		}
		seg.Terminal = OffsetTerminal(off)
		if n := len(seg.Steps); n == 0 || seg.Steps[n-1].Kind != TextStep {
			seg.Steps = append(seg.Steps, Step{Kind: TextStep, Index: 0})
		}
	}
	return seg
}

// slot is a child's kind and rank after normalization.
type slot struct {
	kind  StepKind
	index int
}

// normalize ranks children by kind. With collapse set, runs of adjacent
// text-like children (text nodes and ignorable elements) share one text
// index and ignorable elements never advance the element counter.
func normalize(children []Node, ignore IgnoreFunc, collapse bool) []slot {
	out := make([]slot, len(children))
	elem, text := -1, -1
	prevText := false
	for i, c := range children {
		isText := c.Kind() == TextNode || ignore.ignored(c)
		if isText {
			if !collapse || !prevText {
				text++
			}
			out[i] = slot{kind: TextStep, index: text}
		} else {
			elem++
			out[i] = slot{kind: ElementStep, index: elem}
		}
		prevText = isText
	}
	return out
}

func slotOf(n Node, ignore IgnoreFunc) slot {
	children := n.Parent().Children()
	i := indexOf(children, n)
	if i < 0 {
		return slot{kind: kindOf(n), index: 0}
	}
	return normalize(children, ignore, ignore != nil)[i]
}

func kindOf(n Node) StepKind {
	if n.Kind() == TextNode {
		return TextStep
	}
	return ElementStep
}

// outermostWrapper climbs from a text node through ignorable ancestors.
func outermostWrapper(n Node, ignore IgnoreFunc) Node {
	for p := n.Parent(); p != nil && ignore.ignored(p); p = p.Parent() {
		n = p
	}
	return n
}

// patchOffset re-bases an offset so it counts from the start of the
// collapsed text run, as if no ignorable markup had been inserted.
func patchOffset(node Node, offset int, ignore IgnoreFunc) int {
	total := offset
	n := node
	for p := n.Parent(); p != nil && ignore.ignored(p); p = p.Parent() {
		siblings := p.Children()
		for _, s := range siblings[:max(indexOf(siblings, n), 0)] {
			total += textLength(s)
		}
		n = p
	}
	parent := n.Parent()
	if parent == nil {
		return total
	}
	siblings := parent.Children()
	for j := indexOf(siblings, n) - 1; j >= 0; j-- {
		s := siblings[j]
		if s.Kind() != TextNode && !ignore.ignored(s) {
			break
		}
		total += textLength(s)
	}
	return total
}
