package cfi

import "strings"

const (
	prefix = "epubcfi("
	suffix = ")"
)

// Span holds the divergent tails of a range below the shared Path.
type Span struct {
	Start Segment `json:"start"`
	End   Segment `json:"end"`
}

// CFI is a parsed or generated fragment identifier. Range is nil for a
// single position, in which case Path.Terminal carries the offset.
type CFI struct {
	SpinePos int     `json:"spine_pos"`
	Base     Segment `json:"base"`
	Path     Segment `json:"path"`
	Range    *Span   `json:"range,omitempty"`
}

// IsRange reports whether c addresses a span.
func (c CFI) IsRange() bool {
	return c.Range != nil
}

// Valid is false for values that failed to parse; such values address nothing.
func (c CFI) Valid() bool {
	return c.SpinePos >= 0
}

// Start returns the full steps and terminal of the first (or only) point.
func (c CFI) Start() Segment {
	if c.Range == nil {
		return c.Path.clone()
	}
	return join(c.Path, c.Range.Start)
}

// End returns the full steps and terminal of the last point.
func (c CFI) End() Segment {
	if c.Range == nil {
		return c.Path.clone()
	}
	return join(c.Path, c.Range.End)
}

func join(path, tail Segment) Segment {
	steps := make([]Step, 0, len(path.Steps)+len(tail.Steps))
	steps = append(steps, path.Steps...)
	steps = append(steps, tail.Steps...)
	out := Segment{Steps: steps}
	if tail.Terminal != nil {
		t := *tail.Terminal
		out.Terminal = &t
	}
	return out
}

// Collapse folds a range into the position of its start or end.
// Non-range values are returned unchanged.
func (c CFI) Collapse(toStart bool) CFI {
	if c.Range == nil {
		return c
	}
	out := CFI{SpinePos: c.SpinePos, Base: c.Base.clone()}
	if toStart {
		out.Path = c.Start()
	} else {
		out.Path = c.End()
	}
	return out
}

// Equal reports structural equality.
func (c CFI) Equal(o CFI) bool {
	if c.SpinePos != o.SpinePos || !c.Base.Equal(o.Base) || !c.Path.Equal(o.Path) {
		return false
	}
	if (c.Range == nil) != (o.Range == nil) {
		return false
	}
	if c.Range == nil {
		return true
	}
	return c.Range.Start.Equal(o.Range.Start) && c.Range.End.Equal(o.Range.End)
}

// String serializes c in canonical form.
func (c CFI) String() string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(c.Base.String())
	b.WriteByte('!')
	b.WriteString(c.Path.String())
	if c.Range != nil {
		b.WriteByte(',')
		b.WriteString(c.Range.Start.String())
		b.WriteByte(',')
		b.WriteString(c.Range.End.String())
	}
	b.WriteString(suffix)
	return b.String()
}

// IsCFIString reports whether s carries the epubcfi(...) wrapper.
func IsCFIString(s string) bool {
	return strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix)
}

// Parse reads a CFI string. Malformed input yields a value with
// SpinePos == -1 rather than an error.
func Parse(s string) CFI {
	invalid := CFI{SpinePos: -1}
	s = strings.TrimSpace(s)
	if !IsCFIString(s) {
		return invalid
	}
	body := s[len(prefix) : len(s)-len(suffix)]

	chapter, rest, _ := cutTop(body, '!')
	out := CFI{Base: parseSegment(chapter)}
	if len(out.Base.Steps) < 2 {
		return invalid
	}
	out.SpinePos = out.Base.Steps[1].Index

	parts := splitTop(rest, ',')
	if len(parts) == 3 {
		out.Path = parseSegment(parts[0])
		out.Path.Terminal = nil
		return withRange(out, parseSegment(parts[1]), parseSegment(parts[2]))
	}
	out.Path = parseSegment(rest)
	return out
}

// withRange attaches start/end tails, folding equal endpoints into a single position.
func withRange(c CFI, start, end Segment) CFI {
	if start.Equal(end) {
		c.Path = join(c.Path, start)
		c.Range = nil
		return c
	}
	c.Range = &Span{Start: start, End: end}
	return c
}

// ChapterBase builds the base segment for the pos-th item of the reading
// order, where spineNodeIndex is the spine element's position in the package.
func ChapterBase(spineNodeIndex, pos int, idref string) Segment {
	return Segment{Steps: []Step{
		{Kind: ElementStep, Index: spineNodeIndex},
		{Kind: ElementStep, Index: pos, ID: idref},
	}}
}

func spinePos(base Segment) int {
	if len(base.Steps) < 2 {
		return -1
	}
	return base.Steps[1].Index
}
