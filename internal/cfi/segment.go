package cfi

import (
	"strconv"
	"strings"
)

// Terminal is the tail of a segment after ':'. Opaque holds temporal or
// spatial text that is carried through but never interpreted.
type Terminal struct {
	Offset    int    `json:"offset"`
	HasOffset bool   `json:"has_offset"`
	Opaque    string `json:"opaque,omitempty"`
	Assertion string `json:"assertion,omitempty"`
}

// OffsetTerminal returns a terminal carrying only a character offset.
func OffsetTerminal(offset int) *Terminal {
	return &Terminal{Offset: offset, HasOffset: true}
}

func (t *Terminal) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	if t.HasOffset {
		b.WriteString(strconv.Itoa(t.Offset))
	}
	b.WriteString(t.Opaque)
	if t.Assertion != "" {
		b.WriteByte('[')
		b.WriteString(t.Assertion)
		b.WriteByte(']')
	}
	return b.String()
}

func (t *Terminal) empty() bool {
	return t == nil || (!t.HasOffset && t.Opaque == "" && t.Assertion == "")
}

// offset returns the character offset, if any.
func (t *Terminal) offset() (int, bool) {
	if t == nil || !t.HasOffset {
		return 0, false
	}
	return t.Offset, true
}

func terminalsEqual(a, b *Terminal) bool {
	if a.empty() || b.empty() {
		return a.empty() && b.empty()
	}
	return *a == *b
}

// Segment is a run of steps plus an optional terminal.
type Segment struct {
	Steps    []Step    `json:"steps"`
	Terminal *Terminal `json:"terminal,omitempty"`
}

// String renders the steps with a leading '/' and the terminal after ':'.
func (s Segment) String() string {
	var b strings.Builder
	for _, st := range s.Steps {
		b.WriteByte('/')
		b.WriteString(st.String())
	}
	if !s.Terminal.empty() {
		b.WriteByte(':')
		b.WriteString(s.Terminal.String())
	}
	return b.String()
}

// Equal reports structural equality of steps and terminal.
func (s Segment) Equal(o Segment) bool {
	if len(s.Steps) != len(o.Steps) {
		return false
	}
	for i := range s.Steps {
		if !s.Steps[i].Equal(o.Steps[i]) {
			return false
		}
	}
	return terminalsEqual(s.Terminal, o.Terminal)
}

func (s Segment) clone() Segment {
	out := Segment{Steps: append([]Step(nil), s.Steps...)}
	if s.Terminal != nil {
		t := *s.Terminal
		out.Terminal = &t
	}
	return out
}

// parseSegment reads "/n[id]/n...:terminal". Steps without a number are skipped.
func parseSegment(s string) Segment {
	var seg Segment
	stepPart, termPart, hasTerm := cutTop(s, ':')
	for _, piece := range splitTop(stepPart, '/') {
		if piece == "" {
			continue
		}
		if st, ok := parseStep(piece); ok {
			seg.Steps = append(seg.Steps, st)
		}
	}
	if hasTerm && termPart != "" {
		seg.Terminal = parseTerminal(termPart)
	}
	return seg
}

func parseTerminal(s string) *Terminal {
	t := &Terminal{}
	if open := strings.IndexByte(s, '['); open >= 0 && strings.HasSuffix(s, "]") {
		t.Assertion = s[open+1 : len(s)-1]
		s = s[:open]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end > 0 {
		if n, err := strconv.Atoi(s[:end]); err == nil {
			t.Offset = n
			t.HasOffset = true
		}
	}
	t.Opaque = s[end:]
	return t
}
