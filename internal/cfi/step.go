package cfi

import (
	"strconv"
	"strings"
)

// StepKind says which sibling list a Step indexes into.
type StepKind int

const (
	ElementStep StepKind = iota
	TextStep
)

func (k StepKind) String() string {
	if k == TextStep {
		return "text"
	}
	return "element"
}

func (k StepKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Step is one generation of descent: the Index-th element or text child
// of the current container, optionally pinned by an element identifier.
type Step struct {
	Kind  StepKind `json:"kind"`
	Index int      `json:"index"`
	ID    string   `json:"id,omitempty"`
}

// EncodeStep returns the wire number for a step: even for elements, odd for text.
func EncodeStep(kind StepKind, index int) int {
	if kind == TextStep {
		return 1 + 2*index
	}
	return (index + 1) * 2
}

// DecodeStep is the inverse of EncodeStep.
func DecodeStep(n int) (StepKind, int) {
	if n%2 == 0 {
		return ElementStep, n/2 - 1
	}
	return TextStep, (n - 1) / 2
}

func (s Step) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(EncodeStep(s.Kind, s.Index)))
	if s.ID != "" {
		b.WriteByte('[')
		b.WriteString(escape(s.ID))
		b.WriteByte(']')
	}
	return b.String()
}

// Equal compares kind, index and identifier.
func (s Step) Equal(o Step) bool {
	return s.Kind == o.Kind && s.Index == o.Index && s.ID == o.ID
}

// parseStep reads "n" or "n[id]". ok is false when there is no number.
func parseStep(piece string) (Step, bool) {
	var id string
	if open := strings.IndexByte(piece, '['); open >= 0 && strings.HasSuffix(piece, "]") {
		id = unescape(piece[open+1 : len(piece)-1])
		piece = piece[:open]
	}
	if piece == "" || !isDigits(piece) {
		return Step{}, false
	}
	n, err := strconv.Atoi(piece)
	if err != nil {
		return Step{}, false
	}
	kind, index := DecodeStep(n)
	return Step{Kind: kind, Index: index, ID: id}, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
