package cfi

import "strings"

// escapeChars are the characters written with a leading '^' inside
// step identifiers. Terminal assertions are kept verbatim.
const escapeChars = "^[](),;="

func escape(s string) string {
	if !strings.ContainsAny(s, escapeChars) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(escapeChars, r) {
			b.WriteByte('^')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.Contains(s, "^") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '^' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitTop splits s at every sep that is neither escaped nor inside
// square brackets.
func splitTop(s string, sep byte) []string {
	var out []string
	from, depth := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '^':
			i++
		case c == '[':
			depth++
		case c == ']' && depth > 0:
			depth--
		case c == sep && depth == 0:
			out = append(out, s[from:i])
			from = i + 1
		}
	}
	return append(out, s[from:])
}

// cutTop is strings.Cut at the first sep found by splitTop.
func cutTop(s string, sep byte) (before, after string, found bool) {
	parts := splitTop(s, sep)
	if len(parts) == 1 {
		return s, "", false
	}
	return parts[0], s[len(parts[0])+1:], true
}
