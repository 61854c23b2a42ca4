package cfi

import (
	"slices"

	"github.com/dgallion1/docanchor/internal/ordered"
)

// Compare orders a before b in reading order: by spine position, then by
// step indexes, then by offset. A shorter step sequence that is a prefix
// of the other sorts first, and a missing offset sorts before a present one.
// Step kinds and identifiers do not take part.
func Compare(a, b CFI) int {
	if a.SpinePos != b.SpinePos {
		if a.SpinePos < b.SpinePos {
			return -1
		}
		return 1
	}
	sa, sb := a.Start(), b.Start()
	for i := 0; i < len(sa.Steps) && i < len(sb.Steps); i++ {
		if sa.Steps[i].Index != sb.Steps[i].Index {
			if sa.Steps[i].Index < sb.Steps[i].Index {
				return -1
			}
			return 1
		}
	}
	if len(sa.Steps) != len(sb.Steps) {
		if len(sa.Steps) < len(sb.Steps) {
			return -1
		}
		return 1
	}
	oa, hasA := sa.Terminal.offset()
	ob, hasB := sb.Terminal.offset()
	switch {
	case !hasA && !hasB:
		return 0
	case !hasA:
		return -1
	case !hasB:
		return 1
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	}
	return 0
}

// CompareStrings parses and compares two serialized CFIs.
func CompareStrings(a, b string) int {
	return Compare(Parse(a), Parse(b))
}

// Sort orders cfis in place by Compare. The sort is stable.
func Sort(cfis []CFI) {
	slices.SortStableFunc(cfis, Compare)
}

// Insert places c into sorted and returns the grown slice.
func Insert(sorted []CFI, c CFI) []CFI {
	i := ordered.InsertIndex(c, sorted, Compare)
	return slices.Insert(sorted, i, c)
}

// Find returns the index of a CFI comparing equal to c, or -1.
func Find(sorted []CFI, c CFI) int {
	return ordered.FindIndex(c, sorted, Compare)
}
