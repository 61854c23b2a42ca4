// Package ordered provides binary search helpers for keeping slices sorted
// under an arbitrary three-way comparison.
package ordered

// InsertIndex returns the position at which item should be inserted into
// sorted to keep it ordered by cmp. An element comparing equal to item
// yields its own index, so equal items land next to the one the search
// met first.
func InsertIndex[T any](item T, sorted []T, cmp func(a, b T) int) int {
	start, end := 0, len(sorted)
	for {
		pivot := start + (end-start)/2
		if end-start <= 0 {
			return pivot
		}
		c := cmp(sorted[pivot], item)
		if end-start == 1 {
			if c >= 0 {
				return pivot
			}
			return pivot + 1
		}
		if c == 0 {
			return pivot
		}
		if c < 0 {
			start = pivot
		} else {
			end = pivot
		}
	}
}

// FindIndex returns the index of an element of sorted comparing equal to
// item, or -1.
func FindIndex[T any](item T, sorted []T, cmp func(a, b T) int) int {
	start, end := 0, len(sorted)
	for {
		pivot := start + (end-start)/2
		if end-start <= 0 {
			return -1
		}
		c := cmp(sorted[pivot], item)
		if end-start == 1 {
			if c == 0 {
				return pivot
			}
			return -1
		}
		if c == 0 {
			return pivot
		}
		if c < 0 {
			start = pivot
		} else {
			end = pivot
		}
	}
}
