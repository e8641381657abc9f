package aggregate

import (
	"cmp"
	"slices"
)

// sortByIndex orders results by candidate discovery index.
// Stable, so equal keys keep insertion order.
func sortByIndex[T any](items []T, index func(T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(index(a), index(b))
	})
}
