// Package mapx holds generic map helpers.
package mapx

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of m in ascending order, or nil for a nil map.
// Iterating a map through SortedKeys gives output that does not depend on
// map iteration order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	if m == nil {
		return nil
	}

	keys := make([]K, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
