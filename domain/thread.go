package domain

import (
	"cmp"
	"slices"
)

// SortThread orders messages chronologically, both directions interleaved.
// Exact timestamp ties are broken by id so the order is deterministic.
func SortThread(messages []Message) {
	slices.SortStableFunc(messages, func(a, b Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
