// Package feed maintains the read-side view of the order set: a pure
// de-duplication step and a subscription hub that fans full snapshots out to
// listeners after every store change.
package feed

import (
	"expo-orders/internal/model"

	"github.com/google/uuid"
)

// Consolidate returns orders with exactly one entry per distinct id. When an
// id appears more than once, the last occurrence in input order wins and
// determines the entry's position, which models latest-write-wins for a live
// feed that may replay the same record. The function is idempotent and holds
// no state.
func Consolidate(orders []model.Order) []model.Order {
	last := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		last[o.ID] = i
	}

	out := make([]model.Order, 0, len(last))
	for i, o := range orders {
		if last[o.ID] == i {
			out = append(out, o)
		}
	}
	return out
}
