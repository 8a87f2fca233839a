package feed

import (
	"sync"

	"expo-orders/internal/model"

	"github.com/rs/zerolog"
)

// Hub broadcasts consolidated full-set snapshots to subscribers. Callbacks
// run synchronously on the publishing goroutine; subscribers that need to do
// slow work should hand the snapshot off to their own goroutine.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]func([]model.Order)
	nextID int
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]func([]model.Order)),
		logger: logger.With().Str("component", "feed").Logger(),
	}
}

// Subscribe registers fn to receive every published snapshot. The returned
// cancel function stops delivery; calling it more than once is harmless.
func (h *Hub) Subscribe(fn func([]model.Order)) (cancel func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug().Int("subscribers", count).Msg("subscriber added")

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish consolidates orders and delivers the result to every subscriber.
func (h *Hub) Publish(orders []model.Order) {
	snapshot := Consolidate(orders)

	h.mu.Lock()
	fns := make([]func([]model.Order), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
