package service

import (
	"context"
	"io"

	"expo-orders/internal/model"

	"github.com/google/uuid"
)

// CatalogService defines operations for the product catalog.
type CatalogService interface {
	// GetAll retrieves the full catalog in display order.
	GetAll(ctx context.Context) ([]model.Product, error)
}

// OrderService defines operations for order intake and administration.
type OrderService interface {
	// Submit validates the request, mints an order number, and persists a
	// new order. No state changes when validation fails.
	Submit(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// List retrieves the consolidated, duplicate-free order set.
	List(ctx context.Context) ([]model.Order, error)

	// Delete removes one order by id; removing a non-existent id succeeds.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteMany removes the given orders best-effort. A failure for one id
	// does not abort the rest; the ids that failed are returned.
	DeleteMany(ctx context.Context, ids []uuid.UUID) []uuid.UUID

	// ExportCSV writes the CSV export of the selected orders to w. An empty
	// selection exports all orders.
	ExportCSV(ctx context.Context, w io.Writer, ids []uuid.UUID) error

	// Subscribe registers fn to receive the consolidated order set after
	// every change. The returned function cancels the subscription.
	Subscribe(fn func([]model.Order)) (cancel func())
}
