package repository

import (
	"context"

	"expo-orders/internal/model"

	"github.com/google/uuid"
)

// CatalogRepository defines the interface for product catalog access.
type CatalogRepository interface {
	// GetAll retrieves the full catalog in display order.
	GetAll(ctx context.Context) ([]model.Product, error)

	// GetByCodes retrieves the catalog entries for the given item codes.
	GetByCodes(ctx context.Context, codes []string) ([]model.Product, error)

	// ValidateCodesExist checks that every provided item code is in the
	// catalog. Returns model.ErrUnknownProduct if any is not.
	ValidateCodesExist(ctx context.Context, codes []string) error
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	// Save appends one order together with its items in a single
	// transaction. Saving an id that already exists is an error, never a
	// silent overwrite.
	Save(ctx context.Context, order *model.Order) error

	// ListAll retrieves the full current order set with items.
	ListAll(ctx context.Context) ([]model.Order, error)

	// Delete removes one order by id. Deleting a non-existent id is not an
	// error.
	Delete(ctx context.Context, id uuid.UUID) error

	// NextSerial atomically increments and returns the serial counter for
	// the given day key. The first call of a day returns 1.
	NextSerial(ctx context.Context, dayKey string) (int, error)
}
