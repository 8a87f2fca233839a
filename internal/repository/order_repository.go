package repository

import (
	"context"
	"fmt"

	"expo-orders/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Save appends one order together with its items in a single transaction.
func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	orderQuery := `
		INSERT INTO orders (
			id, order_number, created_at,
			customer_name, customer_postal_code, customer_address, customer_phone,
			same_as_receiver,
			receiver_name, receiver_postal_code, receiver_address, receiver_phone,
			delivery_date, delivery_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.Exec(ctx, orderQuery,
		order.ID, order.OrderNumber, order.CreatedAt,
		order.Name, order.PostalCode, order.Address, order.Phone,
		order.SameAsReceiver,
		order.ReceiverName, order.ReceiverPostalCode, order.ReceiverAddress, order.ReceiverPhone,
		order.DeliveryDate, order.DeliveryTime,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to insert order")
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, item_code, item_name, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for i, item := range order.Items {
		batch.Queue(itemQuery, uuid.New(), order.ID, i, item.Code, item.Name, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range order.Items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("item_code", order.Items[i].Code).
				Msg("failed to insert order item")
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close item batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("item_count", len(order.Items)).
		Msg("order saved")

	return nil
}

// ListAll retrieves the full current order set with items, oldest first.
// Rows that fail the canonical-shape check (empty order number) are skipped
// with a warning rather than surfaced to callers; such rows can only come
// from legacy writes that predate the schema boundary.
func (r *orderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	orderQuery := `
		SELECT id, order_number, created_at,
			customer_name, customer_postal_code, customer_address, customer_phone,
			same_as_receiver,
			receiver_name, receiver_postal_code, receiver_address, receiver_phone,
			delivery_date, delivery_time
		FROM orders
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, orderQuery)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var o model.Order
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CreatedAt,
			&o.Name, &o.PostalCode, &o.Address, &o.Phone,
			&o.SameAsReceiver,
			&o.ReceiverName, &o.ReceiverPostalCode, &o.ReceiverAddress, &o.ReceiverPhone,
			&o.DeliveryDate, &o.DeliveryTime,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if o.OrderNumber == "" {
			r.logger.Warn().Str("order_id", o.ID.String()).Msg("skipping legacy order row without order number")
			continue
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	itemQuery := `
		SELECT order_id, item_code, item_name, quantity
		FROM order_items
		ORDER BY order_id, position
	`

	itemRows, err := r.pool.Query(ctx, itemQuery)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID uuid.UUID
		var item model.OrderItem
		if err := itemRows.Scan(&orderID, &item.Code, &item.Name, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		i, ok := index[orderID]
		if !ok {
			// Item of a skipped legacy row.
			continue
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return orders, nil
}

// Delete removes one order by id. Items cascade. Deleting a non-existent id
// is a no-op, not an error.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Int64("rows", tag.RowsAffected()).
		Msg("order deleted")

	return nil
}

// NextSerial atomically increments and returns the serial counter for the
// given day key. The increment happens in a single conditional upsert, so
// concurrent submitters can never read the same value. A corrupt counter
// (non-positive value) is reset and numbering restarts at 1 for the day; the
// possible collision with already-minted numbers is the accepted tradeoff
// for staying available.
func (r *orderRepository) NextSerial(ctx context.Context, dayKey string) (int, error) {
	query := `
		INSERT INTO order_counters (day_key, count)
		VALUES ($1, 1)
		ON CONFLICT (day_key) DO UPDATE SET count = order_counters.count + 1
		RETURNING count
	`

	var serial int
	if err := r.pool.QueryRow(ctx, query, dayKey).Scan(&serial); err != nil {
		r.logger.Error().Err(err).Str("day_key", dayKey).Msg("failed to increment day counter")
		return 0, fmt.Errorf("failed to increment day counter: %w", err)
	}

	if serial < 1 {
		r.logger.Warn().
			Str("day_key", dayKey).
			Int("count", serial).
			Msg("corrupt day counter, resetting")

		resetQuery := `UPDATE order_counters SET count = 1 WHERE day_key = $1`
		if _, err := r.pool.Exec(ctx, resetQuery, dayKey); err != nil {
			return 0, fmt.Errorf("failed to reset corrupt day counter: %w", err)
		}
		serial = 1
	}

	return serial, nil
}
