package database

import (
	"context"
	"fmt"

	"expo-orders/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		code VARCHAR(20) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		customer_name VARCHAR(255) NOT NULL,
		customer_postal_code VARCHAR(16) NOT NULL,
		customer_address VARCHAR(512) NOT NULL,
		customer_phone VARCHAR(32) NOT NULL,
		same_as_receiver BOOLEAN NOT NULL,
		receiver_name VARCHAR(255) NOT NULL,
		receiver_postal_code VARCHAR(16) NOT NULL,
		receiver_address VARCHAR(512) NOT NULL,
		receiver_phone VARCHAR(32) NOT NULL,
		delivery_date VARCHAR(16) NOT NULL DEFAULT '',
		delivery_time VARCHAR(32) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		item_code VARCHAR(20) NOT NULL,
		item_name VARCHAR(255) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0)
	);

	CREATE TABLE IF NOT EXISTS order_counters (
		day_key CHAR(8) PRIMARY KEY,
		count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
`

// Catalog sold at the booth. Codes follow the shop's item master.
var catalog = []model.Product{
	{Code: "035604", Name: "月化粧(4個入)"},
	{Code: "035606", Name: "月化粧(6個入)"},
	{Code: "035610", Name: "月化粧(10個入)"},
	{Code: "035616", Name: "月化粧(16個入)"},
	{Code: "009514", Name: "伊右衛門月化粧(4個入)"},
	{Code: "009515", Name: "伊右衛門月化粧(6個入)"},
	{Code: "009516", Name: "伊右衛門月化粧(10個入)"},
	{Code: "009056", Name: "金の月化粧(10個入)"},
	{Code: "009064", Name: "ワンピース月化粧(5個入)"},
	{Code: "036806", Name: "月化粧サブレ(6枚入)"},
	{Code: "036810", Name: "月化粧サブレ(10枚入)"},
	{Code: "009640", Name: "月化粧アソートボックス"},
}

// Migrate creates the schema and seeds the product catalog. It is safe to
// run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for i, p := range catalog {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (code, name, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET name = $2, position = $3
		`, p.Code, p.Name, i)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.Code, err)
		}
	}

	logger.Info().Int("products", len(catalog)).Msg("schema migrated and catalog seeded")

	return nil
}
