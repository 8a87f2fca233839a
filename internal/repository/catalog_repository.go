package repository

import (
	"context"
	"fmt"

	"expo-orders/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

// GetAll retrieves the full catalog in display order.
func (r *catalogRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	query := `
		SELECT code, name, position
		FROM products
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Position); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByCodes retrieves the catalog entries for the given item codes.
func (r *catalogRepository) GetByCodes(ctx context.Context, codes []string) ([]model.Product, error) {
	if len(codes) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT code, name, position
		FROM products
		WHERE code = ANY($1)
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(codes)).Msg("failed to query products by codes")
		return nil, fmt.Errorf("failed to query products by codes: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Position); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ValidateCodesExist checks that every provided item code is in the catalog.
func (r *catalogRepository) ValidateCodesExist(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	query := `
		SELECT COUNT(DISTINCT code)
		FROM products
		WHERE code = ANY($1)
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, codes).Scan(&count); err != nil {
		r.logger.Error().Err(err).Int("count", len(codes)).Msg("failed to validate item codes")
		return fmt.Errorf("failed to validate item codes: %w", err)
	}

	if count != len(codes) {
		r.logger.Warn().
			Int("expected", len(codes)).
			Int("found", count).
			Msg("not all item codes exist in catalog")
		return model.ErrUnknownProduct
	}

	return nil
}
