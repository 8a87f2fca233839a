package service

import (
	"context"
	"fmt"

	"expo-orders/internal/model"
	"expo-orders/internal/repository"

	"github.com/rs/zerolog"
)

// catalogService implements CatalogService.
type catalogService struct {
	repo   repository.CatalogRepository
	logger zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.CatalogRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

// GetAll retrieves the full catalog in display order.
func (s *catalogService) GetAll(ctx context.Context) ([]model.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get catalog")
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	return products, nil
}
