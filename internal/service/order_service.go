package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"expo-orders/internal/export"
	"expo-orders/internal/feed"
	"expo-orders/internal/model"
	"expo-orders/internal/repository"
	"expo-orders/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	catalogRepo repository.CatalogRepository
	generator   *sequence.Generator
	hub         *feed.Hub
	loc         *time.Location
	logger      zerolog.Logger

	// submitMu serialises submissions. The counter increment itself is
	// atomic in the store, but serialising here also keeps order ids and
	// numbers appearing in the feed in mint order.
	submitMu sync.Mutex

	now func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	generator *sequence.Generator,
	hub *feed.Hub,
	loc *time.Location,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		generator:   generator,
		hub:         hub,
		loc:         loc,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
	}
}

// Submit validates the request, mints an order number, and persists a new
// order. The minted serial is wasted if the store write fails afterwards;
// there is no compensating decrement of the day counter.
func (s *orderService) Submit(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	items, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(items))
	for i, item := range items {
		codes[i] = item.Code
	}

	if err := s.catalogRepo.ValidateCodesExist(ctx, codes); err != nil {
		s.logger.Warn().Err(err).Int("item_count", len(codes)).Msg("item code validation failed")
		return nil, err
	}

	products, err := s.catalogRepo.GetByCodes(ctx, codes)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve item names")
		return nil, fmt.Errorf("failed to resolve item names: %w", err)
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.Code] = p.Name
	}
	for i := range items {
		items[i].Name = names[items[i].Code]
	}

	now := s.now()
	orderNumber, err := s.generator.Next(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to mint order number")
		return nil, fmt.Errorf("failed to mint order number: %w", err)
	}

	order := &model.Order{
		ID:          uuid.New(),
		CreatedAt:   now,
		OrderNumber: orderNumber,

		Name:       strings.TrimSpace(req.Name),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Address:    strings.TrimSpace(req.Address),
		Phone:      strings.TrimSpace(req.Phone),

		SameAsReceiver: req.SameAsReceiver,

		DeliveryDate: strings.TrimSpace(req.DeliveryDate),
		DeliveryTime: req.DeliveryTime,

		Items: items,
	}
	if order.DeliveryTime == "" {
		order.DeliveryTime = model.DeliveryTimeUnspecified
	}

	// Receiver fields always come from the customer fields when the
	// addresses match, even if receiver inputs were filled in before the
	// checkbox was ticked.
	if req.SameAsReceiver {
		order.ReceiverName = order.Name
		order.ReceiverPostalCode = order.PostalCode
		order.ReceiverAddress = order.Address
		order.ReceiverPhone = order.Phone
	} else {
		order.ReceiverName = strings.TrimSpace(req.ReceiverName)
		order.ReceiverPostalCode = strings.TrimSpace(req.ReceiverPostalCode)
		order.ReceiverAddress = strings.TrimSpace(req.ReceiverAddress)
		order.ReceiverPhone = strings.TrimSpace(req.ReceiverPhone)
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_number", orderNumber).
			Msg("failed to save order, serial wasted")
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("item_count", len(order.Items)).
		Msg("order submitted")

	s.broadcast(ctx)

	return order, nil
}

// List retrieves the consolidated, duplicate-free order set.
func (s *orderService) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return feed.Consolidate(orders), nil
}

// Delete removes one order by id.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.broadcast(ctx)
	return nil
}

// DeleteMany removes the given orders best-effort; each deletion is
// independent.
func (s *orderService) DeleteMany(ctx context.Context, ids []uuid.UUID) []uuid.UUID {
	var failed []uuid.UUID
	for _, id := range ids {
		if err := s.orderRepo.Delete(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("order_id", id.String()).Msg("bulk delete: order failed, continuing")
			failed = append(failed, id)
		}
	}

	if len(failed) < len(ids) {
		s.broadcast(ctx)
	}
	return failed
}

// ExportCSV writes the CSV export of the selected orders to w.
func (s *orderService) ExportCSV(ctx context.Context, w io.Writer, ids []uuid.UUID) error {
	orders, err := s.List(ctx)
	if err != nil {
		return err
	}

	selected := export.Select(orders, ids)

	if err := export.WriteCSV(w, selected, s.loc); err != nil {
		s.logger.Error().Err(err).Msg("failed to write CSV export")
		return fmt.Errorf("failed to write CSV export: %w", err)
	}

	s.logger.Info().
		Int("orders", len(selected)).
		Msg("CSV export written")

	return nil
}

// Subscribe registers fn with the feed hub.
func (s *orderService) Subscribe(fn func([]model.Order)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

// broadcast reloads the current order set and publishes it to subscribers.
// A reload failure only costs the notification, never the triggering write.
func (s *orderService) broadcast(ctx context.Context) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to reload orders for feed broadcast")
		return
	}
	s.hub.Publish(orders)
}

// validateRequest checks required fields and the item-quantity gate, and
// returns the non-empty item rows. Nothing is constructed or written when it
// fails.
func (s *orderService) validateRequest(req *model.OrderRequest) ([]model.OrderItem, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is nil")
	}

	required := []struct {
		name  string
		value string
	}{
		{"name", req.Name},
		{"postalCode", req.PostalCode},
		{"address", req.Address},
		{"phone", req.Phone},
	}
	if !req.SameAsReceiver {
		required = append(required,
			struct{ name, value string }{"receiverName", req.ReceiverName},
			struct{ name, value string }{"receiverPostalCode", req.ReceiverPostalCode},
			struct{ name, value string }{"receiverAddress", req.ReceiverAddress},
			struct{ name, value string }{"receiverPhone", req.ReceiverPhone},
		)
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%s is required", f.name)
		}
	}

	if !model.ValidDeliveryTime(req.DeliveryTime) {
		s.logger.Warn().Str("delivery_time", req.DeliveryTime).Msg("invalid delivery time")
		return nil, model.ErrInvalidDeliveryTime
	}

	// Blank (zero-quantity) rows are dropped; only negative quantities are
	// rejected outright.
	seen := make(map[string]bool)
	var items []model.OrderItem
	for i, item := range req.Items {
		if item.Quantity < 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("item_code", item.Code).
				Int("quantity", item.Quantity).
				Msg("negative quantity")
			return nil, model.ErrInvalidQuantity
		}
		if item.Quantity == 0 {
			continue
		}
		if item.Code == "" {
			return nil, fmt.Errorf("item %d: item code is required", i)
		}
		if seen[item.Code] {
			return nil, fmt.Errorf("item %d: duplicate item code %s", i, item.Code)
		}
		seen[item.Code] = true
		items = append(items, model.OrderItem{Code: item.Code, Quantity: item.Quantity})
	}

	if len(items) == 0 {
		return nil, model.ErrEmptyCart
	}

	return items, nil
}
