package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"expo-orders/internal/model"
	"expo-orders/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		message := "failed to submit order"

		var domainErr *model.DomainError
		switch {
		case errors.As(err, &domainErr):
			status = http.StatusBadRequest
			message = domainErr.Message
		case strings.Contains(err.Error(), "required") ||
			strings.Contains(err.Error(), "duplicate") ||
			strings.Contains(err.Error(), "nil"):
			status = http.StatusBadRequest
			message = err.Error()
		}

		writeError(w, status, message, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orders, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders", h.logger)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Delete handles DELETE /api/orders/{id} requests. Deletion is idempotent:
// a missing id still returns 204.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if idStr == "" {
		writeError(w, http.StatusBadRequest, "order ID is required", h.logger)
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID format", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete order", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteManyRequest is the payload for bulk deletion.
type deleteManyRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// deleteManyResponse reports per-id failures of a bulk deletion.
type deleteManyResponse struct {
	Failed []uuid.UUID `json:"failed"`
}

// DeleteMany handles DELETE /api/orders requests with an id list body. Each
// deletion is best-effort; ids that could not be deleted are reported back.
func (h *OrderHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req deleteManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required", h.logger)
		return
	}

	failed := h.service.DeleteMany(r.Context(), req.IDs)
	if failed == nil {
		failed = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, deleteManyResponse{Failed: failed})
}

// exportRequest is the payload for CSV export. An empty id list exports all
// orders.
type exportRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// Export handles POST /api/orders/export requests and responds with a CSV
// attachment.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)

	if err := h.service.ExportCSV(r.Context(), w, req.IDs); err != nil {
		// Headers may already be out; logging is all that is left.
		h.logger.Error().Err(err).Msg("CSV export failed mid-stream")
	}
}

// Stream handles GET /api/orders/stream requests as a server-sent event
// stream: the current consolidated order set is sent immediately, then again
// after every change, until the client disconnects.
func (h *OrderHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Buffered to one snapshot: intermediate snapshots may be dropped when
	// the client is slow, only the latest matters.
	snapshots := make(chan []model.Order, 1)
	cancel := h.service.Subscribe(func(orders []model.Order) {
		select {
		case snapshots <- orders:
		default:
			select {
			case <-snapshots:
			default:
			}
			snapshots <- orders
		}
	})
	defer cancel()

	orders, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders", h.logger)
		return
	}
	if err := writeEvent(w, flusher, orders); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case orders := <-snapshots:
			if err := writeEvent(w, flusher, orders); err != nil {
				return
			}
		}
	}
}

// writeEvent writes one SSE data frame containing the order set as JSON.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, orders []model.Order) error {
	if orders == nil {
		orders = []model.Order{}
	}
	payload, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
