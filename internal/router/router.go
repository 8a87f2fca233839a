package router

import (
	"net/http"
	"strings"

	"expo-orders/internal/handler"
	"expo-orders/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	catalogHandler *handler.CatalogHandler,
	orderHandler *handler.OrderHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalog routes (both with and without trailing slash)
	mux.HandleFunc("/api/products", catalogHandler.GetAll)
	mux.HandleFunc("/api/products/", catalogHandler.GetAll)

	// Order handler function
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		collection := r.URL.Path == "/api/orders" || r.URL.Path == "/api/orders/"

		switch {
		case collection && r.Method == http.MethodPost:
			orderHandler.Create(w, r)
		case collection && r.Method == http.MethodGet:
			orderHandler.List(w, r)
		case collection && r.Method == http.MethodDelete:
			orderHandler.DeleteMany(w, r)
		case r.URL.Path == "/api/orders/stream":
			orderHandler.Stream(w, r)
		case r.URL.Path == "/api/orders/export":
			orderHandler.Export(w, r)
		case strings.HasPrefix(r.URL.Path, "/api/orders/"):
			orderHandler.Delete(w, r)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}

	// Register order routes (both with and without trailing slash)
	mux.HandleFunc("/api/orders", orderRouteHandler)
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
