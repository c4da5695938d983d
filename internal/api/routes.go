package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the addon routes. Addon routes are rate limited per
// client IP; /health, /metrics and operator routes are not. Operator routes
// require operatorToken and are disabled when it is empty.
func SetupRoutes(h *Handler, limiter *RateLimiter, operatorToken string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	operator := RequireOperator(operatorToken)
	r.Handle("/api/orphans", operator(http.HandlerFunc(h.Orphans))).Methods(http.MethodGet)

	addon := r.NewRoute().Subrouter()
	addon.Use(limiter.Middleware)

	addon.HandleFunc("/", h.Configure).Methods(http.MethodGet)
	addon.HandleFunc("/configure", h.Configure).Methods(http.MethodGet)
	addon.HandleFunc("/manifest.json", h.Manifest).Methods(http.MethodGet)
	addon.HandleFunc("/{config}/configure", h.Configure).Methods(http.MethodGet)
	addon.HandleFunc("/{config}/manifest.json", h.Manifest).Methods(http.MethodGet)
	addon.HandleFunc("/{config}/stream/{type}/{id}.json", h.Streams).Methods(http.MethodGet)

	return corsMiddleware(r)
}

// corsMiddleware lets player web clients call the addon from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
