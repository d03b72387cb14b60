// Package metrics provides Prometheus instrumentation for the NFT engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MintsTotal counts assets minted.
	MintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fotobook_mints_total",
		Help: "Total number of assets minted",
	})

	// TransfersTotal counts ownership transfers, partitioned by reason.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fotobook_transfers_total",
		Help: "Total ownership transfers",
	}, []string{"reason"})

	// BidsTotal counts accepted auction bids.
	BidsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fotobook_bids_total",
		Help: "Total number of accepted bids",
	})

	// AuctionsSettled counts settled auctions, partitioned by outcome.
	AuctionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fotobook_auctions_settled_total",
		Help: "Total auctions settled",
	}, []string{"outcome"})

	// SalesTotal counts completed fixed-price sales by currency.
	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fotobook_sales_total",
		Help: "Total completed marketplace sales",
	}, []string{"currency"})

	// ActiveAuctions tracks the number of currently active auctions.
	ActiveAuctions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fotobook_active_auctions",
		Help: "Number of currently active auctions",
	})

	// ActiveListings tracks the number of currently active listings.
	ActiveListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fotobook_active_listings",
		Help: "Number of currently active listings",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fotobook_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fotobook_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fotobook_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
