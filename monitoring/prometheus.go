// Package monitoring exposes the trading core's Prometheus metrics.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Order lifecycle metrics (OrderManager / Order).
	orderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_order_execution_latency_milliseconds",
			Help:    "Time from order submission to final fill, in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"order_type", "symbol"},
	)

	orderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_orders_total",
			Help: "Total number of orders by type and terminal status.",
		},
		[]string{"order_type", "status"},
	)

	orderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_order_errors_total",
			Help: "Total number of order-level errors by kind.",
		},
		[]string{"order_type", "error_kind"},
	)

	// SimulatedMatchingEngine metrics.
	matchingQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_matching_queue_depth",
			Help: "Current depth of the matching engine's delay/cancel/market queues.",
		},
		[]string{"symbol", "queue"},
	)

	commissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_commission_total",
			Help: "Total commission charged by the simulated matching engine.",
		},
		[]string{"symbol"},
	)

	// OptionGreeksEngine metrics.
	greeksScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trading_greeks_scan_duration_milliseconds",
			Help:    "Duration of a single OptionGreeksEngine scan cycle, in milliseconds.",
			Buckets: []float64{0.5, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	greeksEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_greeks_entries",
			Help: "Current number of reference-counted option entries being scanned.",
		},
	)
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOrderExecution records the time-to-fill of a terminal order.
func RecordOrderExecution(orderType, symbol string, latencyMs float64) {
	orderLatency.WithLabelValues(orderType, symbol).Observe(latencyMs)
}

// RecordOrderStatus increments the terminal-status counter for an order.
func RecordOrderStatus(orderType, status string) {
	orderTotal.WithLabelValues(orderType, status).Inc()
}

// RecordOrderError records an order-level error by kind.
func RecordOrderError(orderType, errorKind string) {
	orderErrors.WithLabelValues(orderType, errorKind).Inc()
}

// SetMatchingQueueDepth sets the current depth of a named matching-engine queue.
func SetMatchingQueueDepth(symbol, queue string, depth int) {
	matchingQueueDepth.WithLabelValues(symbol, queue).Set(float64(depth))
}

// RecordCommission records commission charged on a fill.
func RecordCommission(symbol string, amount float64) {
	commissionTotal.WithLabelValues(symbol).Add(amount)
}

// RecordGreeksScan records the duration of one Greeks scan cycle.
func RecordGreeksScan(durationMs float64) {
	greeksScanDuration.Observe(durationMs)
}

// SetGreeksEntries sets the current size of the Greeks entries map.
func SetGreeksEntries(count int) {
	greeksEntries.Set(float64(count))
}
