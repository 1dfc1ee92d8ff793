// Package metrics holds the Prometheus collectors shared by the RPC client
// and the support service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conviction_voting"

var (
	RPCRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "JSON-RPC requests by method and status.",
	}, []string{"method", "status"})

	RPCRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "JSON-RPC request latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	RPCCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "cache_hits_total",
		Help:      "Responses served from the in-memory memo.",
	}, []string{"method"})

	FeeRecordsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gas_cost",
		Name:      "fee_records_total",
		Help:      "Transaction fee records assembled from a transaction and its receipt.",
	})

	AmountValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "support",
		Name:      "amount_validations_total",
		Help:      "Support amount validations by outcome.",
	}, []string{"outcome"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry.
// Calling it more than once is a no-op.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RPCRequestsTotal,
			RPCRequestDuration,
			RPCCacheHits,
			FeeRecordsFetched,
			AmountValidations,
		)
	})
}

// ObserveRPC records the outcome and latency of one JSON-RPC request.
func ObserveRPC(method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RPCRequestsTotal.WithLabelValues(method, status).Inc()
	RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
