package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orchestrator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_orchestrator_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orchestrator_payments_total",
			Help: "Payment operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_orchestrator_gateway_call_duration_seconds",
			Help:    "Latency of payment gateway calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 4, 5},
		},
		[]string{"operation", "outcome"},
	)

	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orchestrator_checkouts_total",
			Help: "Checkout attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(paymentsTotal)
	prometheus.MustRegister(gatewayDuration)
	prometheus.MustRegister(checkoutsTotal)
}

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordPayment counts an orchestrator operation. Outcome is a status or error code.
func RecordPayment(operation, outcome string) {
	paymentsTotal.WithLabelValues(operation, outcome).Inc()
}

func ObserveGatewayCall(operation, outcome string, d time.Duration) {
	gatewayDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func RecordCheckout(flow, outcome string) {
	checkoutsTotal.WithLabelValues(flow, outcome).Inc()
}
