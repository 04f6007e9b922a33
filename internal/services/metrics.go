package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_gateway_calls_total",
		Help: "Outbound payment gateway calls, labeled by operation and success",
	}, []string{"operation", "success"})

	gatewayCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docstore_gateway_call_duration_seconds",
		Help:    "Latency of outbound payment gateway calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	purchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_purchases_initiated_total",
		Help: "Token purchases initiated, labeled by outcome",
	}, []string{"outcome"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_payment_callbacks_total",
		Help: "Gateway notifications processed, labeled by reconciliation outcome",
	}, []string{"outcome"})

	tokensCreditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docstore_tokens_credited_total",
		Help: "Tokens credited to accounts by completed payments",
	})

	unlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_document_unlocks_total",
		Help: "Document unlock attempts, labeled by outcome",
	}, []string{"outcome"})
)

func observeGatewayCall(operation string, success bool, elapsed time.Duration) {
	gatewayCallsTotal.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	gatewayCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
