package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests    prometheus.Counter
	problems    *prometheus.CounterVec
	methodCalls *prometheus.CounterVec
}

var defaultMetrics = &metrics{
	requests: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "veldt",
		Name:      "api_requests_total",
		Help:      "API requests received.",
	}),
	problems: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veldt",
		Name:      "api_problems_total",
		Help:      "Requests rejected with a problem document.",
	}, []string{"type"}),
	methodCalls: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veldt",
		Name:      "method_responses_total",
		Help:      "Method responses produced, by method name (or \"error\").",
	}, []string{"method"}),
}

// newMetrics returns the process-wide collectors. Registration happens
// once; handlers constructed for tests share the same collectors.
func newMetrics() *metrics {
	return defaultMetrics
}
