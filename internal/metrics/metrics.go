package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chsandbox_queries_total",
		Help: "Query executions by outcome (ok, error, dropped)",
	}, []string{"outcome"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chsandbox_query_duration_seconds",
		Help:    "Duration of GraphQL requests in seconds",
		Buckets: prometheus.DefBuckets,
	})

	RelayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chsandbox_relay_requests_total",
		Help: "Requests handled by the GraphQL relay",
	}, []string{"status"})

	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chsandbox_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"method", "status"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chsandbox_sessions_active",
		Help: "Sandbox sessions currently held in memory",
	})
)
