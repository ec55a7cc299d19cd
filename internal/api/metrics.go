package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchdesk_http_requests_total",
		Help: "Total HTTP requests processed by the dashboard server",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watchdesk_http_request_duration_seconds",
		Help:    "Dashboard HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
