package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vodex",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vodex",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	RecordOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vodex",
		Name:      "record_operations_total",
		Help:      "Record service operations by collection, operation and outcome.",
	}, []string{"collection", "op", "outcome"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vodex",
		Name:      "record_events_published_total",
		Help:      "Record change events handed to the queue, by result.",
	}, []string{"result"})

	EventsAudited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vodex",
		Name:      "record_events_audited_total",
		Help:      "Record change events written to the audit log by the worker, by result.",
	}, []string{"result"})
)
