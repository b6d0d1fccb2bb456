package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetclinic_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vetclinic_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AttributeChanges cuenta el resultado de cada reconciliación de atributos.
	// op: inserted | updated | deleted | discarded
	AttributeChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetclinic_attribute_changes_total",
		Help: "Pet attribute changes applied by reconciliation",
	}, []string{"op"})

	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetclinic_transactions_total",
		Help: "Aggregate save transactions by outcome",
	}, []string{"outcome"})
)
