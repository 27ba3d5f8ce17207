package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "susy_xsec_dataset_loads_total",
			Help: "Total number of dataset load attempts",
		},
		[]string{"status"},
	)

	DatasetLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "susy_xsec_dataset_load_duration_seconds",
			Help:    "Duration of dataset loads",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 0.001s to ~4.1s
		},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "susy_xsec_queries_total",
			Help: "Total number of grid queries",
		},
		[]string{"method", "status"},
	)
)
