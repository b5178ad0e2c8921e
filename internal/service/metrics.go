package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by entity kind and outcome",
		},
		[]string{"kind", "status"},
	)

	syncDocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_documents_total",
			Help: "Total number of documents written to or removed from the index",
		},
		[]string{"kind", "op"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	syncRollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rollbacks_total",
			Help: "Total number of index transactions rolled back",
		},
		[]string{"kind"},
	)
)
