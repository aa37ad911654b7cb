package eventsourcing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_events_recorded_total",
		Help: "Number of events appended to account streams",
	}, []string{"type"})
	commandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_commands_rejected_total",
		Help: "Number of account commands rejected, by error kind",
	}, []string{"code"})
	foldDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "account_fold_duration_seconds",
		Help:    "Time spent loading and folding an account stream",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)
