package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordergen_runs_started_total",
		Help: "Report generation runs that entered validation.",
	})
	runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordergen_runs_completed_total",
		Help: "Report generation runs that finished the merge stage.",
	})
	locationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordergen_locations_processed_total",
		Help: "Dealer locations fully processed by the merge stage.",
	})
	artifactsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordergen_artifacts_produced_total",
		Help: "Report artifacts encoded and stored.",
	})
	mergeSoftErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordergen_merge_soft_errors_total",
		Help: "Recoverable per-file errors recorded during merge.",
	})
)
