package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	runsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "scheduler",
		Name:      "runs_in_flight",
		Help:      "Monthly pipeline runs currently executing. Values above one mean runs overlap.",
	})

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "scheduler",
		Name:      "runs_total",
		Help:      "Completed pipeline runs, labeled by pipeline and status (ok, partial, error).",
	}, []string{"pipeline", "status"})

	runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitness_tracker",
		Subsystem: "scheduler",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full pipeline run across all users.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"pipeline"})
)

func init() {
	prometheus.MustRegister(runsInFlight, runsTotal, runDuration)
}
