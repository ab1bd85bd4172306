package statistics

import "github.com/prometheus/client_golang/prometheus"

var usersProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fitness_tracker",
	Subsystem: "statistics",
	Name:      "users_processed_total",
	Help:      "Users handled by the monthly statistics pipeline, labeled by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(usersProcessed)
}
