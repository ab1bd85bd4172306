package report

import "github.com/prometheus/client_golang/prometheus"

var reportsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fitness_tracker",
	Subsystem: "reports",
	Name:      "dispatched_total",
	Help:      "Monthly report e-mails handed to the mail transport, labeled by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(reportsDispatched)
}
