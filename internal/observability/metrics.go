// Package observability holds process-wide watermark gauges fed by the persistence layer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	trainingRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "persistence",
		Name:      "last_training_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training persisted.",
	})
	statisticsUpsertedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "persistence",
		Name:      "last_statistics_upsert_timestamp_seconds",
		Help:      "Unix timestamp of the most recent statistics upsert that changed a record.",
	})
)

func init() {
	prometheus.MustRegister(trainingRecordedGauge, statisticsUpsertedGauge)
}

// RecordTrainingRecorded updates the training watermark gauge.
func RecordTrainingRecorded(ts time.Time) {
	if ts.IsZero() {
		return
	}
	trainingRecordedGauge.Set(float64(ts.Unix()))
}

// RecordStatisticsUpserted updates the statistics watermark gauge.
func RecordStatisticsUpserted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	statisticsUpsertedGauge.Set(float64(ts.Unix()))
}
