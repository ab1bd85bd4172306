// Package events defines the payloads the tracker publishes through the outbox and how they are routed.
package events

import "time"

// Event types recorded in the outbox.
const (
	TypeTrainingRecorded  = "training.recorded"
	TypeStatisticsUpdated = "statistics.updated"
)

// TrainingRecorded is emitted when a training is stored.
type TrainingRecorded struct {
	TrainingID   string    `json:"training_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Distance     float64   `json:"distance"`
	AverageSpeed float64   `json:"average_speed"`
}

// StatisticsUpdated is emitted when a user's statistics record changes.
type StatisticsUpdated struct {
	StatisticsID   string    `json:"statistics_id"`
	UserID         string    `json:"user_id"`
	TotalTrainings int       `json:"total_trainings"`
	TotalDistance  float64   `json:"total_distance"`
	AverageSpeed   float64   `json:"average_speed"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Route describes where an event type is published and the JSON schema registered for it.
type Route struct {
	AggregateType string
	Topic         string
	SchemaSubject string
	Schema        string
}

var catalog = map[string]Route{
	TypeTrainingRecorded: {
		AggregateType: "training",
		Topic:         "training_events",
		SchemaSubject: "training_events-value",
		Schema:        trainingRecordedSchema,
	},
	TypeStatisticsUpdated: {
		AggregateType: "statistics",
		Topic:         "statistics_events",
		SchemaSubject: "statistics_events-value",
		Schema:        statisticsUpdatedSchema,
	},
}

// Lookup returns the route for an event type.
func Lookup(eventType string) (Route, bool) {
	route, ok := catalog[eventType]
	return route, ok
}

const trainingRecordedSchema = `{
  "type": "object",
  "title": "TrainingRecorded",
  "properties": {
    "training_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string", "enum": ["RUNNING", "CYCLING", "WALKING", "SWIMMING", "TENNIS"]},
    "start_time": {"type": "string", "format": "date-time"},
    "end_time": {"type": "string", "format": "date-time"},
    "distance": {"type": "number", "minimum": 0},
    "average_speed": {"type": "number", "minimum": 0}
  },
  "required": ["training_id", "user_id", "activity_type", "start_time", "end_time", "distance", "average_speed"],
  "additionalProperties": false
}`

const statisticsUpdatedSchema = `{
  "type": "object",
  "title": "StatisticsUpdated",
  "properties": {
    "statistics_id": {"type": "string"},
    "user_id": {"type": "string"},
    "total_trainings": {"type": "integer", "minimum": 0},
    "total_distance": {"type": "number", "minimum": 0},
    "average_speed": {"type": "number", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["statistics_id", "user_id", "total_trainings", "total_distance", "average_speed", "occurred_at"],
  "additionalProperties": false
}`
