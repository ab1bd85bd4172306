// Package statistics computes prior-month training aggregates and keeps one statistics record per user.
package statistics

import (
	"context"
	"fmt"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// TrainingReader is the slice of the training store the aggregator needs.
type TrainingReader interface {
	ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Training, error)
}

// Aggregator reduces a user's trainings inside a window.
type Aggregator struct {
	trainings TrainingReader
}

// NewAggregator constructs an Aggregator.
func NewAggregator(trainings TrainingReader) *Aggregator {
	return &Aggregator{trainings: trainings}
}

// Aggregate loads the user's trainings that started inside the window and reduces them.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, window domain.Window) (domain.MonthlyAggregate, error) {
	trainings, err := a.trainings.ListByUserInRange(ctx, userID, window.Start, window.End)
	if err != nil {
		return domain.MonthlyAggregate{}, fmt.Errorf("%w: list trainings for user %s: %w", domain.ErrDataAccess, userID, err)
	}
	return Reduce(userID, trainings), nil
}

// Reduce counts the trainings, sums their distances and averages their average speeds.
// The average is 0 when there are no trainings.
func Reduce(userID string, trainings []domain.Training) domain.MonthlyAggregate {
	agg := domain.MonthlyAggregate{UserID: userID, TotalTrainings: len(trainings)}
	if len(trainings) == 0 {
		return agg
	}

	var speedSum float64
	for _, t := range trainings {
		agg.TotalDistance += t.Distance
		speedSum += t.AverageSpeed
	}
	agg.AverageSpeed = speedSum / float64(len(trainings))
	return agg
}
