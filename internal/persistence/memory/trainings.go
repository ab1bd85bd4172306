package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// TrainingRepository stores trainings in memory.
type TrainingRepository struct {
	mu        sync.RWMutex
	trainings map[string]domain.Training
}

// NewTrainingRepository constructs an empty repository.
func NewTrainingRepository() *TrainingRepository {
	return &TrainingRepository{trainings: make(map[string]domain.Training)}
}

// Create implements domain.TrainingRepository.
func (r *TrainingRepository) Create(ctx context.Context, training domain.Training) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trainings[training.ID] = training
	return nil
}

// Get returns the training or nil.
func (r *TrainingRepository) Get(ctx context.Context, id string) (*domain.Training, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	training, ok := r.trainings[id]
	if !ok {
		return nil, nil
	}
	return &training, nil
}

// List returns trainings matching the filter ordered by start time.
func (r *TrainingRepository) List(ctx context.Context, filter domain.TrainingFilter) ([]domain.Training, error) {
	return r.collect(func(t domain.Training) bool {
		if filter.UserID != "" && t.UserID != filter.UserID {
			return false
		}
		if filter.ActivityType != "" && t.ActivityType != filter.ActivityType {
			return false
		}
		if !filter.FinishedAfter.IsZero() && !t.EndTime.After(filter.FinishedAfter) {
			return false
		}
		return true
	}), nil
}

// ListByUserInRange returns the user's trainings with start <= StartTime < end.
func (r *TrainingRepository) ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Training, error) {
	window := domain.Window{Start: start, End: end}
	return r.collect(func(t domain.Training) bool {
		return t.UserID == userID && window.Contains(t.StartTime)
	}), nil
}

// Update replaces a stored training.
func (r *TrainingRepository) Update(ctx context.Context, training domain.Training) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trainings[training.ID]; !ok {
		return domain.ErrNotFound
	}
	r.trainings[training.ID] = training
	return nil
}

func (r *TrainingRepository) collect(match func(domain.Training) bool) []domain.Training {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Training, 0)
	for _, t := range r.trainings {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
