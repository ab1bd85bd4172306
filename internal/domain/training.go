package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityType enumerates the kinds of training a user can record.
type ActivityType string

const (
	ActivityRunning  ActivityType = "RUNNING"
	ActivityCycling  ActivityType = "CYCLING"
	ActivityWalking  ActivityType = "WALKING"
	ActivitySwimming ActivityType = "SWIMMING"
	ActivityTennis   ActivityType = "TENNIS"
)

var activityTypes = map[ActivityType]struct{}{
	ActivityRunning:  {},
	ActivityCycling:  {},
	ActivityWalking:  {},
	ActivitySwimming: {},
	ActivityTennis:   {},
}

// ParseActivityType normalises raw input into a known ActivityType.
func ParseActivityType(raw string) (ActivityType, error) {
	t := ActivityType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := activityTypes[t]; !ok {
		return "", fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// Training is a single recorded workout. Distance and AverageSpeed are non-negative.
type Training struct {
	ID           string
	UserID       string
	StartTime    time.Time
	EndTime      time.Time
	ActivityType ActivityType
	Distance     float64
	AverageSpeed float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TrainingFilter narrows List results; zero-valued fields are ignored.
type TrainingFilter struct {
	UserID        string
	ActivityType  ActivityType
	FinishedAfter time.Time
}

// TrainingPatch carries optional field updates; nil fields are left untouched.
type TrainingPatch struct {
	StartTime    *time.Time
	EndTime      *time.Time
	ActivityType *ActivityType
	Distance     *float64
	AverageSpeed *float64
}

// Apply copies every non-nil field onto t.
func (p TrainingPatch) Apply(t *Training) {
	if p.StartTime != nil {
		t.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.ActivityType != nil {
		t.ActivityType = *p.ActivityType
	}
	if p.Distance != nil {
		t.Distance = *p.Distance
	}
	if p.AverageSpeed != nil {
		t.AverageSpeed = *p.AverageSpeed
	}
}

// TrainingRepository captures persistence operations for trainings.
// Get returns (nil, nil) when nothing matches.
type TrainingRepository interface {
	Create(ctx context.Context, training Training) error
	Get(ctx context.Context, id string) (*Training, error)
	List(ctx context.Context, filter TrainingFilter) ([]Training, error)
	// ListByUserInRange returns the user's trainings with start <= StartTime < end.
	ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]Training, error)
	Update(ctx context.Context, training Training) error
}

// CreateTrainingInput captures the payload from the API layer.
type CreateTrainingInput struct {
	UserID       string
	StartTime    time.Time
	EndTime      time.Time
	ActivityType ActivityType
	Distance     float64
	AverageSpeed float64
}

// TrainingService orchestrates training workflows.
type TrainingService struct {
	repo  TrainingRepository
	users UserRepository
}

// NewTrainingService constructs a TrainingService.
func NewTrainingService(repo TrainingRepository, users UserRepository) *TrainingService {
	return &TrainingService{repo: repo, users: users}
}

// CreateTraining records a training for an existing user.
func (s *TrainingService) CreateTraining(ctx context.Context, input CreateTrainingInput) (*Training, error) {
	user, err := s.users.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", input.UserID, ErrNotFound)
	}

	now := time.Now().UTC()
	training := Training{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		ActivityType: input.ActivityType,
		Distance:     input.Distance,
		AverageSpeed: input.AverageSpeed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateTraining(training); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, training); err != nil {
		return nil, err
	}
	return &training, nil
}

// GetTraining fetches by ID.
func (s *TrainingService) GetTraining(ctx context.Context, id string) (*Training, error) {
	training, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if training == nil {
		return nil, ErrNotFound
	}
	return training, nil
}

// ListTrainings returns trainings matching the filter.
func (s *TrainingService) ListTrainings(ctx context.Context, filter TrainingFilter) ([]Training, error) {
	return s.repo.List(ctx, filter)
}

// UpdateTraining applies the patch and re-validates the result.
func (s *TrainingService) UpdateTraining(ctx context.Context, id string, patch TrainingPatch) (*Training, error) {
	training, err := s.GetTraining(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(training)
	if err := validateTraining(*training); err != nil {
		return nil, err
	}
	training.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *training); err != nil {
		return nil, err
	}
	return training, nil
}

func validateTraining(t Training) error {
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end time are required", ErrInvalidInput)
	}
	if t.EndTime.Before(t.StartTime) {
		return fmt.Errorf("%w: end time precedes start time", ErrInvalidInput)
	}
	if _, ok := activityTypes[t.ActivityType]; !ok {
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, t.ActivityType)
	}
	if t.Distance < 0 || t.AverageSpeed < 0 {
		return fmt.Errorf("%w: distance and average speed must be >= 0", ErrInvalidInput)
	}
	return nil
}
