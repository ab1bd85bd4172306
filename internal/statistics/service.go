package statistics

import (
	"context"

	"example.com/fitnesstracker/internal/domain"
)

// Service exposes the read side of the statistics store.
type Service struct {
	repo domain.StatisticsRepository
}

// NewService constructs a Service.
func NewService(repo domain.StatisticsRepository) *Service {
	return &Service{repo: repo}
}

// Get fetches a record by its ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Statistics, error) {
	stats, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, domain.ErrNotFound
	}
	return stats, nil
}

// ForUser fetches the record owned by the user.
func (s *Service) ForUser(ctx context.Context, userID string) (*domain.Statistics, error) {
	stats, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, domain.ErrNotFound
	}
	return stats, nil
}

// List returns every statistics record.
func (s *Service) List(ctx context.Context) ([]domain.Statistics, error) {
	return s.repo.List(ctx)
}
