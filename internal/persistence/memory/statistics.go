package memory

import (
	"context"
	"sort"
	"sync"

	"example.com/fitnesstracker/internal/domain"
)

// StatisticsRepository keys statistics by user so a user can never hold two records.
type StatisticsRepository struct {
	mu     sync.RWMutex
	byUser map[string]domain.Statistics
}

// NewStatisticsRepository constructs an empty repository.
func NewStatisticsRepository() *StatisticsRepository {
	return &StatisticsRepository{byUser: make(map[string]domain.Statistics)}
}

// Upsert creates or replaces the user's record under one lock, keeping the existing ID.
func (r *StatisticsRepository) Upsert(ctx context.Context, stats domain.Statistics) (domain.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUser[stats.UserID]; ok {
		stats.ID = existing.ID
	}
	r.byUser[stats.UserID] = stats
	return stats, nil
}

// FindByUser returns the user's record or nil.
func (r *StatisticsRepository) FindByUser(ctx context.Context, userID string) (*domain.Statistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

// Get returns the record with the given ID or nil.
func (r *StatisticsRepository) Get(ctx context.Context, id string) (*domain.Statistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stats := range r.byUser {
		if stats.ID == id {
			s := stats
			return &s, nil
		}
	}
	return nil, nil
}

// List returns all records ordered by user ID.
func (r *StatisticsRepository) List(ctx context.Context) ([]domain.Statistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Statistics, 0, len(r.byUser))
	for _, stats := range r.byUser {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
