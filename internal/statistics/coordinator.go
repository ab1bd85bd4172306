package statistics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"example.com/fitnesstracker/internal/domain"
)

// Coordinator folds a fresh aggregate into the user's single statistics record.
type Coordinator struct {
	store domain.StatisticsRepository
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(store domain.StatisticsRepository) *Coordinator {
	return &Coordinator{store: store}
}

// Apply upserts the aggregate keyed by user. A new ID is only kept when the user had no record yet.
func (c *Coordinator) Apply(ctx context.Context, agg domain.MonthlyAggregate) (domain.Statistics, error) {
	saved, err := c.store.Upsert(ctx, domain.Statistics{
		ID:             uuid.NewString(),
		UserID:         agg.UserID,
		TotalTrainings: agg.TotalTrainings,
		TotalDistance:  agg.TotalDistance,
		AverageSpeed:   agg.AverageSpeed,
	})
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("%w: upsert statistics for user %s: %w", domain.ErrDataAccess, agg.UserID, err)
	}
	return saved, nil
}
