package statistics

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// PipelineName labels statistics runs in results and metrics.
const PipelineName = "statistics"

// UserLister enumerates every user a run must cover.
type UserLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

// Option configures optional behaviour for the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the logger used to report per-user failures.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithConcurrency bounds how many users are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Pipeline aggregates and upserts statistics for every user.
type Pipeline struct {
	users       UserLister
	aggregator  *Aggregator
	coordinator *Coordinator
	concurrency int
	logger      *log.Logger
}

// NewPipeline wires the aggregation engine and the upsert coordinator over the user directory.
func NewPipeline(users UserLister, aggregator *Aggregator, coordinator *Coordinator, opts ...Option) *Pipeline {
	p := &Pipeline{
		users:       users,
		aggregator:  aggregator,
		coordinator: coordinator,
		concurrency: 1,
		logger:      log.New(log.Writer(), "[statistics] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every user for the window. A user's failure is recorded in its outcome and never
// stops the others; the error is non-nil only when the user directory cannot be read.
func (p *Pipeline) Run(ctx context.Context, window domain.Window) (domain.RunResult, error) {
	result := domain.RunResult{Pipeline: PipelineName, Window: window, StartedAt: time.Now().UTC()}

	users, err := p.users.List(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: list users: %w", domain.ErrDataAccess, err)
	}

	result.Outcomes = domain.ForEachUser(ctx, users, p.concurrency, func(ctx context.Context, user domain.User) domain.UserOutcome {
		return p.processUser(ctx, user, window)
	})
	result.FinishedAt = time.Now().UTC()

	p.logger.Printf("run finished (window=%s, users=%d, failed=%d)", window, len(users), len(result.Failed()))
	return result, nil
}

func (p *Pipeline) processUser(ctx context.Context, user domain.User, window domain.Window) domain.UserOutcome {
	outcome := domain.UserOutcome{UserID: user.ID, Email: user.Email}

	agg, err := p.aggregator.Aggregate(ctx, user.ID, window)
	if err != nil {
		p.logger.Printf("aggregate failed (user=%s): %v", user.ID, err)
		usersProcessed.WithLabelValues("aggregate_failed").Inc()
		outcome.Err = err
		return outcome
	}

	if _, err := p.coordinator.Apply(ctx, agg); err != nil {
		p.logger.Printf("upsert failed (user=%s): %v", user.ID, err)
		usersProcessed.WithLabelValues("upsert_failed").Inc()
		outcome.Err = err
		return outcome
	}

	usersProcessed.WithLabelValues("upserted").Inc()
	return outcome
}
