package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// PipelineName labels report runs in results and metrics.
const PipelineName = "reports"

// UserLister enumerates every user a run must cover.
type UserLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

// Option configures optional behaviour for the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the pipeline logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithConcurrency bounds how many reports are in flight at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Pipeline sends one report to every user.
type Pipeline struct {
	users       UserLister
	dispatcher  *Dispatcher
	concurrency int
	logger      *log.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(users UserLister, dispatcher *Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		users:       users,
		dispatcher:  dispatcher,
		concurrency: 1,
		logger:      log.New(log.Writer(), "[reports] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run dispatches reports for the window. Delivery failures are per-user outcomes; the error is
// non-nil only when the user directory cannot be read.
func (p *Pipeline) Run(ctx context.Context, window domain.Window) (domain.RunResult, error) {
	result := domain.RunResult{Pipeline: PipelineName, Window: window, StartedAt: time.Now().UTC()}

	users, err := p.users.List(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: list users: %w", domain.ErrDataAccess, err)
	}

	result.Outcomes = domain.ForEachUser(ctx, users, p.concurrency, p.dispatch(window))
	result.FinishedAt = time.Now().UTC()

	p.logger.Printf("run finished (window=%s, users=%d, failed=%d)", window, len(users), len(result.Failed()))
	return result, nil
}

func (p *Pipeline) dispatch(window domain.Window) func(context.Context, domain.User) domain.UserOutcome {
	return func(ctx context.Context, user domain.User) domain.UserOutcome {
		return p.dispatcher.Dispatch(ctx, user, window)
	}
}
