// Package scheduler triggers the monthly statistics and report runs, either from a cron schedule or on demand.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"example.com/fitnesstracker/internal/domain"
)

// DefaultSchedule fires at 00:00 on the first day of every month.
const DefaultSchedule = "0 0 1 * *"

// Runner is a monthly pipeline.
type Runner interface {
	Run(ctx context.Context, window domain.Window) (domain.RunResult, error)
}

// Option configures optional behaviour for the Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the scheduler logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithLocation sets the timezone that both the cron schedule and the month boundaries use.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler owns no state between runs apart from the in-flight counter.
type Scheduler struct {
	statistics Runner
	reports    Runner
	location   *time.Location
	now        func() time.Time
	logger     *log.Logger

	inFlight atomic.Int64
	cron     *cron.Cron
	mu       sync.Mutex
}

// New constructs a Scheduler over the statistics and report pipelines.
func New(statistics, reports Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		statistics: statistics,
		reports:    reports,
		location:   time.Local,
		now:        time.Now,
		logger:     log.New(log.Writer(), "[scheduler] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the previous-month window relative to the scheduler clock.
func (s *Scheduler) Window() domain.Window {
	return domain.PreviousMonth(s.now().In(s.location))
}

// RunStatistics computes the window from now and runs the statistics pipeline.
func (s *Scheduler) RunStatistics(ctx context.Context) (domain.RunResult, error) {
	return s.run(ctx, s.statistics, s.Window())
}

// RunReports computes the window from now and runs the report pipeline.
func (s *Scheduler) RunReports(ctx context.Context) (domain.RunResult, error) {
	return s.run(ctx, s.reports, s.Window())
}

// MonthlyResult pairs the two results of a monthly firing.
type MonthlyResult struct {
	Statistics    domain.RunResult
	StatisticsErr error
	Reports       domain.RunResult
	ReportsErr    error
}

// RunMonthly computes the window once and runs both pipelines concurrently against it.
// Neither pipeline waits on or cancels the other.
func (s *Scheduler) RunMonthly(ctx context.Context) MonthlyResult {
	window := s.Window()

	var (
		out MonthlyResult
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Statistics, out.StatisticsErr = s.run(ctx, s.statistics, window)
	}()
	go func() {
		defer wg.Done()
		out.Reports, out.ReportsErr = s.run(ctx, s.reports, window)
	}()
	wg.Wait()
	return out
}

// Start registers the monthly job on the given cron spec and starts the cron loop.
// Runs started by the schedule use ctx and stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New(cron.WithLocation(s.location))
	if _, err := c.AddFunc(spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Printf("monthly schedule registered (spec=%q, tz=%s)", spec, s.location)
	return nil
}

// Stop halts the cron loop and waits for a firing in progress to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports how many pipeline runs are currently executing.
func (s *Scheduler) InFlight() int64 {
	return s.inFlight.Load()
}

func (s *Scheduler) fire(ctx context.Context) {
	result := s.RunMonthly(ctx)
	s.logResult(result.Statistics, result.StatisticsErr)
	s.logResult(result.Reports, result.ReportsErr)
}

func (s *Scheduler) run(ctx context.Context, runner Runner, window domain.Window) (domain.RunResult, error) {
	if n := s.inFlight.Add(1); n > 1 {
		s.logger.Printf("run starting while %d other run(s) are in flight; reports may be sent twice", n-1)
	}
	runsInFlight.Inc()
	defer func() {
		s.inFlight.Add(-1)
		runsInFlight.Dec()
	}()

	started := time.Now()
	result, err := runner.Run(ctx, window)
	pipeline := result.Pipeline
	if pipeline == "" {
		pipeline = "unknown"
	}
	runDuration.WithLabelValues(pipeline).Observe(time.Since(started).Seconds())
	runsTotal.WithLabelValues(pipeline, runStatus(result, err)).Inc()
	return result, err
}

func (s *Scheduler) logResult(result domain.RunResult, err error) {
	if err != nil {
		s.logger.Printf("%s run failed (window=%s): %v", result.Pipeline, result.Window, err)
		return
	}
	for _, o := range result.Failed() {
		s.logger.Printf("%s run: user %s failed: %v", result.Pipeline, o.UserID, o.Err)
	}
	s.logger.Printf("%s run complete (window=%s, ok=%d, failed=%d)", result.Pipeline, result.Window, result.Succeeded(), len(result.Failed()))
}

func runStatus(result domain.RunResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(result.Failed()) > 0:
		return "partial"
	default:
		return "ok"
	}
}
