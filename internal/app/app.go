// Package app assembles the tracker's stores, services and monthly pipelines from configuration.
// The API server and the admin CLI share it so both run identical pipelines.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitnesstracker/db/postgres/migrations"
	"example.com/fitnesstracker/internal/config"
	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/mail"
	"example.com/fitnesstracker/internal/persistence/memory"
	"example.com/fitnesstracker/internal/persistence/postgres"
	"example.com/fitnesstracker/internal/report"
	"example.com/fitnesstracker/internal/scheduler"
	"example.com/fitnesstracker/internal/statistics"
)

// Option customises how an App is assembled.
type Option func(*options)

type options struct {
	now    func() time.Time
	sender report.Sender
	logger *log.Logger
}

// WithClock pins the clock the scheduler derives windows from.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSender replaces the mail transport chosen from configuration.
func WithSender(sender report.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithLogger sets the base logger; components derive prefixed loggers from its writer.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// App holds the wired components. Pool is nil when the in-memory stores are in use.
type App struct {
	Config     config.Config
	Pool       *pgxpool.Pool
	Users      *domain.UserService
	Trainings  *domain.TrainingService
	Statistics *statistics.Service
	Scheduler  *scheduler.Scheduler
}

type stores struct {
	users      domain.UserRepository
	trainings  domain.TrainingRepository
	statistics domain.StatisticsRepository
}

// New connects the stores named by cfg and builds both pipelines and the scheduler over them.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	var s stores
	if cfg.PostgresURL == "" {
		o.logger.Printf("POSTGRES_URL not set; using in-memory stores")
		s = stores{
			users:      memory.NewUserRepository(),
			trainings:  memory.NewTrainingRepository(),
			statistics: memory.NewStatisticsRepository(),
		}
	} else {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		s = stores{
			users:      postgres.NewUserRepository(pool),
			trainings:  postgres.NewTrainingRepository(pool),
			statistics: postgres.NewStatisticsRepository(pool),
		}
	}

	sender := o.sender
	if sender == nil {
		if sender, err = newSender(cfg, o.logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Users = domain.NewUserService(s.users)
	a.Trainings = domain.NewTrainingService(s.trainings, s.users)
	a.Statistics = statistics.NewService(s.statistics)

	statsPipeline := statistics.NewPipeline(
		s.users,
		statistics.NewAggregator(s.trainings),
		statistics.NewCoordinator(s.statistics),
		statistics.WithConcurrency(cfg.RunConcurrency),
		statistics.WithLogger(prefixed(o.logger, "[statistics] ")),
	)
	reportPipeline := report.NewPipeline(
		s.users,
		report.NewDispatcher(s.trainings, report.NewComposer(cfg.ReportSubject), sender, prefixed(o.logger, "[reports] ")),
		report.WithConcurrency(cfg.RunConcurrency),
		report.WithLogger(prefixed(o.logger, "[reports] ")),
	)

	schedOpts := []scheduler.Option{
		scheduler.WithLocation(loc),
		scheduler.WithLogger(prefixed(o.logger, "[scheduler] ")),
	}
	if o.now != nil {
		schedOpts = append(schedOpts, scheduler.WithClock(o.now))
	}
	a.Scheduler = scheduler.New(statsPipeline, reportPipeline, schedOpts...)
	return a, nil
}

// Migrate applies pending schema migrations. It is a no-op for the in-memory stores.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.Pool == nil {
		return nil, nil
	}
	applied, err := migrations.Run(ctx, a.Pool)
	if err != nil {
		return applied, fmt.Errorf("migrate: %w", err)
	}
	return applied, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// newSender picks SMTP delivery when a relay host is configured and log delivery otherwise.
func newSender(cfg config.Config, logger *log.Logger) (report.Sender, error) {
	if cfg.SMTPHost == "" {
		return mail.NewLogSender(prefixed(logger, "[mail] ")), nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func prefixed(base *log.Logger, prefix string) *log.Logger {
	return log.New(base.Writer(), prefix, base.Flags())
}
