package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// Sender delivers a composed e-mail. Implementations live in the mail package.
type Sender interface {
	Send(ctx context.Context, email domain.ReportEmail) error
}

// TrainingReader is the slice of the training store needed to count a user's trainings.
type TrainingReader interface {
	ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Training, error)
}

// Dispatcher composes and hands off one report per user. Failed deliveries are not retried.
type Dispatcher struct {
	trainings TrainingReader
	composer  *Composer
	sender    Sender
	logger    *log.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(trainings TrainingReader, composer *Composer, sender Sender, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{trainings: trainings, composer: composer, sender: sender, logger: logger}
}

// Dispatch sends the user's report for the window and returns the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, user domain.User, window domain.Window) domain.UserOutcome {
	outcome := domain.UserOutcome{UserID: user.ID, Email: user.Email}

	trainings, err := d.trainings.ListByUserInRange(ctx, user.ID, window.Start, window.End)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: list trainings for user %s: %w", domain.ErrDataAccess, user.ID, err)
		d.logger.Printf("count trainings failed (user=%s): %v", user.ID, err)
		reportsDispatched.WithLabelValues("data_access_failed").Inc()
		return outcome
	}

	email := d.composer.Compose(user, len(trainings), window)
	if err := d.sender.Send(ctx, email); err != nil {
		outcome.Err = fmt.Errorf("%w: send to %s: %w", domain.ErrDelivery, user.Email, err)
		d.logger.Printf("report delivery failed (user=%s, to=%s): %v", user.ID, user.Email, err)
		reportsDispatched.WithLabelValues("delivery_failed").Inc()
		return outcome
	}

	reportsDispatched.WithLabelValues("sent").Inc()
	return outcome
}
