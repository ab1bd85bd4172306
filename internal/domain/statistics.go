package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MonthlyAggregate is the reduced view of one user's trainings inside a window.
// AverageSpeed is the mean of per-training average speeds and 0 for an empty window.
type MonthlyAggregate struct {
	UserID         string
	TotalTrainings int
	TotalDistance  float64
	AverageSpeed   float64
}

// Statistics is the single persisted statistics record of a user. UserID is its functional key.
type Statistics struct {
	ID             string
	UserID         string
	TotalTrainings int
	TotalDistance  float64
	AverageSpeed   float64
}

// StatisticsRepository stores at most one Statistics record per user.
type StatisticsRepository interface {
	// Upsert atomically creates the user's record or overwrites its fields in place.
	// The returned record carries the identity that survived.
	Upsert(ctx context.Context, stats Statistics) (Statistics, error)
	FindByUser(ctx context.Context, userID string) (*Statistics, error)
	Get(ctx context.Context, id string) (*Statistics, error)
	List(ctx context.Context) ([]Statistics, error)
}

// ReportEmail is a composed monthly report ready for a mail transport.
type ReportEmail struct {
	To      string
	Subject string
	Body    string
}

// UserOutcome records how one user fared in a pipeline run.
type UserOutcome struct {
	UserID string
	Email  string
	Err    error
}

// OK reports whether the user was processed without error.
func (o UserOutcome) OK() bool { return o.Err == nil }

// RunResult summarises one run of a monthly pipeline.
type RunResult struct {
	Pipeline   string
	Window     Window
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []UserOutcome
}

// Succeeded counts users processed without error.
func (r RunResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error.
func (r RunResult) Failed() []UserOutcome {
	var out []UserOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Err joins every per-user failure, or returns nil when all users succeeded.
func (r RunResult) Err() error {
	var err error
	for _, o := range r.Failed() {
		err = errors.Join(err, fmt.Errorf("user %s: %w", o.UserID, o.Err))
	}
	return err
}
