package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/events"
	"example.com/fitnesstracker/internal/observability"
)

const trainingColumns = `training_id, user_id, start_time, end_time, activity_type, distance, average_speed, created_at, updated_at`

// TrainingRepository stores trainings in Postgres.
type TrainingRepository struct {
	pool *pgxpool.Pool
}

// NewTrainingRepository constructs a TrainingRepository.
func NewTrainingRepository(pool *pgxpool.Pool) *TrainingRepository {
	return &TrainingRepository{pool: pool}
}

// Create persists the training and records a training.recorded event in one transaction.
func (r *TrainingRepository) Create(ctx context.Context, t domain.Training) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO trainings (`+trainingColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.UserID, t.StartTime, t.EndTime, string(t.ActivityType), t.Distance, t.AverageSpeed, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}

	err = insertOutbox(ctx, tx, events.TypeTrainingRecorded, t.ID, t.UserID, t.ID+":"+events.TypeTrainingRecorded, events.TrainingRecorded{
		TrainingID:   t.ID,
		UserID:       t.UserID,
		ActivityType: string(t.ActivityType),
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		Distance:     t.Distance,
		AverageSpeed: t.AverageSpeed,
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordTrainingRecorded(t.CreatedAt)
	return nil
}

// Get returns the training or nil.
func (r *TrainingRepository) Get(ctx context.Context, id string) (*domain.Training, error) {
	if !validID(id) {
		return nil, nil
	}
	t, err := scanTraining(r.pool.QueryRow(ctx, `SELECT `+trainingColumns+` FROM trainings WHERE training_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// List returns trainings matching the filter ordered by start time.
func (r *TrainingRepository) List(ctx context.Context, filter domain.TrainingFilter) ([]domain.Training, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		if !validID(filter.UserID) {
			return nil, nil
		}
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ActivityType != "" {
		args = append(args, string(filter.ActivityType))
		where = append(where, fmt.Sprintf("activity_type = $%d", len(args)))
	}
	if !filter.FinishedAfter.IsZero() {
		args = append(args, filter.FinishedAfter)
		where = append(where, fmt.Sprintf("end_time > $%d", len(args)))
	}

	query := `SELECT ` + trainingColumns + ` FROM trainings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time, training_id`
	return r.query(ctx, query, args...)
}

// ListByUserInRange returns the user's trainings with start <= start_time < end.
func (r *TrainingRepository) ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Training, error) {
	if !validID(userID) {
		return nil, nil
	}
	return r.query(ctx,
		`SELECT `+trainingColumns+` FROM trainings
         WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
         ORDER BY start_time, training_id`,
		userID, start, end,
	)
}

// Update overwrites the mutable fields of an existing training.
func (r *TrainingRepository) Update(ctx context.Context, t domain.Training) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trainings SET start_time=$2, end_time=$3, activity_type=$4, distance=$5, average_speed=$6, updated_at=$7
         WHERE training_id=$1`,
		t.ID, t.StartTime, t.EndTime, string(t.ActivityType), t.Distance, t.AverageSpeed, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TrainingRepository) query(ctx context.Context, query string, args ...any) ([]domain.Training, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Training
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTraining(row rowScanner) (domain.Training, error) {
	var (
		t            domain.Training
		activityType string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.StartTime, &t.EndTime, &activityType, &t.Distance, &t.AverageSpeed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Training{}, err
	}
	t.ActivityType = domain.ActivityType(activityType)
	return t, nil
}
