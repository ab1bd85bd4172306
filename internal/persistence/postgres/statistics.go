package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/events"
	"example.com/fitnesstracker/internal/observability"
)

const statisticsColumns = `statistics_id, user_id, total_trainings, total_distance, average_speed`

// StatisticsRepository stores one statistics row per user, enforced by UNIQUE(user_id).
type StatisticsRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStatisticsRepository constructs a StatisticsRepository.
func NewStatisticsRepository(pool *pgxpool.Pool) *StatisticsRepository {
	return &StatisticsRepository{pool: pool, now: time.Now}
}

// Upsert creates or overwrites the user's row with a single INSERT ... ON CONFLICT statement.
// Rows whose values already match are left untouched and emit no event.
func (r *StatisticsRepository) Upsert(ctx context.Context, stats domain.Statistics) (saved domain.Statistics, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Statistics{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO statistics (` + statisticsColumns + `, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (user_id) DO UPDATE
           SET total_trainings = EXCLUDED.total_trainings,
               total_distance  = EXCLUDED.total_distance,
               average_speed   = EXCLUDED.average_speed,
               updated_at      = NOW()
         WHERE (statistics.total_trainings, statistics.total_distance, statistics.average_speed)
               IS DISTINCT FROM (EXCLUDED.total_trainings, EXCLUDED.total_distance, EXCLUDED.average_speed)
        RETURNING ` + statisticsColumns

	saved, err = scanStatistics(tx.QueryRow(ctx, upsert,
		stats.ID, stats.UserID, stats.TotalTrainings, stats.TotalDistance, stats.AverageSpeed,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		saved, err = scanStatistics(tx.QueryRow(ctx, `SELECT `+statisticsColumns+` FROM statistics WHERE user_id = $1`, stats.UserID))
		if err != nil {
			return domain.Statistics{}, err
		}
		return saved, tx.Commit(ctx)
	case err != nil:
		return domain.Statistics{}, err
	}

	now := r.now().UTC()
	err = insertOutbox(ctx, tx, events.TypeStatisticsUpdated, saved.ID, saved.UserID, "", events.StatisticsUpdated{
		StatisticsID:   saved.ID,
		UserID:         saved.UserID,
		TotalTrainings: saved.TotalTrainings,
		TotalDistance:  saved.TotalDistance,
		AverageSpeed:   saved.AverageSpeed,
		OccurredAt:     now,
	})
	if err != nil {
		return domain.Statistics{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.Statistics{}, err
	}
	observability.RecordStatisticsUpserted(now)
	return saved, nil
}

// FindByUser returns the user's row or nil.
func (r *StatisticsRepository) FindByUser(ctx context.Context, userID string) (*domain.Statistics, error) {
	if !validID(userID) {
		return nil, nil
	}
	return r.one(ctx, `SELECT `+statisticsColumns+` FROM statistics WHERE user_id = $1`, userID)
}

// Get returns the row with the given ID or nil.
func (r *StatisticsRepository) Get(ctx context.Context, id string) (*domain.Statistics, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.one(ctx, `SELECT `+statisticsColumns+` FROM statistics WHERE statistics_id = $1`, id)
}

// List returns every row ordered by user.
func (r *StatisticsRepository) List(ctx context.Context) ([]domain.Statistics, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+statisticsColumns+` FROM statistics ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Statistics
	for rows.Next() {
		s, err := scanStatistics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StatisticsRepository) one(ctx context.Context, query string, arg any) (*domain.Statistics, error) {
	s, err := scanStatistics(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func scanStatistics(row rowScanner) (domain.Statistics, error) {
	var s domain.Statistics
	err := row.Scan(&s.ID, &s.UserID, &s.TotalTrainings, &s.TotalDistance, &s.AverageSpeed)
	return s, err
}
