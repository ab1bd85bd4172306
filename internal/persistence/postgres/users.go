package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitnesstracker/internal/domain"
)

const userColumns = `user_id, first_name, last_name, birthdate, email, created_at, updated_at`

// UserRepository stores users in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create implements domain.UserRepository.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		user.ID, user.FirstName, user.LastName, nullTime(user.Birthdate), user.Email, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
	}
	return err
}

// Get returns the user or nil.
func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
}

// GetByEmail returns the user owning the address, compared case-insensitively, or nil.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

// List returns every user ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY last_name, first_name, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update overwrites the mutable fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET first_name=$2, last_name=$3, birthdate=$4, email=$5, updated_at=$6 WHERE user_id=$1`,
		user.ID, user.FirstName, user.LastName, nullTime(user.Birthdate), user.Email, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the user together with its trainings and statistics.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) one(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user      domain.User
		birthdate *time.Time
	)
	if err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &birthdate, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	if birthdate != nil {
		user.Birthdate = *birthdate
	}
	return user, nil
}
