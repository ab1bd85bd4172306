package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a registered athlete. Email is the only address reports are delivered to.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Birthdate time.Time
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPatch carries optional field updates; nil fields are left untouched.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Birthdate *time.Time
	Email     *string
}

// Apply copies every non-nil field onto u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Birthdate != nil {
		u.Birthdate = *p.Birthdate
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}

// UserRepository captures persistence operations for users.
// Get and GetByEmail return (nil, nil) when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserInput captures the payload from the API layer.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Birthdate time.Time
	Email     string
}

// UserService orchestrates user management.
type UserService struct {
	repo UserRepository
}

// NewUserService constructs a UserService.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// CreateUser validates and stores a new user, rejecting e-mail addresses already in use.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := s.ensureEmailFree(ctx, input.Email, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := User{
		ID:        uuid.NewString(),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Birthdate: input.Birthdate,
		Email:     input.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetUserByEmail fetches by e-mail address.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListUsers returns every known user.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ListUsersBornBefore returns users whose birthdate is strictly before date. Users without a
// birthdate are never included.
func (s *UserService) ListUsersBornBefore(ctx context.Context, date time.Time) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		if !u.Birthdate.IsZero() && u.Birthdate.Before(date) {
			out = append(out, u)
		}
	}
	return out, nil
}

// UpdateUser applies the patch to an existing user.
func (s *UserService) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil && *patch.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *patch.Email, id); err != nil {
			return nil, err
		}
	}

	patch.Apply(user)
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the user; ErrNotFound if absent.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != ownerID {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}
	return nil
}
