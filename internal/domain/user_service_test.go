package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/persistence/memory"
)

func newUserInput(first, email string) domain.CreateUserInput {
	return domain.CreateUserInput{
		FirstName: first,
		LastName:  "Doe",
		Birthdate: time.Date(1990, time.May, 4, 0, 0, 0, 0, time.UTC),
		Email:     email,
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewUserService(memory.NewUserRepository())

	created, err := svc.CreateUser(ctx, newUserInput("Jane", "jane@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = svc.CreateUser(ctx, newUserInput("Janet", "jane@example.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestCreateUserValidatesInput(t *testing.T) {
	svc := domain.NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(context.Background(), newUserInput("", "x@example.com"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateUser(context.Background(), newUserInput("Jane", " "))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateUserAppliesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewUserService(memory.NewUserRepository())

	created, err := svc.CreateUser(ctx, newUserInput("Jane", "jane@example.com"))
	require.NoError(t, err)

	name := "Janet"
	updated, err := svc.UpdateUser(ctx, created.ID, domain.UserPatch{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, "Janet", updated.FirstName)
	require.Equal(t, "Doe", updated.LastName)
	require.Equal(t, "jane@example.com", updated.Email)

	fetched, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Janet", fetched.FirstName)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(ctx, newUserInput("Jane", "jane@example.com"))
	require.NoError(t, err)
	john, err := svc.CreateUser(ctx, newUserInput("John", "john@example.com"))
	require.NoError(t, err)

	taken := "jane@example.com"
	_, err = svc.UpdateUser(ctx, john.ID, domain.UserPatch{Email: &taken})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	same := "john@example.com"
	_, err = svc.UpdateUser(ctx, john.ID, domain.UserPatch{Email: &same})
	require.NoError(t, err)
}

func TestUserLookupsAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewUserService(memory.NewUserRepository())

	older := newUserInput("Old", "old@example.com")
	older.Birthdate = time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)
	oldUser, err := svc.CreateUser(ctx, older)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, newUserInput("Young", "young@example.com"))
	require.NoError(t, err)
	undated := newUserInput("Undated", "undated@example.com")
	undated.Birthdate = time.Time{}
	_, err = svc.CreateUser(ctx, undated)
	require.NoError(t, err)

	born, err := svc.ListUsersBornBefore(ctx, time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, born, 1)
	require.Equal(t, oldUser.ID, born[0].ID)

	byEmail, err := svc.GetUserByEmail(ctx, "old@example.com")
	require.NoError(t, err)
	require.Equal(t, oldUser.ID, byEmail.ID)

	require.NoError(t, svc.DeleteUser(ctx, oldUser.ID))
	_, err = svc.GetUser(ctx, oldUser.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, svc.DeleteUser(ctx, oldUser.ID), domain.ErrNotFound)
}
