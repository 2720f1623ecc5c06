package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/goalquest-web/internal/models"
)

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser(&models.CreateUserRequest{
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Password:    "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, "local", user.Provider)
	assert.NotEmpty(t, user.Password)

	authed, err := svc.AuthenticateUser(&models.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.AuthenticateUser(&models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.Error(t, err)
}

func TestUserService_DuplicateEmailRejected(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	_, err := svc.CreateUser(&models.CreateUserRequest{
		DisplayName: "Alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(&models.CreateUserRequest{
		DisplayName: "Imposter", Email: "alice@example.com", Password: "secret456",
	})
	assert.Error(t, err)
}

func TestUserService_GetOrCreateOAuthUser(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.GetOrCreateOAuthUser("bob@example.com", "Bob", "google")
	require.NoError(t, err)
	assert.Equal(t, "google", user.Provider)

	again, err := svc.GetOrCreateOAuthUser("bob@example.com", "Robert", "google")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestUserService_BumpStatsFloorsAtZero(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser(&models.CreateUserRequest{
		DisplayName: "Alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.BumpStats(user.ID, 1, 2, 0, 20))
	require.NoError(t, svc.BumpStats(user.ID, 0, -5, 0, -100))

	stats, err := svc.GetUserStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GoalsCreated)
	assert.Equal(t, 0, stats.TasksCompleted)
	assert.Equal(t, 0, stats.TotalXP)
}

func TestUserService_ChangePasswordChecksCurrent(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser(&models.CreateUserRequest{
		DisplayName: "Alice", Email: "alice@example.com", Password: "oldpassword",
	})
	require.NoError(t, err)

	assert.Error(t, svc.ChangePassword(user.ID, "notit", "newpassword"))
	require.NoError(t, svc.ChangePassword(user.ID, "oldpassword", "newpassword"))

	_, err = svc.AuthenticateUser(&models.LoginRequest{
		Email: "alice@example.com", Password: "newpassword",
	})
	assert.NoError(t, err)
}
