// internal/services/user.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/logger"
	"github.com/tahcohcat/goalquest-web/internal/models"
)

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new local user account
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if exists, err := s.EmailExists(email); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("email already exists")
	}

	user := &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Provider:    "local",
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, password_hash, display_name, provider, created_at, updated_at, is_active)
		VALUES (:email, :password_hash, :display_name, :provider, :created_at, :updated_at, :is_active)
	`

	result, err := s.db.NamedExec(query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = int(id)

	if err := s.initializeUserStats(user.ID); err != nil {
		// Non-fatal, the stats row is created lazily elsewhere too
		logger.New().WithError(err).Warn(fmt.Sprintf("failed to initialize user stats for user %d", user.ID))
	}

	return user, nil
}

// GetOrCreateOAuthUser provisions an account for an externally authenticated
// identity. The identity provider is opaque here; all we keep is name, email
// and the provider label.
func (s *UserService) GetOrCreateOAuthUser(email, displayName, provider string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := s.GetUserByEmail(email)
	if err == nil {
		return user, nil
	}

	user = &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		Provider:    provider,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = email
	}

	query := `
		INSERT INTO users (email, password_hash, display_name, provider, created_at, updated_at, is_active)
		VALUES (:email, '', :display_name, :provider, :created_at, :updated_at, :is_active)
	`
	result, err := s.db.NamedExec(query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}
	user.ID = int(id)

	if err := s.initializeUserStats(user.ID); err != nil {
		logger.New().WithError(err).Warn(fmt.Sprintf("failed to initialize user stats for user %d", user.ID))
	}

	return user, nil
}

// AuthenticateUser validates login credentials and returns the user
func (s *UserService) AuthenticateUser(req *models.LoginRequest) (*models.User, error) {
	user, err := s.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if !user.CheckPassword(req.Password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	if !user.IsActive {
		return nil, fmt.Errorf("account is disabled")
	}

	if err := s.UpdateLastLogin(user.ID); err != nil {
		logger.New().WithError(err).Warn(fmt.Sprintf("failed to update last login for user %d", user.ID))
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, display_name, provider, created_at, updated_at, last_login_at, is_active
			  FROM users WHERE id = ?`

	err := s.db.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by their email
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password_hash, display_name, provider, created_at, updated_at, last_login_at, is_active
			  FROM users WHERE email = ?`

	err := s.db.Get(&user, query, email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// EmailExists checks if an email is already registered
func (s *UserService) EmailExists(email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE email = ?`
	err := s.db.Get(&count, query, email)
	return count > 0, err
}

// UpdateLastLogin updates the user's last login timestamp
func (s *UserService) UpdateLastLogin(userID int) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, time.Now(), userID)
	return err
}

// GetUserStats retrieves cumulative goal-tracking statistics
func (s *UserService) GetUserStats(userID int) (*models.UserStats, error) {
	var stats models.UserStats
	query := `SELECT user_id, goals_created, tasks_completed, levels_completed, total_xp
			  FROM user_stats WHERE user_id = ?`

	err := s.db.Get(&stats, query, userID)
	if err == sql.ErrNoRows {
		return &models.UserStats{UserID: userID}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

// BumpStats adjusts the cumulative counters after a progression event.
// Deltas may be negative (a task was un-completed).
func (s *UserService) BumpStats(userID, goalsCreated, tasksCompleted, levelsCompleted, xp int) error {
	if err := s.initializeUserStats(userID); err != nil {
		return err
	}
	query := `
		UPDATE user_stats
		SET goals_created = goals_created + ?,
		    tasks_completed = MAX(0, tasks_completed + ?),
		    levels_completed = MAX(0, levels_completed + ?),
		    total_xp = MAX(0, total_xp + ?)
		WHERE user_id = ?
	`
	_, err := s.db.Exec(query, goalsCreated, tasksCompleted, levelsCompleted, xp, userID)
	return err
}

// initializeUserStats creates initial stats record for a new user
func (s *UserService) initializeUserStats(userID int) error {
	query := `
		INSERT OR IGNORE INTO user_stats (user_id, goals_created, tasks_completed, levels_completed, total_xp)
		VALUES (?, 0, 0, 0, 0)
	`
	_, err := s.db.Exec(query, userID)
	return err
}

// UpdateProfile allows users to update their display name and email
func (s *UserService) UpdateProfile(userID int, displayName, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	// Check if email is taken by another user
	var count int
	query := `SELECT COUNT(*) FROM users WHERE email = ? AND id != ?`
	if err := s.db.Get(&count, query, email, userID); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("email already exists")
	}

	query = `UPDATE users SET display_name = ?, email = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, strings.TrimSpace(displayName), email, time.Now(), userID)
	return err
}

// ChangePassword allows users to change their password
func (s *UserService) ChangePassword(userID int, currentPassword, newPassword string) error {
	var user models.User
	query := `SELECT password_hash FROM users WHERE id = ?`
	if err := s.db.Get(&user, query, userID); err != nil {
		return fmt.Errorf("user not found")
	}

	if !user.CheckPassword(currentPassword) {
		return fmt.Errorf("current password is incorrect")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	updateQuery := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.Exec(updateQuery, user.Password, time.Now(), userID)
	return err
}
