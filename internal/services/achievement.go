package services

import (
	"fmt"
	"time"

	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/models"
)

type AchievementService struct {
	db    *database.DB
	users *UserService
}

func NewAchievementService(db *database.DB, users *UserService) *AchievementService {
	return &AchievementService{db: db, users: users}
}

// GetUserAchievements returns all achievements with user's progress
func (s *AchievementService) GetUserAchievements(userID int) ([]models.UserAchievementView, error) {
	query := `
		SELECT
			a.id, a.icon, a.title, a.description, a.type, a.category, a.max_progress, a.created_at,
			COALESCE(ua.progress, 0) as progress,
			COALESCE(ua.completed, false) as completed,
			ua.completed_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = ?
		ORDER BY ua.completed DESC, a.category, a.created_at
	`

	var achievements []models.UserAchievementView
	err := s.db.Select(&achievements, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}

	return achievements, nil
}

// UpdateAchievementProgress updates or creates user achievement progress
func (s *AchievementService) UpdateAchievementProgress(userID int, achievementID string, progress int) error {
	var achievement models.Achievement
	err := s.db.Get(&achievement, "SELECT * FROM achievements WHERE id = ?", achievementID)
	if err != nil {
		return fmt.Errorf("achievement not found: %w", err)
	}

	// Cap progress at max_progress
	if achievement.MaxProgress > 0 && progress > achievement.MaxProgress {
		progress = achievement.MaxProgress
	}

	completed := false
	var completedAt *time.Time

	if achievement.MaxProgress == 0 {
		// Binary achievement (no progress tracking)
		completed = progress > 0
	} else {
		completed = progress >= achievement.MaxProgress
	}

	if completed {
		now := time.Now()
		completedAt = &now
	}

	// Upsert user achievement
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, progress, completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, achievement_id) DO UPDATE SET
			progress = ?,
			completed = ?,
			completed_at = CASE WHEN ? THEN ? ELSE completed_at END,
			updated_at = ?
	`

	now := time.Now()
	wasCompleted := s.isCompleted(userID, achievementID)
	_, err = s.db.Exec(query,
		userID, achievementID, progress, completed, completedAt, now, now,
		progress, completed, completed, completedAt, now)

	if err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}

	// If achievement was just completed, record activity
	if completed && !wasCompleted {
		s.RecordActivity(userID, "badge_earned", fmt.Sprintf("Earned %q badge", achievement.Title), "", achievement.Icon)
	}

	return nil
}

// CheckAndUpdateAchievements checks achievement conditions after
// progression events fired by the API layer.
func (s *AchievementService) CheckAndUpdateAchievements(userID int, event string, data map[string]interface{}) error {
	switch event {
	case "goal_created":
		return s.checkGoalAchievements(userID)
	case "task_completed":
		return s.checkTaskAchievements(userID)
	case "level_completed":
		return s.checkLevelAchievements(userID)
	}
	return nil
}

func (s *AchievementService) checkGoalAchievements(userID int) error {
	stats, err := s.users.GetUserStats(userID)
	if err != nil {
		return err
	}

	if stats.GoalsCreated >= 1 {
		s.UpdateAchievementProgress(userID, "first-goal", 1)
	}
	s.UpdateAchievementProgress(userID, "goal-collector", stats.GoalsCreated)
	return nil
}

func (s *AchievementService) checkTaskAchievements(userID int) error {
	stats, err := s.users.GetUserStats(userID)
	if err != nil {
		return err
	}

	if stats.TasksCompleted >= 1 {
		s.UpdateAchievementProgress(userID, "first-step", 1)
	}
	s.UpdateAchievementProgress(userID, "taskmaster", stats.TasksCompleted)
	s.UpdateAchievementProgress(userID, "task-machine", stats.TasksCompleted)
	s.UpdateAchievementProgress(userID, "xp-hunter", stats.TotalXP)

	// Night Owl (task completed after midnight)
	now := time.Now()
	if now.Hour() >= 0 && now.Hour() < 6 {
		s.UpdateAchievementProgress(userID, "night-owl", 1)
	}

	// Weekend Warrior (5 tasks completed on weekends)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		current := s.getAchievementProgress(userID, "weekend-warrior")
		s.UpdateAchievementProgress(userID, "weekend-warrior", current+1)
	}

	return nil
}

func (s *AchievementService) checkLevelAchievements(userID int) error {
	stats, err := s.users.GetUserStats(userID)
	if err != nil {
		return err
	}

	if stats.LevelsCompleted >= 1 {
		s.UpdateAchievementProgress(userID, "level-up", 1)
	}
	s.UpdateAchievementProgress(userID, "ladder-climber", stats.LevelsCompleted)
	s.UpdateAchievementProgress(userID, "xp-hunter", stats.TotalXP)
	return nil
}

// Helper methods
func (s *AchievementService) getAchievementProgress(userID int, achievementID string) int {
	var progress int
	query := `SELECT COALESCE(progress, 0) FROM user_achievements WHERE user_id = ? AND achievement_id = ?`
	err := s.db.Get(&progress, query, userID, achievementID)
	if err != nil {
		return 0
	}
	return progress
}

func (s *AchievementService) isCompleted(userID int, achievementID string) bool {
	var completed bool
	query := `SELECT COALESCE(completed, false) FROM user_achievements WHERE user_id = ? AND achievement_id = ?`
	if err := s.db.Get(&completed, query, userID, achievementID); err != nil {
		return false
	}
	return completed
}

// RecordActivity adds a new activity entry for the user
func (s *AchievementService) RecordActivity(userID int, activityType, title, details, icon string) error {
	query := `
		INSERT INTO activities (user_id, type, title, details, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, userID, activityType, title, details, icon, time.Now())
	return err
}

// GetRecentActivities returns recent user activities
func (s *AchievementService) GetRecentActivities(userID int, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, type, title, details, icon, created_at
		FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	var activities []models.Activity
	err := s.db.Select(&activities, query, userID, limit)
	return activities, err
}

// Seed default achievements
func (s *AchievementService) SeedDefaultAchievements() error {
	achievements := []models.Achievement{
		{ID: "first-goal", Icon: "🎯", Title: "Dreamer", Description: "Create your first goal", Type: "milestone", Category: "goals"},
		{ID: "goal-collector", Icon: "🗂️", Title: "Goal Collector", Description: "Create 5 goals", Type: "progress", Category: "goals", MaxProgress: 5},
		{ID: "first-step", Icon: "👣", Title: "First Step", Description: "Complete your first task", Type: "milestone", Category: "tasks"},
		{ID: "taskmaster", Icon: "✅", Title: "Taskmaster", Description: "Complete 10 tasks", Type: "progress", Category: "tasks", MaxProgress: 10},
		{ID: "task-machine", Icon: "⚙️", Title: "Task Machine", Description: "Complete 50 tasks", Type: "progress", Category: "tasks", MaxProgress: 50},
		{ID: "level-up", Icon: "🏆", Title: "Level Up", Description: "Complete your first level", Type: "milestone", Category: "levels"},
		{ID: "ladder-climber", Icon: "🪜", Title: "Ladder Climber", Description: "Complete 5 levels", Type: "progress", Category: "levels", MaxProgress: 5},
		{ID: "xp-hunter", Icon: "⭐", Title: "XP Hunter", Description: "Earn 500 XP", Type: "progress", Category: "xp", MaxProgress: 500},
		{ID: "night-owl", Icon: "🌙", Title: "Night Owl", Description: "Complete a task after midnight", Type: "special", Category: "time"},
		{ID: "weekend-warrior", Icon: "🏖️", Title: "Weekend Warrior", Description: "Complete 5 tasks on weekends", Type: "progress", Category: "time", MaxProgress: 5},
	}

	for _, achievement := range achievements {
		query := `
			INSERT OR IGNORE INTO achievements (id, icon, title, description, type, category, max_progress, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.Exec(query, achievement.ID, achievement.Icon, achievement.Title,
			achievement.Description, achievement.Type, achievement.Category, achievement.MaxProgress, time.Now())
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", achievement.ID, err)
		}
	}

	return nil
}
