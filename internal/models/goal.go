package models

import (
	"time"
)

// Task is the smallest unit of work inside a level.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Level is an ordered stage within a goal. Level ids always equal the
// level's 1-based position after a reorder; tasks live inside their level
// and are never referenced by a separate level id.
type Level struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
	Reward      string `json:"reward"`
	Completed   bool   `json:"completed"`
	Unlocked    bool   `json:"unlocked"`
}

// Goal is a top-level user objective composed of ordered levels.
type Goal struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	Category     string    `json:"category"`
	Levels       []Level   `json:"levels"`
	CurrentLevel int       `json:"currentLevel"`
	TotalXP      int       `json:"totalXP"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Collection is the full set of goals owned by one user. It is persisted
// as a single blob keyed by the user's email.
type Collection struct {
	Goals []Goal `json:"goals"`
}

// GoalInput carries the mutable fields of a goal for create/edit requests.
type GoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}

// LevelInput carries the mutable fields of a level.
type LevelInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      string `json:"reward"`
}

// TaskInput carries the mutable fields of a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GoalProgress is a derived, read-only progress summary for one goal.
type GoalProgress struct {
	GoalID         string  `json:"goal_id"`
	CurrentLevel   int     `json:"current_level"`
	TotalXP        int     `json:"total_xp"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	Progress       float64 `json:"progress"`
}
