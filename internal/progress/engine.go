// Package progress implements the goal/level/task progression rules.
//
// Every operation is a pure transform: it takes a collection, returns a new
// collection and never touches its input or performs I/O. Persistence and
// session handling live with the callers in internal/api and
// internal/services.
package progress

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tahcohcat/goalquest-web/internal/models"
)

// XP awards. A task toggle moves XP by TaskXP, a manual toggle of an empty
// level by LevelToggleXP, and advancing to the next level pays LevelBonusXP
// on top.
const (
	TaskXP        = 10
	LevelToggleXP = 50
	LevelBonusXP  = 50
)

// DefaultReward is used when a level is created without a reward text.
const DefaultReward = "🎉 Level Complete!"

// ToggleResult describes what a toggle operation changed, so callers can
// persist, broadcast and award badges without diffing collections.
type ToggleResult struct {
	Completed      bool `json:"completed"`
	XPDelta        int  `json:"xp_delta"`
	LevelCompleted bool `json:"level_completed"`
	// LevelChanged reports that the owning level's completed flag flipped
	// during this toggle, in the direction LevelCompleted indicates.
	LevelChanged  bool `json:"level_changed"`
	UnlockedLevel int  `json:"unlocked_level"` // 0 when nothing unlocked
	CurrentLevel  int  `json:"current_level"`
	TotalXP       int  `json:"total_xp"`
}

// CreateGoal appends a new goal to the collection. The goal starts with no
// levels, currentLevel 1 and zero XP.
func CreateGoal(c models.Collection, in models.GoalInput) (models.Collection, models.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, models.Goal{}, titleRequired("goal")
	}

	out := clone(c)
	goal := models.Goal{
		ID:           newGoalID(),
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Icon:         in.Icon,
		Category:     in.Category,
		Levels:       []models.Level{},
		CurrentLevel: 1,
		TotalXP:      0,
		CreatedAt:    time.Now(),
	}
	out.Goals = append(out.Goals, goal)
	return out, goal, nil
}

// EditGoal replaces the mutable fields of an existing goal.
func EditGoal(c models.Collection, goalID string, in models.GoalInput) (models.Collection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, titleRequired("goal")
	}

	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, goalNotFound(goalID)
	}

	goal.Title = title
	goal.Description = strings.TrimSpace(in.Description)
	goal.Icon = in.Icon
	goal.Category = in.Category
	return out, nil
}

// DeleteGoal removes a goal. Deleting a goal that is already gone is a
// silent no-op.
func DeleteGoal(c models.Collection, goalID string) models.Collection {
	out := clone(c)
	kept := out.Goals[:0]
	for _, g := range out.Goals {
		if g.ID != goalID {
			kept = append(kept, g)
		}
	}
	out.Goals = kept
	return out
}

// CreateLevel appends a level to a goal. The first level of a goal starts
// unlocked; every later level starts locked.
func CreateLevel(c models.Collection, goalID string, in models.LevelInput) (models.Collection, models.Level, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, models.Level{}, titleRequired("level")
	}

	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, models.Level{}, goalNotFound(goalID)
	}

	reward := strings.TrimSpace(in.Reward)
	if reward == "" {
		reward = DefaultReward
	}

	maxID := 0
	for _, l := range goal.Levels {
		if l.ID > maxID {
			maxID = l.ID
		}
	}

	level := models.Level{
		ID:          maxID + 1,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Tasks:       []models.Task{},
		Reward:      reward,
		Completed:   false,
		Unlocked:    len(goal.Levels) == 0,
	}
	goal.Levels = append(goal.Levels, level)
	return out, level, nil
}

// EditLevel replaces the mutable fields of a level.
func EditLevel(c models.Collection, goalID string, levelID int, in models.LevelInput) (models.Collection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, titleRequired("level")
	}

	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, goalNotFound(goalID)
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return c, levelNotFound(levelID)
	}

	level.Title = title
	level.Description = strings.TrimSpace(in.Description)
	if reward := strings.TrimSpace(in.Reward); reward != "" {
		level.Reward = reward
	}
	return out, nil
}

// DeleteLevel removes a level from a goal. Missing goals or levels are a
// silent no-op.
func DeleteLevel(c models.Collection, goalID string, levelID int) models.Collection {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return out
	}
	kept := goal.Levels[:0]
	for _, l := range goal.Levels {
		if l.ID != levelID {
			kept = append(kept, l)
		}
	}
	goal.Levels = kept
	return out
}

// ReorderLevels moves a level to the position of another level and renumbers
// every level id to its new 1-based position. The goal's currentLevel is
// re-resolved so it keeps pointing at the same level object after the
// renumbering.
func ReorderLevels(c models.Collection, goalID string, fromLevelID, toLevelID int) (models.Collection, error) {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, goalNotFound(goalID)
	}
	if fromLevelID == toLevelID {
		return out, nil
	}

	fromIdx, toIdx := -1, -1
	for i, l := range goal.Levels {
		if l.ID == fromLevelID {
			fromIdx = i
		}
		if l.ID == toLevelID {
			toIdx = i
		}
	}
	if fromIdx == -1 {
		return c, levelNotFound(fromLevelID)
	}
	if toIdx == -1 {
		return c, levelNotFound(toLevelID)
	}

	currentID := goal.CurrentLevel

	moved := goal.Levels[fromIdx]
	levels := append(goal.Levels[:fromIdx], goal.Levels[fromIdx+1:]...)
	levels = append(levels, models.Level{})
	copy(levels[toIdx+1:], levels[toIdx:])
	levels[toIdx] = moved

	// Level id == 1-based position, always.
	newCurrent := currentID
	for i := range levels {
		if levels[i].ID == currentID {
			newCurrent = i + 1
		}
		levels[i].ID = i + 1
	}
	goal.Levels = levels
	goal.CurrentLevel = newCurrent
	return out, nil
}

// CreateTask appends a task to a level with a fresh opaque id.
func CreateTask(c models.Collection, goalID string, levelID int, in models.TaskInput) (models.Collection, models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, models.Task{}, titleRequired("task")
	}

	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, models.Task{}, goalNotFound(goalID)
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return c, models.Task{}, levelNotFound(levelID)
	}

	task := models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Completed:   false,
	}
	level.Tasks = append(level.Tasks, task)
	return out, task, nil
}

// EditTask replaces the mutable fields of a task.
func EditTask(c models.Collection, goalID string, levelID int, taskID string, in models.TaskInput) (models.Collection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return c, titleRequired("task")
	}

	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, goalNotFound(goalID)
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return c, levelNotFound(levelID)
	}
	task := findTask(level, taskID)
	if task == nil {
		return c, taskNotFound(taskID)
	}

	task.Title = title
	task.Description = strings.TrimSpace(in.Description)
	return out, nil
}

// DeleteTask removes a task from a level. Missing entities are a silent
// no-op. Deleting a completed task does not refund its XP.
func DeleteTask(c models.Collection, goalID string, levelID int, taskID string) models.Collection {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return out
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return out
	}
	kept := level.Tasks[:0]
	for _, t := range level.Tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	level.Tasks = kept
	return out
}

// MoveTask moves a task between levels (or within one), inserting it before
// beforeTaskID in the target level. An empty or unknown beforeTaskID appends
// to the end. Tasks travel with their completed state; no XP moves.
func MoveTask(c models.Collection, goalID string, fromLevelID int, taskID string, toLevelID int, beforeTaskID string) (models.Collection, error) {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, goalNotFound(goalID)
	}
	from := findLevel(goal, fromLevelID)
	if from == nil {
		return c, levelNotFound(fromLevelID)
	}
	to := findLevel(goal, toLevelID)
	if to == nil {
		return c, levelNotFound(toLevelID)
	}

	taskIdx := -1
	for i, t := range from.Tasks {
		if t.ID == taskID {
			taskIdx = i
			break
		}
	}
	if taskIdx == -1 {
		return c, taskNotFound(taskID)
	}

	moved := from.Tasks[taskIdx]
	from.Tasks = append(from.Tasks[:taskIdx], from.Tasks[taskIdx+1:]...)

	insertAt := len(to.Tasks)
	if beforeTaskID != "" {
		for i, t := range to.Tasks {
			if t.ID == beforeTaskID {
				insertAt = i
				break
			}
		}
	}
	to.Tasks = append(to.Tasks, models.Task{})
	copy(to.Tasks[insertAt+1:], to.Tasks[insertAt:])
	to.Tasks[insertAt] = moved
	return out, nil
}

// ToggleTask flips a task's completed flag, moves XP by TaskXP, recomputes
// the owning level's completion and runs the unlock step. At most one level
// unlocks per call and currentLevel never moves backwards.
func ToggleTask(c models.Collection, goalID string, levelID int, taskID string) (models.Collection, ToggleResult, error) {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, ToggleResult{}, goalNotFound(goalID)
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return c, ToggleResult{}, levelNotFound(levelID)
	}
	task := findTask(level, taskID)
	if task == nil {
		return c, ToggleResult{}, taskNotFound(taskID)
	}

	task.Completed = !task.Completed
	delta := TaskXP
	if !task.Completed {
		delta = -TaskXP
	}
	goal.TotalXP += delta

	// A level with tasks derives its completion from them.
	wasCompleted := level.Completed
	allDone := true
	for _, t := range level.Tasks {
		if !t.Completed {
			allDone = false
			break
		}
	}
	level.Completed = len(level.Tasks) > 0 && allDone

	unlocked := advance(goal)

	res := ToggleResult{
		Completed:      task.Completed,
		XPDelta:        delta,
		LevelCompleted: level.Completed,
		LevelChanged:   level.Completed != wasCompleted,
		UnlockedLevel:  unlocked,
		CurrentLevel:   goal.CurrentLevel,
		TotalXP:        goal.TotalXP,
	}
	return out, res, nil
}

// ToggleLevelCompletion flips the completed flag of a level that holds no
// tasks, moving XP by LevelToggleXP and running the unlock step. Levels with
// tasks derive completion from their tasks and are rejected here.
func ToggleLevelCompletion(c models.Collection, goalID string, levelID int) (models.Collection, ToggleResult, error) {
	out := clone(c)
	goal := findGoal(&out, goalID)
	if goal == nil {
		return c, ToggleResult{}, goalNotFound(goalID)
	}
	level := findLevel(goal, levelID)
	if level == nil {
		return c, ToggleResult{}, levelNotFound(levelID)
	}
	if len(level.Tasks) > 0 {
		return c, ToggleResult{}, fmt.Errorf("%w: level %d has tasks; completion is derived", ErrValidation, levelID)
	}

	level.Completed = !level.Completed
	delta := LevelToggleXP
	if !level.Completed {
		delta = -LevelToggleXP
	}
	goal.TotalXP += delta

	unlocked := advance(goal)

	res := ToggleResult{
		Completed:      level.Completed,
		XPDelta:        delta,
		LevelCompleted: level.Completed,
		LevelChanged:   true,
		UnlockedLevel:  unlocked,
		CurrentLevel:   goal.CurrentLevel,
		TotalXP:        goal.TotalXP,
	}
	return out, res, nil
}

// advance unlocks the next level when the current one is complete. It never
// unlocks more than one level, never skips and never moves backwards.
func advance(goal *models.Goal) int {
	current := findLevel(goal, goal.CurrentLevel)
	if current == nil || !current.Completed {
		return 0
	}
	next := findLevel(goal, goal.CurrentLevel+1)
	if next == nil || next.Unlocked {
		return 0
	}
	next.Unlocked = true
	goal.CurrentLevel++
	goal.TotalXP += LevelBonusXP
	return next.ID
}

func findGoal(c *models.Collection, id string) *models.Goal {
	for i := range c.Goals {
		if c.Goals[i].ID == id {
			return &c.Goals[i]
		}
	}
	return nil
}

func findLevel(g *models.Goal, id int) *models.Level {
	for i := range g.Levels {
		if g.Levels[i].ID == id {
			return &g.Levels[i]
		}
	}
	return nil
}

func findTask(l *models.Level, id string) *models.Task {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return &l.Tasks[i]
		}
	}
	return nil
}

// clone deep-copies a collection so operations never alias their input.
func clone(c models.Collection) models.Collection {
	out := models.Collection{Goals: make([]models.Goal, len(c.Goals))}
	copy(out.Goals, c.Goals)
	for i := range out.Goals {
		levels := make([]models.Level, len(out.Goals[i].Levels))
		copy(levels, out.Goals[i].Levels)
		for j := range levels {
			tasks := make([]models.Task, len(levels[j].Tasks))
			copy(tasks, levels[j].Tasks)
			levels[j].Tasks = tasks
		}
		out.Goals[i].Levels = levels
	}
	return out
}

func newGoalID() string {
	return fmt.Sprintf("goal-%d-%03d", time.Now().UnixNano(), rand.Intn(1000))
}
