package progress

import (
	"github.com/tahcohcat/goalquest-web/internal/models"
)

// CompletedTaskCount counts the completed tasks of one level.
func CompletedTaskCount(l models.Level) int {
	n := 0
	for _, t := range l.Tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// TotalTaskCount counts every task across a goal's levels.
func TotalTaskCount(g models.Goal) int {
	n := 0
	for _, l := range g.Levels {
		n += len(l.Tasks)
	}
	return n
}

// CompletedTotalTaskCount counts every completed task across a goal's levels.
func CompletedTotalTaskCount(g models.Goal) int {
	n := 0
	for _, l := range g.Levels {
		n += CompletedTaskCount(l)
	}
	return n
}

// OverallProgress returns a goal's progress in [0, 1]. Task-bearing goals
// divide completed tasks by total tasks; task-free goals fall back to the
// fraction of completed levels; an empty goal reports 0.
func OverallProgress(g models.Goal) float64 {
	if total := TotalTaskCount(g); total > 0 {
		return float64(CompletedTotalTaskCount(g)) / float64(total)
	}
	if len(g.Levels) == 0 {
		return 0
	}
	done := 0
	for _, l := range g.Levels {
		if l.Completed {
			done++
		}
	}
	return float64(done) / float64(len(g.Levels))
}

// Summary builds the derived progress view served by the API.
func Summary(g models.Goal) models.GoalProgress {
	return models.GoalProgress{
		GoalID:         g.ID,
		CurrentLevel:   g.CurrentLevel,
		TotalXP:        g.TotalXP,
		TotalTasks:     TotalTaskCount(g),
		CompletedTasks: CompletedTotalTaskCount(g),
		Progress:       OverallProgress(g),
	}
}
