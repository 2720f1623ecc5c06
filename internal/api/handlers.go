// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/goalquest-web/internal/auth"
	"github.com/tahcohcat/goalquest-web/internal/logger"
	"github.com/tahcohcat/goalquest-web/internal/models"
	"github.com/tahcohcat/goalquest-web/internal/progress"
	"github.com/tahcohcat/goalquest-web/internal/services"
	"github.com/tahcohcat/goalquest-web/internal/websocket"
)

type GoalHandler struct {
	goals        *services.GoalService
	users        *services.UserService
	achievements *services.AchievementService
	hub          *websocket.Hub
}

func NewGoalHandler(goals *services.GoalService, users *services.UserService, achievements *services.AchievementService, hub *websocket.Hub) *GoalHandler {
	return &GoalHandler{
		goals:        goals,
		users:        users,
		achievements: achievements,
		hub:          hub,
	}
}

// identity pulls the session identity every goal route needs.
func identity(w http.ResponseWriter, r *http.Request) (int, string, bool) {
	userID := auth.GetUserIDFromSession(r)
	email := auth.GetUserEmailFromSession(r)
	if userID == 0 || email == "" {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return 0, "", false
	}
	return userID, email, true
}

// load fetches the caller's collection, falling back to an empty one when
// the gateway reports an I/O failure. The UI must keep working either way.
func (gh *GoalHandler) load(email string) models.Collection {
	collection, err := gh.goals.Load(email)
	if err != nil {
		logger.New().WithError(err).Error("failed to load goal collection, starting empty")
	}
	return collection
}

// persist writes the collection and reports the outcome in the response
// body. A failed save keeps the mutated state in the response so the UI can
// proceed, flagged so it can warn about possible data loss.
func (gh *GoalHandler) persist(w http.ResponseWriter, email string, collection models.Collection, payload map[string]interface{}) {
	saved := true
	if err := gh.goals.Save(email, collection); err != nil {
		logger.New().WithError(err).Error("failed to persist goal collection for " + email)
		saved = false
	}

	payload["saved"] = saved
	if !saved {
		payload["warning"] = "Your changes could not be saved and may be lost"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, progress.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func levelID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["level"])
}

// GET /api/v1/goals - the full collection plus derived progress
func (gh *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	collection := gh.load(email)

	summaries := make([]models.GoalProgress, 0, len(collection.Goals))
	for _, g := range collection.Goals {
		summaries = append(summaries, progress.Summary(g))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"goals":    collection.Goals,
		"progress": summaries,
	})
}

// POST /api/v1/goals
func (gh *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := identity(w, r)
	if !ok {
		return
	}

	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, goal, err := progress.CreateGoal(gh.load(email), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if err := gh.users.BumpStats(userID, 1, 0, 0, 0); err != nil {
		logger.New().WithError(err).Warn("failed to update user stats")
	}
	gh.achievements.RecordActivity(userID, "goal_created", fmt.Sprintf("Started goal %q", goal.Title), "", goal.Icon)
	if err := gh.achievements.CheckAndUpdateAchievements(userID, "goal_created", nil); err != nil {
		logger.New().WithError(err).Warn("failed to update achievements")
	}
	gh.hub.Notify(userID, websocket.ProgressEvent{Type: "goal_created", GoalID: goal.ID})

	gh.persist(w, email, collection, map[string]interface{}{"goal": goal})
}

// PUT /api/v1/goals/{goal}
func (gh *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := progress.EditGoal(gh.load(email), mux.Vars(r)["goal"], in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// DELETE /api/v1/goals/{goal}
func (gh *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	collection := progress.DeleteGoal(gh.load(email), mux.Vars(r)["goal"])
	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// POST /api/v1/goals/{goal}/levels
func (gh *GoalHandler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	var in models.LevelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, level, err := progress.CreateLevel(gh.load(email), mux.Vars(r)["goal"], in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"level": level})
}

// PUT /api/v1/goals/{goal}/levels/{level}
func (gh *GoalHandler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	var in models.LevelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := progress.EditLevel(gh.load(email), mux.Vars(r)["goal"], id, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// DELETE /api/v1/goals/{goal}/levels/{level}
func (gh *GoalHandler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	collection := progress.DeleteLevel(gh.load(email), mux.Vars(r)["goal"], id)
	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// POST /api/v1/goals/{goal}/levels/reorder
func (gh *GoalHandler) ReorderLevels(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	var req struct {
		FromLevelID int `json:"from_level_id"`
		ToLevelID   int `json:"to_level_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := progress.ReorderLevels(gh.load(email), mux.Vars(r)["goal"], req.FromLevelID, req.ToLevelID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// POST /api/v1/goals/{goal}/levels/{level}/tasks
func (gh *GoalHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	var in models.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, task, err := progress.CreateTask(gh.load(email), mux.Vars(r)["goal"], id, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"task": task})
}

// PUT /api/v1/goals/{goal}/levels/{level}/tasks/{task}
func (gh *GoalHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	var in models.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	collection, err := progress.EditTask(gh.load(email), vars["goal"], id, vars["task"], in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// DELETE /api/v1/goals/{goal}/levels/{level}/tasks/{task}
func (gh *GoalHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	collection := progress.DeleteTask(gh.load(email), vars["goal"], id, vars["task"])
	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// POST /api/v1/goals/{goal}/tasks/move - move a task, possibly across levels
func (gh *GoalHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	var req struct {
		FromLevelID  int    `json:"from_level_id"`
		TaskID       string `json:"task_id"`
		ToLevelID    int    `json:"to_level_id"`
		BeforeTaskID string `json:"before_task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := progress.MoveTask(gh.load(email), mux.Vars(r)["goal"], req.FromLevelID, req.TaskID, req.ToLevelID, req.BeforeTaskID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.persist(w, email, collection, map[string]interface{}{"goals": collection.Goals})
}

// POST /api/v1/goals/{goal}/levels/{level}/tasks/{task}/toggle
func (gh *GoalHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	collection, res, err := progress.ToggleTask(gh.load(email), vars["goal"], id, vars["task"])
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.recordToggle(userID, vars["goal"], id, vars["task"], res, res.Completed)

	gh.persist(w, email, collection, map[string]interface{}{"result": res})
}

// POST /api/v1/goals/{goal}/levels/{level}/toggle - empty levels only
func (gh *GoalHandler) ToggleLevel(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := levelID(r)
	if err != nil {
		http.Error(w, "Invalid level id", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	collection, res, err := progress.ToggleLevelCompletion(gh.load(email), vars["goal"], id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	gh.recordToggle(userID, vars["goal"], id, "", res, false)

	gh.persist(w, email, collection, map[string]interface{}{"result": res})
}

// recordToggle fans a toggle result out to stats, the activity feed,
// achievements and the websocket hub. Everything here is best-effort; the
// mutation already happened.
func (gh *GoalHandler) recordToggle(userID int, goalID string, levelID int, taskID string, res progress.ToggleResult, taskToggle bool) {
	tasksDelta := 0
	if taskToggle {
		tasksDelta = 1
		if !res.Completed {
			tasksDelta = -1
		}
	}
	levelsDelta := 0
	if res.LevelChanged {
		levelsDelta = 1
		if !res.LevelCompleted {
			levelsDelta = -1
		}
	}
	xpDelta := res.XPDelta
	if res.UnlockedLevel != 0 {
		xpDelta += progress.LevelBonusXP
	}

	if err := gh.users.BumpStats(userID, 0, tasksDelta, levelsDelta, xpDelta); err != nil {
		logger.New().WithError(err).Warn("failed to update user stats")
	}

	if res.Completed && taskToggle {
		gh.achievements.RecordActivity(userID, "task_completed", "Completed a task", "", "✅")
		if err := gh.achievements.CheckAndUpdateAchievements(userID, "task_completed", nil); err != nil {
			logger.New().WithError(err).Warn("failed to update achievements")
		}
	}
	if res.LevelCompleted && res.LevelChanged {
		if err := gh.achievements.CheckAndUpdateAchievements(userID, "level_completed", nil); err != nil {
			logger.New().WithError(err).Warn("failed to update achievements")
		}
	}
	if res.UnlockedLevel != 0 {
		gh.achievements.RecordActivity(userID, "level_unlocked",
			fmt.Sprintf("Unlocked level %d", res.UnlockedLevel), "", "🔓")
	}

	eventType := "level_toggled"
	if taskToggle {
		eventType = "task_toggled"
	}
	gh.hub.Notify(userID, websocket.ProgressEvent{
		Type:          eventType,
		GoalID:        goalID,
		LevelID:       levelID,
		TaskID:        taskID,
		CurrentLevel:  res.CurrentLevel,
		TotalXP:       res.TotalXP,
		UnlockedLevel: res.UnlockedLevel,
	})
}

// GET /api/v1/goals/{goal}/progress
func (gh *GoalHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	_, email, ok := identity(w, r)
	if !ok {
		return
	}

	collection := gh.load(email)
	goalID := mux.Vars(r)["goal"]
	for _, g := range collection.Goals {
		if g.ID == goalID {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(progress.Summary(g))
			return
		}
	}

	http.Error(w, "Goal not found", http.StatusNotFound)
}

// GET /api/v1/achievements
func (gh *GoalHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	achievements, err := gh.achievements.GetUserAchievements(userID)
	if err != nil {
		http.Error(w, "Failed to get achievements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"achievements": achievements})
}

// GET /api/v1/activity
func (gh *GoalHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activities, err := gh.achievements.GetRecentActivities(userID, limit)
	if err != nil {
		http.Error(w, "Failed to get activity", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"activity": activities})
}

// GET /api/v1/profile
func (gh *GoalHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := gh.users.GetUserByID(userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	stats, err := gh.users.GetUserStats(userID)
	if err != nil {
		http.Error(w, "Failed to get user stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":  user,
		"stats": stats,
	})
}

// PUT /api/v1/profile
func (gh *GoalHandler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := gh.users.UpdateProfile(userID, req.DisplayName, req.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The collection is keyed by email; follow it to the new key.
	if req.Email != "" && req.Email != email {
		collection := gh.load(email)
		if err := gh.goals.Save(req.Email, collection); err != nil {
			logger.New().WithError(err).Error("failed to move goal collection to new email key")
		} else if err := gh.goals.Delete(email); err != nil {
			logger.New().WithError(err).Warn("failed to remove goal collection under old email key")
		}
	}

	// The session cookie carries the email too; rewrite it so the rest of
	// this session keys the collection correctly.
	user, err := gh.users.GetUserByID(userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	auth.RefreshSession(w, r, user)

	w.WriteHeader(http.StatusOK)
}

// POST /api/v1/profile/password
func (gh *GoalHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := gh.users.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func RegisterRoutes(r *mux.Router, goals *services.GoalService, users *services.UserService, achievements *services.AchievementService, hub *websocket.Hub) *GoalHandler {
	gh := NewGoalHandler(goals, users, achievements, hub)

	r.HandleFunc("/goals", gh.ListGoals).Methods("GET")
	r.HandleFunc("/goals", gh.CreateGoal).Methods("POST")
	r.HandleFunc("/goals/{goal}", gh.UpdateGoal).Methods("PUT")
	r.HandleFunc("/goals/{goal}", gh.DeleteGoal).Methods("DELETE")

	r.HandleFunc("/goals/{goal}/levels", gh.CreateLevel).Methods("POST")
	r.HandleFunc("/goals/{goal}/levels/reorder", gh.ReorderLevels).Methods("POST")
	r.HandleFunc("/goals/{goal}/levels/{level}", gh.UpdateLevel).Methods("PUT")
	r.HandleFunc("/goals/{goal}/levels/{level}", gh.DeleteLevel).Methods("DELETE")
	r.HandleFunc("/goals/{goal}/levels/{level}/toggle", gh.ToggleLevel).Methods("POST")

	r.HandleFunc("/goals/{goal}/levels/{level}/tasks", gh.CreateTask).Methods("POST")
	r.HandleFunc("/goals/{goal}/levels/{level}/tasks/{task}", gh.UpdateTask).Methods("PUT")
	r.HandleFunc("/goals/{goal}/levels/{level}/tasks/{task}", gh.DeleteTask).Methods("DELETE")
	r.HandleFunc("/goals/{goal}/levels/{level}/tasks/{task}/toggle", gh.ToggleTask).Methods("POST")
	r.HandleFunc("/goals/{goal}/tasks/move", gh.MoveTask).Methods("POST")

	r.HandleFunc("/goals/{goal}/progress", gh.GetProgress).Methods("GET")
	r.HandleFunc("/achievements", gh.GetAchievements).Methods("GET")
	r.HandleFunc("/activity", gh.GetActivity).Methods("GET")

	r.HandleFunc("/profile", gh.GetUserProfile).Methods("GET")
	r.HandleFunc("/profile", gh.UpdateUserProfile).Methods("PUT")
	r.HandleFunc("/profile/password", gh.ChangePassword).Methods("POST")

	return gh
}
