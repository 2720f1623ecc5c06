package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/goalquest-web/internal/auth"
	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/models"
	"github.com/tahcohcat/goalquest-web/internal/services"
	"github.com/tahcohcat/goalquest-web/internal/websocket"
)

// testServer wires the real router, services and an in-memory database,
// mirroring the server's route layout.
type testServer struct {
	server  *httptest.Server
	cookies []*http.Cookie
	db      *database.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userService := services.NewUserService(db)
	goalService := services.NewGoalService(db)
	achievementService := services.NewAchievementService(db, userService)
	require.NoError(t, achievementService.SeedDefaultAchievements())

	viper.Set("auth.session_secret", "test-session-secret-not-for-production")
	auth.Init(userService)

	r := mux.NewRouter()
	r.HandleFunc("/register", auth.RegisterHandler).Methods("POST")
	r.HandleFunc("/login", auth.LoginHandler).Methods("POST")

	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth.AuthMiddleware)
	hub := websocket.RegisterRoutes(authRouter)
	apiRouter := authRouter.PathPrefix("/api/v1").Subrouter()
	RegisterRoutes(apiRouter, goalService, userService, achievementService, hub)

	ts := &testServer{server: httptest.NewServer(r), db: db}
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) signUp(t *testing.T, email string) {
	t.Helper()

	resp := ts.do(t, "POST", "/register", models.CreateUserRequest{
		Email:       email,
		Password:    "secret123",
		DisplayName: "Test User",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.cookies = resp.Cookies()
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "GET", "/api/v1/goals", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CreateAndListGoals(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{
		Title: "Learn Piano", Icon: "🎹", Category: "Music",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["saved"])
	goal := body["goal"].(map[string]interface{})
	assert.Equal(t, "Learn Piano", goal["title"])
	assert.Empty(t, goal["levels"])

	resp = ts.do(t, "GET", "/api/v1/goals", nil)
	body = decode(t, resp)
	assert.Len(t, body["goals"], 1)
}

func TestAPI_BlankGoalTitleRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownGoalReturnsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "PUT", "/api/v1/goals/no-such-goal", models.GoalInput{Title: "Renamed"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_TaskToggleAwardsXP(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	goalID := decode(t, resp)["goal"].(map[string]interface{})["id"].(string)

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels", goalID),
		models.LevelInput{Title: "Basics"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	level := decode(t, resp)["level"].(map[string]interface{})
	levelID := int(level["id"].(float64))
	assert.Equal(t, true, level["unlocked"])

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels/%d/tasks", goalID, levelID),
		models.TaskInput{Title: "Learn C major scale"})
	taskID := decode(t, resp)["task"].(map[string]interface{})["id"].(string)

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels/%d/tasks/%s/toggle", goalID, levelID, taskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode(t, resp)["result"].(map[string]interface{})
	assert.Equal(t, true, result["completed"])
	assert.Equal(t, float64(10), result["xp_delta"])
	assert.Equal(t, true, result["level_completed"])

	// The collection survives the round trip through storage.
	resp = ts.do(t, "GET", fmt.Sprintf("/api/v1/goals/%s/progress", goalID), nil)
	progress := decode(t, resp)
	assert.Equal(t, float64(1), progress["completed_tasks"])
}

func TestAPI_ManualToggleRejectedForTaskBearingLevel(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	goalID := decode(t, resp)["goal"].(map[string]interface{})["id"].(string)

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels", goalID),
		models.LevelInput{Title: "Basics"})
	levelID := int(decode(t, resp)["level"].(map[string]interface{})["id"].(float64))

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels/%d/tasks", goalID, levelID),
		models.TaskInput{Title: "Learn C major scale"})
	resp.Body.Close()

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels/%d/toggle", goalID, levelID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AchievementsReflectProgress(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	resp.Body.Close()

	resp = ts.do(t, "GET", "/api/v1/achievements", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	achievements := body["achievements"].([]interface{})
	require.NotEmpty(t, achievements)

	var firstGoalDone bool
	for _, raw := range achievements {
		a := raw.(map[string]interface{})
		if a["id"] == "first-goal" {
			firstGoalDone, _ = a["completed"].(bool)
		}
	}
	assert.True(t, firstGoalDone)
}

func TestAPI_ProfileEmailChangeKeepsGoals(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	resp.Body.Close()

	resp = ts.do(t, "PUT", "/api/v1/profile", models.ProfileUpdateRequest{
		DisplayName: "Alice",
		Email:       "alice@new.example.com",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies(), "session must be rewritten with the new email")
	ts.cookies = resp.Cookies()

	// The collection follows the account to its new key within the same
	// session.
	resp = ts.do(t, "GET", "/api/v1/goals", nil)
	body := decode(t, resp)
	assert.Len(t, body["goals"], 1)

	resp = ts.do(t, "GET", "/api/v1/profile", nil)
	user := decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "alice@new.example.com", user["email"])
}

func TestAPI_FailedSaveReportedInResponse(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	_, err := ts.db.Exec(`DROP TABLE goal_collections`)
	require.NoError(t, err)

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	assert.Equal(t, false, body["saved"])
	assert.NotEmpty(t, body["warning"])
	goal := body["goal"].(map[string]interface{})
	assert.Equal(t, "Learn Piano", goal["title"], "mutated state still returned")
}

func TestAPI_RetogglingDoesNotInflateLevelStats(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "POST", "/api/v1/goals", models.GoalInput{Title: "Learn Piano"})
	goalID := decode(t, resp)["goal"].(map[string]interface{})["id"].(string)

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels", goalID),
		models.LevelInput{Title: "Basics"})
	levelID := int(decode(t, resp)["level"].(map[string]interface{})["id"].(float64))

	resp = ts.do(t, "POST", fmt.Sprintf("/api/v1/goals/%s/levels/%d/tasks", goalID, levelID),
		models.TaskInput{Title: "Learn C major scale"})
	taskID := decode(t, resp)["task"].(map[string]interface{})["id"].(string)

	toggle := fmt.Sprintf("/api/v1/goals/%s/levels/%d/tasks/%s/toggle", goalID, levelID, taskID)
	for _, want := range []bool{true, false, true} {
		resp = ts.do(t, "POST", toggle, nil)
		result := decode(t, resp)["result"].(map[string]interface{})
		require.Equal(t, want, result["completed"])
	}

	resp = ts.do(t, "GET", "/api/v1/profile", nil)
	stats := decode(t, resp)["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["levels_completed"], "re-toggling must not farm level completions")
	assert.Equal(t, float64(1), stats["tasks_completed"])
}

func TestAPI_ProfileRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice@example.com")

	resp := ts.do(t, "GET", "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])

	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["goals_created"])
}
