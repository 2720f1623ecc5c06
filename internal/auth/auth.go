package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/spf13/viper"

	"github.com/tahcohcat/goalquest-web/internal/logger"
	"github.com/tahcohcat/goalquest-web/internal/models"
	"github.com/tahcohcat/goalquest-web/internal/services"
)

const sessionName = "goalquest_session"

var (
	Store       *sessions.CookieStore
	userService *services.UserService
)

func Init(users *services.UserService) {
	Store = sessions.NewCookieStore([]byte(viper.GetString("auth.session_secret")))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}
	userService = users
}

// RegisterHandler creates a local account and signs it in.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := userService.CreateUser(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	establishSession(w, r, user)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionView(user))
}

// LoginHandler authenticates a local account.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := userService.AuthenticateUser(&req)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	establishSession(w, r, user)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionView(user))
}

// LogoutHandler tears the session down. The stored goal collection stays.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := Store.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		logger.New().WithError(err).Warn("failed to clear session")
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionHandler reports the current session identity.
func SessionHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := Store.Get(r, sessionName)

	view := models.UserSession{}
	if auth, ok := session.Values["authenticated"].(bool); ok && auth {
		view.IsAuthenticated = true
		view.Name, _ = session.Values["name"].(string)
		view.Email, _ = session.Values["email"].(string)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// AuthMiddleware rejects requests without an authenticated session.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := Store.Get(r, sessionName)

		if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserIDFromSession returns the signed-in user's id, or 0.
func GetUserIDFromSession(r *http.Request) int {
	session, _ := Store.Get(r, sessionName)
	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		return 0
	}
	id, _ := session.Values["user_id"].(int)
	return id
}

// GetUserEmailFromSession returns the signed-in user's email, the key the
// goal collection is persisted under, or "".
func GetUserEmailFromSession(r *http.Request) string {
	session, _ := Store.Get(r, sessionName)
	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		return ""
	}
	email, _ := session.Values["email"].(string)
	return email
}

// RefreshSession rewrites the session identity after a profile change. The
// email in the cookie keys the stored goal collection, so it must track the
// account.
func RefreshSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	establishSession(w, r, user)
}

func establishSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	session, _ := Store.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["user_id"] = user.ID
	session.Values["name"] = user.DisplayName
	session.Values["email"] = user.Email
	if err := session.Save(r, w); err != nil {
		logger.New().WithError(err).Warn("failed to save session")
	}
}

func sessionView(user *models.User) models.UserSession {
	return models.UserSession{
		Name:            user.DisplayName,
		Email:           user.Email,
		IsAuthenticated: true,
	}
}
