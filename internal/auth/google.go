package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tahcohcat/goalquest-web/internal/logger"
)

// The identity provider is an opaque collaborator: all the application ever
// consumes from the handshake is a stable {name, email} pair.

func googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     viper.GetString("auth.google.client_id"),
		ClientSecret: viper.GetString("auth.google.client_secret"),
		RedirectURL:  viper.GetString("auth.callback_url"),
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLoginHandler starts the OAuth redirect flow.
func GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	session, _ := Store.Get(r, sessionName)
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		logger.New().WithError(err).Warn("failed to save oauth state")
	}

	http.Redirect(w, r, googleOAuthConfig().AuthCodeURL(state), http.StatusFound)
}

// GoogleCallbackHandler finishes the flow: verifies state, exchanges the
// code, fetches the user info and establishes the same session a local
// login would.
func GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := Store.Get(r, sessionName)
	wantState, _ := session.Values["oauth_state"].(string)
	delete(session.Values, "oauth_state")

	if wantState == "" || r.URL.Query().Get("state") != wantState {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	token, err := googleOAuthConfig().Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.New().WithError(err).Error("oauth code exchange failed")
		http.Redirect(w, r, "/auth/error", http.StatusFound)
		return
	}

	client := googleOAuthConfig().Client(r.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		logger.New().WithError(err).Error("failed to fetch user info")
		http.Redirect(w, r, "/auth/error", http.StatusFound)
		return
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		logger.New().WithError(err).Error("invalid user info response")
		http.Redirect(w, r, "/auth/error", http.StatusFound)
		return
	}

	user, err := userService.GetOrCreateOAuthUser(info.Email, info.Name, "google")
	if err != nil {
		logger.New().WithError(err).Error("failed to provision oauth user")
		http.Redirect(w, r, "/auth/error", http.StatusFound)
		return
	}

	if err := userService.UpdateLastLogin(user.ID); err != nil {
		logger.New().WithError(err).Warn("failed to update last login")
	}

	establishSession(w, r, user)
	http.Redirect(w, r, "/", http.StatusFound)
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
