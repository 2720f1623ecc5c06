package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// ValidationResult describes the health of one piece of identity-provider
// configuration. Purely advisory; the UI uses it to decide whether sign-in
// is worth attempting.
type ValidationResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // success, error or warning
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ValidateHandler reports on the OAuth and session configuration.
func ValidateHandler(w http.ResponseWriter, _ *http.Request) {
	results := []ValidationResult{
		validateClientID(viper.GetString("auth.google.client_id")),
		validateClientSecret(viper.GetString("auth.google.client_secret")),
		validateSessionSecret(viper.GetString("auth.session_secret")),
		validateCallbackURL(viper.GetString("auth.callback_url")),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
}

func validateClientID(clientID string) ValidationResult {
	switch {
	case clientID == "":
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_ID",
			Status:  "error",
			Message: "Missing Google client id",
			Details: "This should be your Google OAuth 2.0 Client ID from Google Cloud Console",
		}
	case clientID == "dummy-client-id":
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_ID",
			Status:  "error",
			Message: "Google client id is set to dummy value",
			Details: "Please replace with your actual Google Client ID",
		}
	case len(clientID) < 50:
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_ID",
			Status:  "warning",
			Message: "Google client id seems too short",
			Details: fmt.Sprintf("Current length: %d characters. Google Client IDs are typically 70+ characters long.", len(clientID)),
		}
	case !strings.HasSuffix(clientID, ".apps.googleusercontent.com"):
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_ID",
			Status:  "warning",
			Message: "Google client id format looks unusual",
			Details: "Google Client IDs typically end with '.apps.googleusercontent.com'",
		}
	default:
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_ID",
			Status:  "success",
			Message: "Google client id is present and looks valid",
			Details: fmt.Sprintf("Length: %d characters, Format: Valid", len(clientID)),
		}
	}
}

func validateClientSecret(secret string) ValidationResult {
	switch {
	case secret == "":
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_SECRET",
			Status:  "error",
			Message: "Missing Google client secret",
			Details: "This should be your Google OAuth 2.0 Client Secret from Google Cloud Console",
		}
	case secret == "dummy-client-secret":
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_SECRET",
			Status:  "error",
			Message: "Google client secret is set to dummy value",
			Details: "Please replace with your actual Google Client Secret",
		}
	case len(secret) < 20:
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_SECRET",
			Status:  "warning",
			Message: "Google client secret seems too short",
			Details: fmt.Sprintf("Current length: %d characters. Google Client Secrets are typically 24+ characters long.", len(secret)),
		}
	default:
		return ValidationResult{
			Name:    "GOOGLE_CLIENT_SECRET",
			Status:  "success",
			Message: "Google client secret is present and looks valid",
			Details: fmt.Sprintf("Length: %d characters", len(secret)),
		}
	}
}

func validateSessionSecret(secret string) ValidationResult {
	switch {
	case secret == "":
		return ValidationResult{
			Name:    "SESSION_SECRET",
			Status:  "error",
			Message: "Missing session secret",
			Details: "This should be a random string used to sign session cookies",
		}
	case secret == "your-secret-key-change-this-in-production":
		return ValidationResult{
			Name:    "SESSION_SECRET",
			Status:  "warning",
			Message: "Using the fallback session secret",
			Details: "Please set a proper session secret for production use",
		}
	case len(secret) < 32:
		return ValidationResult{
			Name:    "SESSION_SECRET",
			Status:  "warning",
			Message: "Session secret should be longer for better security",
			Details: fmt.Sprintf("Current length: %d characters. Recommended: 32+ characters", len(secret)),
		}
	default:
		return ValidationResult{
			Name:    "SESSION_SECRET",
			Status:  "success",
			Message: "Session secret is present and secure",
			Details: fmt.Sprintf("Length: %d characters", len(secret)),
		}
	}
}

func validateCallbackURL(raw string) ValidationResult {
	if raw == "" {
		return ValidationResult{
			Name:    "CALLBACK_URL",
			Status:  "warning",
			Message: "Callback URL not set (optional in development)",
			Details: "Setting it explicitly is recommended for production",
		}
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return ValidationResult{
			Name:    "CALLBACK_URL",
			Status:  "error",
			Message: "Callback URL is not a valid URL",
			Details: fmt.Sprintf("Current value: %s", raw),
		}
	}

	return ValidationResult{
		Name:    "CALLBACK_URL",
		Status:  "success",
		Message: "Callback URL is set and valid",
		Details: fmt.Sprintf("URL: %s, Protocol: %s, Host: %s", raw, u.Scheme, u.Host),
	}
}
