package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ServesDefaults(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Icons      []string `json:"icons"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Contains(t, body.Icons, "🎯")
	assert.Contains(t, body.Categories, "Health & Fitness")
	assert.Len(t, body.Icons, len(defaultIcons))
	assert.Len(t, body.Categories, len(defaultCategories))
}
