package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStorageKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "goalquest_alice@example.com", StorageKey("alice@example.com"))
	assert.Equal(t, "goalquest_alice@example.com", StorageKey("  Alice@Example.COM  "))
}

func TestGoalService_LoadMissingReturnsEmpty(t *testing.T) {
	svc := NewGoalService(newTestDB(t))

	collection, err := svc.Load("nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, collection.Goals)
}

func TestGoalService_SaveLoadRoundTrip(t *testing.T) {
	svc := NewGoalService(newTestDB(t))

	saved := models.Collection{Goals: []models.Goal{{
		ID:    "goal-1",
		Title: "Learn Piano",
		Icon:  "🎹",
		Levels: []models.Level{{
			ID:       1,
			Title:    "Basics",
			Unlocked: true,
			Tasks: []models.Task{
				{ID: "t1", Title: "Learn C major scale", Completed: true},
			},
		}},
		CurrentLevel: 1,
		TotalXP:      10,
	}}}

	require.NoError(t, svc.Save("alice@example.com", saved))

	loaded, err := svc.Load("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestGoalService_SaveOverwrites(t *testing.T) {
	svc := NewGoalService(newTestDB(t))

	first := models.Collection{Goals: []models.Goal{{ID: "g1", Title: "First"}}}
	second := models.Collection{Goals: []models.Goal{{ID: "g2", Title: "Second"}}}

	require.NoError(t, svc.Save("alice@example.com", first))
	require.NoError(t, svc.Save("alice@example.com", second))

	loaded, err := svc.Load("alice@example.com")
	require.NoError(t, err)
	require.Len(t, loaded.Goals, 1)
	assert.Equal(t, "g2", loaded.Goals[0].ID)
}

func TestGoalService_CorruptBlobFallsBackToEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewGoalService(db)

	_, err := db.Exec(
		`INSERT INTO goal_collections (storage_key, data) VALUES (?, ?)`,
		StorageKey("alice@example.com"), "{not json",
	)
	require.NoError(t, err)

	collection, err := svc.Load("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, collection.Goals)
}

func TestGoalService_CollectionsAreIsolatedByEmail(t *testing.T) {
	svc := NewGoalService(newTestDB(t))

	require.NoError(t, svc.Save("alice@example.com", models.Collection{
		Goals: []models.Goal{{ID: "g1", Title: "Alice's goal"}},
	}))

	other, err := svc.Load("bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, other.Goals)
}

func TestGoalService_Delete(t *testing.T) {
	svc := NewGoalService(newTestDB(t))

	require.NoError(t, svc.Save("alice@example.com", models.Collection{
		Goals: []models.Goal{{ID: "g1", Title: "Gone soon"}},
	}))
	require.NoError(t, svc.Delete("alice@example.com"))

	loaded, err := svc.Load("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, loaded.Goals)
}
