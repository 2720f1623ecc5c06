package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/logger"
	"github.com/tahcohcat/goalquest-web/internal/models"
)

// storageNamespace prefixes every storage key so collections share a table
// with nothing else and keys stay compatible with the classic
// "goalquest_<email>" format.
const storageNamespace = "goalquest"

// StorageKey returns the key a user's goal collection is stored under.
func StorageKey(email string) string {
	return storageNamespace + "_" + strings.ToLower(strings.TrimSpace(email))
}

// GoalService is the persistence gateway for goal collections. The unit of
// durability is the whole collection: one serialized blob per user.
type GoalService struct {
	db *database.DB
}

func NewGoalService(db *database.DB) *GoalService {
	return &GoalService{db: db}
}

// Load fetches a user's goal collection. A missing row or an unparseable
// blob falls back to an empty collection; corruption is logged, never
// propagated. The returned error is only ever a real I/O failure.
func (s *GoalService) Load(email string) (models.Collection, error) {
	key := StorageKey(email)

	var raw string
	err := s.db.Get(&raw, `SELECT data FROM goal_collections WHERE storage_key = ?`, key)
	if err == sql.ErrNoRows {
		return models.Collection{Goals: []models.Goal{}}, nil
	} else if err != nil {
		return models.Collection{Goals: []models.Goal{}}, fmt.Errorf("failed to load goal collection: %w", err)
	}

	var collection models.Collection
	if err := json.Unmarshal([]byte(raw), &collection); err != nil {
		logger.New().WithError(err).Warn(fmt.Sprintf("corrupt goal collection for key %s, falling back to empty", key))
		return models.Collection{Goals: []models.Goal{}}, nil
	}
	if collection.Goals == nil {
		collection.Goals = []models.Goal{}
	}
	return collection, nil
}

// Save persists the full collection as one blob. Partial writes are not a
// thing here; the newest full collection always wins.
func (s *GoalService) Save(email string, collection models.Collection) error {
	key := StorageKey(email)

	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to serialize goal collection: %w", err)
	}

	query := `
		INSERT INTO goal_collections (storage_key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to save goal collection: %w", err)
	}
	return nil
}

// Delete removes a user's stored collection. Sign-out does not call this;
// it exists for account deletion only.
func (s *GoalService) Delete(email string) error {
	_, err := s.db.Exec(`DELETE FROM goal_collections WHERE storage_key = ?`, StorageKey(email))
	return err
}
