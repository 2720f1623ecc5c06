package catalog

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tahcohcat/goalquest-web/internal/logger"
)

// Built-in goal icons and categories; data/catalog/*.json files extend them.
var defaultIcons = []string{
	"🏃‍♂️", "🤖", "💼", "📚", "🎨", "💪", "🧠", "🎯", "🚀", "⭐",
	"🏆", "💡", "🎵", "🍎", "💰", "🏠", "🌱", "🎮", "📱", "✈️",
}

var defaultCategories = []string{
	"Health & Fitness",
	"Career & Skills",
	"Personal Development",
	"Education",
	"Creative",
	"Finance",
	"Relationships",
	"Hobbies",
	"Travel",
	"Technology",
}

type catalogFile struct {
	Icons      []string `json:"icons"`
	Categories []string `json:"categories"`
}

// Handler serves the icon and category catalog used by goal forms.
func Handler(w http.ResponseWriter, _ *http.Request) {
	icons := append([]string{}, defaultIcons...)
	categories := append([]string{}, defaultCategories...)

	dirPath := "./data/catalog"
	if files, err := os.ReadDir(dirPath); err == nil {
		seenIcons := toSet(icons)
		seenCategories := toSet(categories)

		for _, file := range files {
			// Process only JSON files
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			filePath := filepath.Join(dirPath, file.Name())

			data, err := os.ReadFile(filePath)
			if err != nil {
				logger.New().WithError(err).Warn("could not read catalog file " + filePath)
				continue
			}

			var extra catalogFile
			if err := json.Unmarshal(data, &extra); err != nil {
				logger.New().WithError(err).Warn("could not unmarshal catalog file " + filePath)
				continue
			}

			for _, icon := range extra.Icons {
				if !seenIcons[icon] {
					seenIcons[icon] = true
					icons = append(icons, icon)
				}
			}
			for _, category := range extra.Categories {
				if !seenCategories[category] {
					seenCategories[category] = true
					categories = append(categories, category)
				}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"icons":      icons,
		"categories": categories,
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
