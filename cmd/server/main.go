// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/tahcohcat/goalquest-web/config"
	"github.com/tahcohcat/goalquest-web/internal/api"
	"github.com/tahcohcat/goalquest-web/internal/auth"
	"github.com/tahcohcat/goalquest-web/internal/catalog"
	"github.com/tahcohcat/goalquest-web/internal/database"
	"github.com/tahcohcat/goalquest-web/internal/logger"
	"github.com/tahcohcat/goalquest-web/internal/services"
	"github.com/tahcohcat/goalquest-web/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error reading config: %s", err)
	}
	logger.SetGlobalLevel(logger.LogLevel(cfg.Log.Level))

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	userService := services.NewUserService(db)
	goalService := services.NewGoalService(db)
	achievementService := services.NewAchievementService(db, userService)

	if err := achievementService.SeedDefaultAchievements(); err != nil {
		log.Fatalf("Failed to seed achievements: %v", err)
	}

	auth.Init(userService)

	r := mux.NewRouter()

	// Public routes (no authentication required)
	publicRouter := r.PathPrefix("/").Subrouter()
	publicRouter.HandleFunc("/login", auth.LoginHandler).Methods("POST")
	publicRouter.HandleFunc("/register", auth.RegisterHandler).Methods("POST")
	publicRouter.HandleFunc("/logout", auth.LogoutHandler).Methods("POST", "GET")
	publicRouter.HandleFunc("/session", auth.SessionHandler).Methods("GET")
	publicRouter.HandleFunc("/auth/google", auth.GoogleLoginHandler).Methods("GET")
	publicRouter.HandleFunc("/auth/google/callback", auth.GoogleCallbackHandler).Methods("GET")
	publicRouter.HandleFunc("/validate", auth.ValidateHandler).Methods("GET")
	publicRouter.HandleFunc("/catalog", catalog.Handler).Methods("GET")
	publicRouter.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("./web/static/"))))

	// Authenticated routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth.AuthMiddleware)

	// WebSocket routes
	hub := websocket.RegisterRoutes(authRouter)

	// API routes
	apiRouter := authRouter.PathPrefix("/api/v1").Subrouter()
	api.RegisterRoutes(apiRouter, goalService, userService, achievementService, hub)

	// CORS setup for development
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	log.Printf("🎯 GoalQuest server starting on port %s", port)
	log.Printf("🗄️ Database: %s", cfg.Database.Path)

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
