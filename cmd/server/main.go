package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/charhunt/api/internal/config"
	"github.com/charhunt/api/internal/database"
	"github.com/charhunt/api/internal/game"
	"github.com/charhunt/api/internal/handlers"
	"github.com/charhunt/api/internal/janitor"
	"github.com/charhunt/api/internal/middleware"
	redisClient "github.com/charhunt/api/internal/redis"
)

func main() {
	// Load configuration from environment (.env is optional)
	if err := godotenv.Load(); err != nil {
		log.Println("[API] No .env file found, using environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	totalCharacters := 0
	if value := os.Getenv("TOTAL_CHARACTERS"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Fatalf("[API] Invalid TOTAL_CHARACTERS value: %s", value)
		}
		totalCharacters = parsed
	}

	// Initialize database connection
	log.Println("[API] Initializing database connection...")
	db, err := database.NewConnection(database.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("[API] Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("[API] Failed to initialize schema: %v", err)
	}
	if err := db.SeedCharacters(); err != nil {
		log.Fatalf("[API] Failed to seed characters: %v", err)
	}

	store := database.NewStore(db)

	svc, err := game.NewService(store, totalCharacters)
	if err != nil {
		log.Fatalf("[API] Failed to initialize game service: %v", err)
	}

	// Redis is the leaderboard fast path; the API still works without it
	var cache handlers.LeaderboardCache
	rdb, err := redisClient.NewClient(redisClient.LoadConfigFromEnv())
	if err != nil {
		log.Printf("[API] Redis unavailable, leaderboard served from database: %v", err)
	} else {
		defer rdb.Close()
		cache = rdb
		if ranked, err := svc.RankedBoard(context.Background()); err != nil {
			log.Printf("[API] Failed to load board for cache rebuild: %v", err)
		} else if err := rdb.Rebuild(context.Background(), ranked); err != nil {
			log.Printf("[API] Failed to rebuild leaderboard cache: %v", err)
		}
	}

	// Background janitor for abandoned sessions
	maxIdle := config.GetDuration("SESSION_MAX_IDLE", janitor.DefaultMaxIdle)
	interval := config.GetDuration("JANITOR_INTERVAL", janitor.DefaultInterval)
	jan := janitor.New(store, maxIdle, interval)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go jan.Run(janitorCtx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, svc, cache)
	gameHandler := handlers.NewGameHandler(svc, cache)
	leaderboardHandler := handlers.NewLeaderboardHandler(svc, cache)
	sessionsHandler := handlers.NewSessionsHandler(jan)

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Auth routes
	mux.HandleFunc("/api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("/api/auth/profile", middleware.RequireAuth(store, authHandler.Profile))

	// Game routes
	mux.HandleFunc("/api/game/start", gameHandler.StartGame)
	mux.HandleFunc("/api/game/play", gameHandler.Play)
	mux.HandleFunc("/api/game/pseudo", gameHandler.Pseudo)
	mux.HandleFunc("/api/game/nologin", gameHandler.NoLogin)

	// Leaderboard routes
	mux.HandleFunc("/api/leaderboard", leaderboardHandler.GetLeaderboard)

	// Maintenance routes
	mux.HandleFunc("/api/sessions/cleanup", sessionsHandler.Cleanup)

	// CORS middleware with the origin set fixed at startup
	handler := corsMiddleware(parseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS")), mux)

	// Start server
	log.Printf("[API] Starting server on port %s...", port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[API] Server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Println("[API] Shutting down...")

	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
	log.Println("[API] Server stopped")
}

// parseAllowedOrigins builds the origin allow-set once at startup. An
// empty value allows every origin.
func parseAllowedOrigins(value string) map[string]bool {
	origins := make(map[string]bool)
	for _, origin := range strings.Split(value, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins[origin] = true
		}
	}
	return origins
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(allowed map[string]bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(allowed) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
