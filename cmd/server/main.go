package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/dmartell/tradejournal/internal/analytics"
	"github.com/dmartell/tradejournal/internal/auth"
	"github.com/dmartell/tradejournal/internal/config"
	"github.com/dmartell/tradejournal/internal/database"
	"github.com/dmartell/tradejournal/internal/journal"
	"github.com/dmartell/tradejournal/internal/store"
	"github.com/dmartell/tradejournal/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the trading-journal API server with graceful
// shutdown support. The entry store is chosen once at startup: Supabase
// when credentials are configured, the local SQLite store otherwise.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// The local database always exists: it is either the primary store or
	// the write-through snapshot behind the remote one.
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	local := store.NewLocal(db)
	var entryStore store.Store = local
	if cfg.RemoteEnabled() {
		entryStore = store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		zlog.Info().Msg("Using Supabase entry store with local snapshot mirror")
	} else {
		zlog.Info().Msg("Supabase credentials missing - using local store mode")
	}

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	authService.RegisterAPICredentials(cfg.APIKey, cfg.APISecret)

	journalService := journal.NewService(entryStore, local)
	journalHandlers := journal.NewGinHandlers(journalService)

	analyticsService := analytics.NewService(journalService)
	analyticsHandlers := analytics.NewGinHandlers(analyticsService)

	// Populate the in-memory journal before serving; a store failure here
	// degrades to the snapshot instead of aborting startup.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	journalService.Load(loadCtx)
	loadCancel()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg.JWTSecret, authHandlers, journalHandlers, analyticsHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoint for token issuance
// - Journal and analytics routes: Protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	journalHandlers *journal.GinHandlers,
	analyticsHandlers *analytics.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Journal routes
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			protected.GET("/entries", journalHandlers.ListEntriesHandler())
			protected.POST("/entries", journalHandlers.CreateEntryHandler())
			protected.PUT("/entries/:id", journalHandlers.UpdateEntryHandler())
			protected.DELETE("/entries/:id", journalHandlers.DeleteEntryHandler())
			protected.GET("/entries/date/:date", journalHandlers.EntriesForDateHandler())
			protected.GET("/balance", journalHandlers.BalanceHandler())
			protected.GET("/calendar/:year/:month", journalHandlers.CalendarHandler())

			protected.GET("/analytics/evolution", analyticsHandlers.EvolutionHandler())
			protected.GET("/analytics/metrics", analyticsHandlers.MetricsHandler())
		}
	}
}
