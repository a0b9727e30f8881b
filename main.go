package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/hackernews-be/internal/api"
	"github.com/isdelr/hackernews-be/internal/auth"
	"github.com/isdelr/hackernews-be/internal/config"
	"github.com/isdelr/hackernews-be/internal/database"
	"github.com/isdelr/hackernews-be/internal/logger"
	"github.com/isdelr/hackernews-be/internal/monitoring"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/isdelr/hackernews-be/internal/services"
	"github.com/isdelr/hackernews-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up auth
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	identities := auth.NewIdentityResolver(tokens)
	hasher := auth.NewHasher(cfg.BcryptCost)

	// Set up the event channel
	hub := websocket.NewHub(cfg.SubscriberBuffer)

	// Set up services
	data := resolvers.DataAccess{
		Links: services.NewLinkService(db, cfg.DataTimeout),
		Users: services.NewUserService(db, cfg.DataTimeout),
		Votes: services.NewVoteService(db, cfg.DataTimeout),
	}
	statsService := services.NewStatsService(db, cfg.DataTimeout)

	// Set up and run the background stats reporter
	statUpdater, err := monitoring.NewStatUpdater(statsService, hub, cfg.StatsSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stats reporter")
	}
	statUpdater.Run()

	// Set up router
	router := api.NewRouter(api.Deps{
		Resolver:       resolvers.NewResolver(tokens, hasher),
		Identities:     identities,
		Data:           data,
		Events:         hub,
		Stats:          statUpdater,
		AllowedOrigins: cfg.AllowedOrigins,
		DataRetries:    cfg.DataRetries,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	hub.Close() // Ends open subscription streams

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
