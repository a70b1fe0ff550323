package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emissio/searchsync/internal/admin"
	"github.com/emissio/searchsync/internal/assignments"
	"github.com/emissio/searchsync/internal/auth"
	"github.com/emissio/searchsync/internal/config"
	"github.com/emissio/searchsync/internal/db"
	"github.com/emissio/searchsync/internal/ingestion"
	"github.com/emissio/searchsync/internal/middleware"
	"github.com/emissio/searchsync/internal/reindexer"
	"github.com/emissio/searchsync/internal/repository"
	"github.com/emissio/searchsync/internal/searchindex"
	"github.com/emissio/searchsync/internal/syncer"
	"github.com/emissio/searchsync/internal/webhook"

	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Missing index credentials fail the whole process here, before any
	// request can touch a partition key.
	if err := cfg.Search.Validate(); err != nil {
		log.Fatalf("Invalid search configuration: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	projectionRepo := repository.NewProjectionRepository(conn.Pool)
	sourceRepo := repository.NewSourceRepository(conn.Pool)
	assignmentRepo := repository.NewAssignmentRepository(conn.Pool)
	factorRepo := repository.NewEmissionFactorRepository(conn.Pool)
	syncLogRepo := repository.NewSyncLogRepository(conn.Pool)

	// Index client and services
	indexClient := searchindex.NewRESTClient(
		cfg.Search.AppID,
		cfg.Search.APIKey,
		searchindex.WithBatchSize(cfg.Search.BatchSize),
	)
	waiter := searchindex.NewTaskWaiter(cfg.Search.TaskPollAttempts, cfg.Search.TaskPollInterval)

	syncService := syncer.NewService(projectionRepo, sourceRepo, syncLogRepo, indexClient, cfg.Search.IndexName)
	reindexService := reindexer.NewService(
		projectionRepo, syncLogRepo, indexClient, waiter,
		cfg.Search.IndexName, cfg.Search.StagingSuffix, cfg.Search.PageSize,
	)
	assignmentService := assignments.NewService(sourceRepo, assignmentRepo, projectionRepo, syncService)
	ingestionService := ingestion.NewService(factorRepo, sourceRepo, syncLogRepo, syncService)

	// HTTP surface
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/webhooks/db", webhook.NewHTTPHandler(syncService, cfg.Webhook.Secret))
	mux.Handle("/ingest", ingestion.NewHTTPHandler(ingestionService))
	// Assignment writes are stamped with the admin identity forwarded by
	// the gateway.
	assignmentHandler := auth.ActorMiddleware(assignments.NewHTTPHandler(assignmentService))
	mux.Handle("/admin/assignments", assignmentHandler)
	mux.Handle("/admin/assignments/bulk", assignmentHandler)
	adminHandler := admin.NewHTTPHandler(
		reindexService, syncLogRepo, indexClient, waiter,
		cfg.Search.IndexName, cfg.Search.SettingsPath,
	)
	mux.Handle("/admin/reindex", adminHandler)
	mux.Handle("/admin/settings", adminHandler)
	mux.Handle("/admin/sync-log", adminHandler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.LoggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // full reindex streams within one request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting sync server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
