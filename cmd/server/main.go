package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bontroc_backend/internal/category"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/listing/esutil"
	"bontroc_backend/internal/platform/database"
	platformes "bontroc_backend/internal/platform/elasticsearch"
	"bontroc_backend/internal/platform/logger"
	"bontroc_backend/internal/platform/storage"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "sync-listings" {
		syncListingsCmd := flag.NewFlagSet("sync-listings", flag.ExitOnError)
		batchSize := syncListingsCmd.Int("batch-size", 100, "Batch size for syncing listings")
		_ = syncListingsCmd.Parse(os.Args[2:])
		runListingSync(*batchSize)
		return
	}

	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ERROR: Server stopped unexpectedly: %v", err)
			return
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// runListingSync pushes every listing into the search index in id order.
func runListingSync(batchSize int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for sync: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformes.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("ELASTICSEARCH_URL is not set, nothing to sync into.")
	}

	ctx := context.Background()
	if err := platformes.CreateListingsIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		appLogger.Fatal("Failed to create or verify the listings index", zap.Error(err))
	}

	store, err := storage.NewObjectStore(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	categories := category.NewService(category.NewGORMRepository(db), appLogger)
	listings := listing.NewService(listing.NewGORMRepository(db), categories, esutil.NewListingIndex(esClient, appLogger), store, cfg, appLogger)

	appLogger.Info("Starting listing synchronization", zap.Int("batchSize", batchSize))
	total, err := listings.Reindex(ctx, batchSize)
	if err != nil {
		appLogger.Fatal("Listing synchronization failed", zap.Error(err), zap.Int("indexed", total))
	}
	appLogger.Info("Listing synchronization completed", zap.Int("indexed", total))
}
