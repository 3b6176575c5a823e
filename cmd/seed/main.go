package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/service"
	"github.com/timmy/recipeclip/internal/source/staging"
	"github.com/timmy/recipeclip/internal/storage"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "recipeclip-seed",
	})
	logger.SetDefaultLogger(appLogger)

	sourceName := flag.String("source", "", "Staging batch to import (directory under import.staging_dir); empty imports nothing")
	limit := flag.Int("limit", 0, "Maximum number of recipes to import; 0 imports all")
	force := flag.Bool("force", false, "Import even when the admin already has a recipe with the same title")
	list := flag.Bool("list", false, "List staging batches and exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *list {
		names, err := staging.ListStagingSources(cfg.Import.StagingDir)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to list staging batches")
		}
		appLogger.WithFields(logger.Fields{
			"staging_dir": cfg.Import.StagingDir,
			"batches":     names,
		}).Info("Staging batches")
		return
	}

	// Seeding always migrates, regardless of database.auto_migrate.
	dbCfg := cfg.Database
	dbCfg.AutoMigrate = true
	db, err := repository.InitDB(&dbCfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objectStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	users := repository.NewUserRepository(db)
	recipes := repository.NewRecipeRepository(db)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accounts := service.NewAccountService(users, objectStorage, tokens)

	admin, created, err := accounts.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure admin account")
	}
	appLogger.WithFields(logger.Fields{
		"username": admin.Username,
		"created":  created,
	}).Info("Admin account ready")

	if *sourceName == "" {
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	uploader := service.NewRecipeService(
		recipes,
		repository.NewLikeRepository(db),
		repository.NewCommentRepository(db),
		users,
		objectStorage,
	)
	importer := service.NewImportService(recipes, uploader, &service.ImportConfig{
		Workers:   cfg.Import.Workers,
		BatchSize: cfg.Import.BatchSize,
	})

	src := staging.NewAdapter(cfg.Import.StagingDir, *sourceName)
	stats, err := importer.ImportFromSource(ctx, src, service.ImportOptions{
		OwnerID: admin.ID,
		Limit:   *limit,
		Force:   *force,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to import from staging")
	}
	appLogger.WithFields(logger.Fields{
		"total":    stats.TotalItems,
		"imported": stats.ImportedItems,
		"skipped":  stats.SkippedItems,
		"failed":   stats.FailedItems,
	}).Info("Import completed")
}
