package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/timmy/recipeclip/internal/api"
	"github.com/timmy/recipeclip/internal/api/handler"
	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/cache"
	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/metrics"
	"github.com/timmy/recipeclip/internal/provider"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/service"
	"github.com/timmy/recipeclip/internal/source"
	"github.com/timmy/recipeclip/internal/source/staging"
	"github.com/timmy/recipeclip/internal/storage"
	"github.com/timmy/recipeclip/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Fatal("Failed to initialize tracing: %v", err)
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	users := repository.NewUserRepository(db)
	recipes := repository.NewRecipeRepository(db)
	likes := repository.NewLikeRepository(db)
	comments := repository.NewCommentRepository(db)

	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory media storage")
	}
	objectStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}

	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
	}

	var cacheOpts []cache.Option
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		backend := cache.NewRedisBackend(client, cfg.Redis.KeyPrefix)
		if err := backend.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, suggestions fall back to memory until it recovers: %v", err)
		}
		cacheOpts = append(cacheOpts, cache.WithBackend(backend))
		checks["redis"] = backend.Ping
	}

	suggestCfg := cfg.Discovery.Suggestions
	suggestions := cache.NewSuggestionCache(suggestCfg.Capacity, suggestCfg.TTL, cacheOpts...)

	videoCfg := cfg.Discovery.VideoSearch
	if videoCfg.APIKey == "" {
		logger.Warn("Video search API key not set, external videos disabled")
	}
	discoveryCfg := service.DefaultDiscoveryConfig()
	discoveryCfg.BrowseLimit = videoCfg.BrowseLimit
	discoveryCfg.SearchLimit = videoCfg.SearchLimit
	discoveryCfg.LocalSuggestions = suggestCfg.LocalLimit
	discoveryCfg.ExternalSuggestions = cfg.Discovery.Autocomplete.MaxResults
	discoveryCfg.MaxSuggestions = suggestCfg.MaxTotal
	discoveryCfg.LocalTimeout = cfg.Discovery.Autocomplete.Timeout

	discoveryService := service.NewDiscoveryService(
		recipes,
		provider.NewYouTubeClient(videoCfg),
		provider.NewSuggestClient(cfg.Discovery.Autocomplete),
		suggestions,
		discoveryCfg,
	)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	recipeService := service.NewRecipeService(recipes, likes, comments, users, objectStorage)
	accountService := service.NewAccountService(users, objectStorage, tokens)
	adminService := service.NewAdminService(users, recipes, likes, comments, objectStorage)
	importService := service.NewImportService(recipes, recipeService, &service.ImportConfig{
		Workers:   cfg.Import.Workers,
		BatchSize: cfg.Import.BatchSize,
	})

	if _, created, err := accountService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("Failed to ensure admin account: %v", err)
	} else if created {
		logger.Info("Created default admin account %q", cfg.Auth.AdminUsername)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	stagingDir := cfg.Import.StagingDir
	sources := func(name string) (source.Source, bool) {
		names, err := staging.ListStagingSources(stagingDir)
		if err != nil {
			return nil, false
		}
		for _, n := range names {
			if n == name {
				return staging.NewAdapter(stagingDir, name), true
			}
		}
		return nil, false
	}

	router := api.SetupRouter(&api.Services{
		Discovery: discoveryService,
		Accounts:  accountService,
		Recipes:   recipeService,
		Admin:     adminService,
		Importer:  importService,
		Sources:   sources,
		Checks:    checks,
		Tokens:    tokens,
		Gatherer:  registry,
	}, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: otelhttp.NewHandler(router, "recipeclip"),
	}

	go func() {
		logger.GetDefault().WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces: %v", err)
	}

	logger.Info("Server exited")
}
