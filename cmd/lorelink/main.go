package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/config"
	dbRedis "github.com/kailas-cloud/lorelink/internal/db/redis"
	"github.com/kailas-cloud/lorelink/internal/db/sqlite"
	"github.com/kailas-cloud/lorelink/internal/domain"
	dommention "github.com/kailas-cloud/lorelink/internal/domain/mention"
	logpkg "github.com/kailas-cloud/lorelink/internal/logger"
	"github.com/kailas-cloud/lorelink/internal/metrics"
	budgetrepo "github.com/kailas-cloud/lorelink/internal/repository/budget"
	entityrepo "github.com/kailas-cloud/lorelink/internal/repository/entity"
	"github.com/kailas-cloud/lorelink/internal/repository/kvcache"
	chiTransport "github.com/kailas-cloud/lorelink/internal/transport/chi"
	openaiSum "github.com/kailas-cloud/lorelink/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/lorelink/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/lorelink/internal/usecase/health"
	mentionuc "github.com/kailas-cloud/lorelink/internal/usecase/mention"
	previewuc "github.com/kailas-cloud/lorelink/internal/usecase/preview"
	summaryuc "github.com/kailas-cloud/lorelink/internal/usecase/summary"
	"github.com/kailas-cloud/lorelink/internal/version"
)

// catalogRepo is what the services need from either storage backend.
type catalogRepo interface {
	cataloguc.Repository
	Ping(ctx context.Context) error
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lorelink API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("annotate_engine", cfg.Annotate.Engine),
	)

	metrics.Register()

	ctx := context.Background()

	var (
		repo           catalogRepo
		annotateCache  *kvcache.Cache
		summarizeCache *kvcache.Cache
		budgetCounters *budgetrepo.Store
	)

	if cfg.Database.IsKV() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Database.Addrs,
			Password:   cfg.Database.Password,
			ClientName: "lorelink",
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

		repo = &kvRepo{Repo: entityrepo.New(store).WithKeyPrefix(cfg.Storage.KeyPrefix), store: store}
		if cfg.Annotate.CacheTTLSec > 0 {
			annotateCache = kvcache.New(store, "annotate", metrics.CacheTotal, logger).
				WithKeyPrefix(cfg.Storage.KeyPrefix).
				WithTTL(time.Duration(cfg.Annotate.CacheTTLSec) * time.Second)
		}
		summarizeCache = kvcache.New(store, "summary", metrics.CacheTotal, logger).
			WithKeyPrefix(cfg.Storage.KeyPrefix).
			WithTTL(time.Duration(cfg.Preview.Summarizer.CacheTTLSec) * time.Second)
		budgetCounters = budgetrepo.New(store)
	} else {
		sqlDB, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			logger.Fatal("Failed to open sqlite database", zap.Error(err))
		}
		defer func() { _ = sqlDB.Close() }()
		logger.Info("Opened sqlite database", zap.String("path", cfg.Database.SQLitePath))

		repo = entityrepo.NewSQL(sqlDB)
		if cfg.Annotate.CacheTTLSec > 0 {
			logger.Warn("Annotation cache needs a key-value store, disabled for sqlite")
		}
	}

	catalogSvc := cataloguc.New(repo).WithMaxBatchSize(cfg.Catalog.MaxBatchSize)

	mentionSvc := mentionuc.New(repo, logger).
		WithEngine(dommention.Engine(cfg.Annotate.Engine)).
		WithMaxTextBytes(cfg.Annotate.MaxTextBytes)
	if annotateCache != nil {
		mentionSvc = mentionSvc.WithCache(annotateCache)
	}

	previewSvc := previewuc.New(repo, mentionSvc, logger)

	// Pass a nil interface, not a typed nil pointer, when the summarizer is off.
	var summarizerCheck healthuc.SummarizerChecker
	if sc := cfg.Preview.Summarizer; sc.Model != "" {
		base := openaiSum.NewSummarizer(&openaiSum.Config{
			APIKey:  sc.APIKey,
			BaseURL: sc.BaseURL,
			Model:   sc.Model,
			Timeout: time.Duration(sc.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		var summarizer domain.Summarizer = base
		if bc := sc.Budget; bc.Enabled() {
			budget := summaryuc.NewBudget(bc.DailyTokens, bc.MonthlyTokens, summaryuc.BudgetAction(bc.Action), logger).
				WithKeyPrefix(cfg.Storage.KeyPrefix)
			if budgetCounters != nil {
				budget = budget.WithStore(ctx, budgetCounters)
			}
			summarizer = summaryuc.NewBudgeted(summarizer, budget, sc.Model, logger)
			logger.Info("Summarizer budget enabled",
				zap.Int64("daily_tokens", bc.DailyTokens),
				zap.Int64("monthly_tokens", bc.MonthlyTokens),
				zap.String("action", bc.Action),
			)
		}
		if summarizeCache != nil {
			summarizer = kvcache.NewSummarizer(summarizer, summarizeCache, sc.Model)
		}
		previewSvc = previewSvc.WithSummarizer(summarizer, sc.MaxDescriptionChars)
		summarizerCheck = base
		logger.Info("Summarizer enabled", zap.String("model", sc.Model))
	}

	healthSvc := healthuc.New(repo, summarizerCheck).WithVersion(version.String())

	server := chiTransport.NewServer(catalogSvc, mentionSvc, previewSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.Handler(server, chiTransport.Options{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, req *http.Request, err error) {
			logpkg.FromContext(req.Context()).Debug("Invalid request parameters", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"invalid request"}` + "\n"))
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// kvRepo adds the store's Ping to the hash-backed repository.
type kvRepo struct {
	*entityrepo.Repo
	store *dbRedis.Store
}

func (k *kvRepo) Ping(ctx context.Context) error {
	if err := k.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}
