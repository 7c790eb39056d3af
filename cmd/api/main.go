package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ragfuse/ragfuse/internal/api"
	"github.com/ragfuse/ragfuse/internal/config"
	"github.com/ragfuse/ragfuse/internal/database"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// The vector index shares the catalog's Postgres instance. If the
	// pgvector extension is missing the index degrades to a store that
	// reports unavailability on every call instead of crashing.
	var vectors vectorstore.Store
	vs, err := vectorstore.NewPgVectorStore(ctx, db)
	if err != nil {
		slog.Error("vector index unavailable, running degraded", "error", err)
		vectors = vectorstore.NewUnavailable()
	} else {
		vectors = vs
	}

	// Redis is an optional embedding cache.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without embedding cache", "error", err)
		rdb.Close()
		rdb = nil
	} else {
		defer rdb.Close()
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		slog.Error("failed to create uploads dir", "dir", cfg.Uploads.Dir, "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(db, rdb, vectors, cfg)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
