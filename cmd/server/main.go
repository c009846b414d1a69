package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/sheetjoin/internal/config"
	"github.com/JonMunkholm/sheetjoin/internal/core"
	"github.com/JonMunkholm/sheetjoin/internal/history"
	"github.com/JonMunkholm/sheetjoin/internal/logging"
	"github.com/JonMunkholm/sheetjoin/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	// Setup structured logging based on config; flushes Seq on exit
	flushLogs := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer flushLogs()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_file_size", cfg.Upload.MaxFileSize,
		"merge_max_concurrent", cfg.Merge.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.HistoryEnabled(),
	)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	// Run history is optional. Without a database the service just merges.
	var recorder core.RunRecorder
	if cfg.Database.HistoryEnabled() {
		pool, err := connectDatabase(jobCtx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			return 1
		}
		defer pool.Close()

		store := history.NewStore(pool)
		if err := store.Migrate(jobCtx); err != nil {
			slog.Error("failed to migrate history schema", "error", err)
			return 1
		}
		recorder = store

		go history.StartPruneScheduler(jobCtx, store, history.PruneConfig{
			RetentionDays: cfg.Database.RetentionDays,
			CheckInterval: cfg.Database.PruneInterval,
		})
	} else {
		slog.Info("run history disabled: DATABASE_URL not set")
	}

	service := core.NewService(cfg, recorder)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight merges finish before closing connections
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for merges to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("merges did not complete in time", "error", err)
			} else {
				slog.Info("all merges completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		return 1
	}
	<-stopped
	slog.Info("server stopped")
	return 0
}

// connectDatabase opens and verifies the history connection pool.
func connectDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to history database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to history database")
	}
	return pool, nil
}
