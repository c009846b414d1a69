package history

// scheduler.go deletes old run summaries on a fixed interval. It runs until
// its context is cancelled and never stops the application on a failed pass.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig holds configuration for the prune scheduler.
type PruneConfig struct {
	RetentionDays int           // Days to keep runs (default: 90)
	CheckInterval time.Duration // How often to prune (default: 24h)
}

func (c PruneConfig) withDefaults() PruneConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

type pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartPruneScheduler deletes runs older than the retention window.
// It runs immediately on start, then every CheckInterval, and returns
// when ctx is cancelled.
func StartPruneScheduler(ctx context.Context, store pruner, cfg PruneConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history prune scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval,
	)

	runPruneJob(ctx, store, cfg, time.Now)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history prune scheduler stopped")
			return
		case <-ticker.C:
			runPruneJob(ctx, store, cfg, time.Now)
		}
	}
}

// runPruneJob performs one prune pass.
func runPruneJob(ctx context.Context, store pruner, cfg PruneConfig, now func() time.Time) {
	start := time.Now()
	cutoff := now().AddDate(0, 0, -cfg.RetentionDays)

	pruned, err := store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned merge runs",
		"runs_pruned", pruned,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
