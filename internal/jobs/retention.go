package jobs

import (
	"context"
	"log/slog"
	"time"

	"sniper/internal/config"
	"sniper/internal/metrics"
	"sniper/internal/store"
)

// RetentionStats captures the number of records deleted by TTL cleanup.
type RetentionStats struct {
	AnalysesDeleted int64 `json:"analysesDeleted"`
}

// CleanupExpiredData deletes old analyses based on retention settings so
// that the database does not grow without bound.
func CleanupExpiredData(ctx context.Context, cfg *config.Config, st *store.Store) RetentionStats {
	var stats RetentionStats

	if cfg.Retention.AnalysesDays <= 0 {
		return stats
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Retention.AnalysesDays)
	if n, err := st.DeleteExpiredAnalyses(ctx, cutoff); err == nil && n > 0 {
		stats.AnalysesDeleted = n
		metrics.RecordRetentionAnalyses(n)
	}

	return stats
}

// StartRetentionLoop runs cleanup on a fixed interval until the context
// is cancelled.
func StartRetentionLoop(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) {
	if !cfg.Retention.Enabled {
		return
	}

	interval := time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := CleanupExpiredData(ctx, cfg, st)
				if stats.AnalysesDeleted > 0 && logger != nil {
					logger.Info("retention cleanup", "analyses_deleted", stats.AnalysesDeleted)
				}
			}
		}
	}()
}
