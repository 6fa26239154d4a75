package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	obs "github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
)

// CleanupService handles data retention for cached analyses.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90 // default 90 days
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, now: time.Now}
}

// CleanupOldData removes analyses older than the retention period and reports how many were deleted.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)

	tag, err := s.Pool.Exec(ctx, `DELETE FROM candidate_job_analyses WHERE analysis_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=cleanup.analyses: %w", err)
	}
	deleted := tag.RowsAffected()
	obs.CleanupDeletedTotal.Add(float64(deleted))

	slog.Info("data cleanup completed",
		slog.Int64("deleted_analyses", deleted),
		slog.Time("cutoff", cutoff),
	)
	return deleted, nil
}

// RunPeriodic starts a periodic cleanup job and blocks until ctx is done.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour // daily by default
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
