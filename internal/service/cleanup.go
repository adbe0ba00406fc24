package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/gthanks/internal/metrics"
	"github.com/sakif/gthanks/internal/repository"
)

// CleanupResult reports what one cleanup run removed.
type CleanupResult struct {
	AuditDeleted int64     `json:"auditDeleted"`
	Cutoff       time.Time `json:"cutoff"`
}

// CleanupService prunes old audit rows. It runs on a ticker inside the server
// and can also be triggered by an external cron through POST /api/cron/cleanup.
type CleanupService struct {
	audit     repository.AuditRepository
	retention time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewCleanupService(audit repository.AuditRepository, retention time.Duration, m *metrics.Metrics, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		audit:     audit,
		retention: retention,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run deletes audit entries older than the retention window.
func (s *CleanupService) Run(ctx context.Context) (*CleanupResult, error) {
	cutoff := s.now().UTC().Add(-s.retention)

	n, err := s.audit.DeleteAuditBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "cleanup failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("cleanup: deleting audit entries: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AuditEntriesDeleted.Add(float64(n))
	}

	s.logger.InfoContext(ctx, "cleanup finished",
		slog.Int64("auditDeleted", n),
		slog.Time("cutoff", cutoff),
	)
	return &CleanupResult{AuditDeleted: n, Cutoff: cutoff}, nil
}

// Start runs the cleanup every interval until ctx is cancelled. Failures are
// logged by Run and the loop carries on.
func (s *CleanupService) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = s.Run(ctx)
		}
	}
}
