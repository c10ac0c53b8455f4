package repository

import (
	"context"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"
)

// NoopSyncLogRepository is used when no MongoDB is configured: runs still
// work, nothing is persisted.
type NoopSyncLogRepository struct{}

// NewNoopSyncLogRepository creates a repository that discards all writes.
func NewNoopSyncLogRepository() ports.SyncLogRepository {
	return &NoopSyncLogRepository{}
}

func (r *NoopSyncLogRepository) SaveSyncReport(ctx context.Context, report *domain.SyncReport) error {
	return nil
}

func (r *NoopSyncLogRepository) LogWebhookEvent(ctx context.Context, source string, payload []byte) error {
	return nil
}

func (r *NoopSyncLogRepository) RecentReports(ctx context.Context, limit int64) ([]*domain.SyncReport, error) {
	return nil, nil
}
