package ports

import (
	"context"

	"fragrance-sync-layer/internal/domain"
)

// SyncLogRepository persists sync run reports and inbound webhook payloads
// for auditing. All writes are best-effort: a logging failure must never
// fail the request that produced it.
type SyncLogRepository interface {
	SaveSyncReport(ctx context.Context, report *domain.SyncReport) error
	LogWebhookEvent(ctx context.Context, source string, payload []byte) error
	RecentReports(ctx context.Context, limit int64) ([]*domain.SyncReport, error)
}
