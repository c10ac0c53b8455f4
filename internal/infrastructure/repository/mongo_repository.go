package repository

import (
	"context"
	"fmt"
	"time"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLogRepository implements SyncLogRepository using MongoDB
type MongoSyncLogRepository struct {
	reportsCollection  *mongo.Collection
	webhooksCollection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new MongoDB sync log repository
func NewMongoSyncLogRepository(db *mongo.Database) ports.SyncLogRepository {
	return &MongoSyncLogRepository{
		reportsCollection:  db.Collection("sync_reports"),
		webhooksCollection: db.Collection("webhook_events"),
	}
}

type syncReportDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Result    string             `bson:"result"`
	Report    *domain.SyncReport `bson:"report"`
	CreatedAt time.Time          `bson:"created_at"`
}

type webhookEventDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Source    string             `bson:"source"`
	Payload   string             `bson:"payload"`
	CreatedAt time.Time          `bson:"created_at"`
}

// SaveSyncReport stores a finished sync run with its derived result.
func (r *MongoSyncLogRepository) SaveSyncReport(ctx context.Context, report *domain.SyncReport) error {
	doc := syncReportDoc{
		ID:        primitive.NewObjectID(),
		Result:    string(report.Overall()),
		Report:    report,
		CreatedAt: time.Now(),
	}

	_, err := r.reportsCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save sync report: %w", err)
	}

	return nil
}

// LogWebhookEvent stores an inbound webhook payload for auditing.
func (r *MongoSyncLogRepository) LogWebhookEvent(ctx context.Context, source string, payload []byte) error {
	doc := webhookEventDoc{
		ID:        primitive.NewObjectID(),
		Source:    source,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook event: %w", err)
	}

	return nil
}

// RecentReports returns the latest sync runs, newest first.
func (r *MongoSyncLogRepository) RecentReports(ctx context.Context, limit int64) ([]*domain.SyncReport, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.reportsCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*domain.SyncReport
	for cursor.Next(ctx) {
		var doc syncReportDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync report: %w", err)
		}
		reports = append(reports, doc.Report)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return reports, nil
}
