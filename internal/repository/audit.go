package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drive-access-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditRepository records admin and scheduler actions. Entries are never
// physically deleted; ClearAll soft-deletes them.
type AuditRepository struct {
	collection *mongo.Collection
	mu         *sync.Mutex
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection("logs"),
		mu:         &sync.Mutex{},
	}
}

func (r *AuditRepository) Log(ctx context.Context, adminID, adminName, action string, details map[string]any) error {
	entry := &models.AuditEntry{
		ID:        bson.NewObjectID(),
		AdminID:   adminID,
		AdminName: adminName,
		Action:    action,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, action string, page, pageSize int) ([]*models.AuditEntry, int64, error) {
	filter := bson.M{"isDeleted": bson.M{"$ne": true}}
	if action != "" {
		filter["action"] = action
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.M{"timestamp": -1})
	opts.SetSkip(int64((page - 1) * pageSize))
	opts.SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, totalCount, nil
}

// CountByActionSince counts non-deleted entries per action recorded after the
// given timestamp. Feeds the daily digest.
func (r *AuditRepository) CountByActionSince(ctx context.Context, since int64) (map[string]int64, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"isDeleted": bson.M{"$ne": true},
				"timestamp": bson.M{"$gte": since},
			},
		},
		{
			"$group": bson.M{
				"_id":   "$action",
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Action string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode audit counts: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, result := range results {
		counts[result.Action] = result.Count
	}
	return counts, nil
}

func (r *AuditRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"isDeleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": time.Now().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear audit entries: %w", err)
	}
	return nil
}

func (r *AuditRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "action", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}
