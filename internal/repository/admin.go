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

type AdminRepository struct {
	collection *mongo.Collection
	mu         *sync.Mutex
}

func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{
		collection: db.Collection("admins"),
		mu:         &sync.Mutex{},
	}
}

func (r *AdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}
	return true, nil
}

func (r *AdminRepository) Add(ctx context.Context, userID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	admin := &models.Admin{
		ID:      bson.NewObjectID(),
		UserID:  userID,
		Name:    name,
		AddedAt: time.Now().Unix(),
	}
	if _, err := r.collection.InsertOne(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to insert admin: %w", err)
	}
	return true, nil
}

func (r *AdminRepository) Remove(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return false, fmt.Errorf("failed to remove admin: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]*models.Admin, error) {
	opts := options.Find()
	opts.SetSort(bson.M{"addedAt": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer cursor.Close(ctx)

	var admins []*models.Admin
	if err = cursor.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("failed to decode admins: %w", err)
	}
	return admins, nil
}

// Bootstrap inserts the configured admin IDs if they are not present yet.
func (r *AdminRepository) Bootstrap(ctx context.Context, adminIDs []string) error {
	for _, id := range adminIDs {
		if _, err := r.Add(ctx, id, "Config Admin"); err != nil {
			return err
		}
	}
	return nil
}

func (r *AdminRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create admin indexes: %w", err)
	}
	return nil
}
