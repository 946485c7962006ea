package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"drive-access-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type GrantRepository struct {
	collection *mongo.Collection
	mu         *sync.Mutex
	pageSize   int
}

func NewGrantRepository(db *mongo.Database, sweepPageSize int) *GrantRepository {
	if sweepPageSize <= 0 {
		sweepPageSize = 100
	}
	return &GrantRepository{
		collection: db.Collection("grants"),
		mu:         &sync.Mutex{},
		pageSize:   sweepPageSize,
	}
}

func (r *GrantRepository) Insert(ctx context.Context, grant *models.Grant) (*models.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if grant.ID.IsZero() {
		grant.ID = bson.NewObjectID()
	}
	grant.Status = models.GrantStatusActive

	currentTime := time.Now().Unix()
	if grant.Metadata.CreatedAt == 0 {
		grant.Metadata.CreatedAt = currentTime
	}
	grant.Metadata.UpdatedAt = currentTime

	_, err := r.collection.InsertOne(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("failed to insert grant: %w", err)
	}
	return grant, nil
}

func (r *GrantRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Grant, error) {
	var grant models.Grant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindExpired returns active grants whose expiry has passed, soonest first,
// capped at pageSize.
func (r *GrantRepository) FindExpired(ctx context.Context, now int64) ([]*models.Grant, error) {
	filter := bson.M{
		"status":    models.GrantStatusActive,
		"expiresAt": bson.M{"$gt": 0, "$lte": now},
	}

	opts := options.Find()
	opts.SetSort(bson.M{"expiresAt": 1})
	opts.SetLimit(int64(r.pageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode expired grants: %w", err)
	}

	return grants, nil
}

// FindActive returns grants still in force: timed grants soonest-expiring
// first, permanent grants last.
func (r *GrantRepository) FindActive(ctx context.Context, now int64) ([]*models.Grant, error) {
	filter := bson.M{
		"status": models.GrantStatusActive,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$gt": now}},
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": 0},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode active grants: %w", err)
	}

	sort.SliceStable(grants, func(i, j int) bool {
		a, b := grants[i].ExpiresAt, grants[j].ExpiresAt
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})

	return grants, nil
}

// FindExpiringWithin returns active timed grants that expire inside the given
// window and have not been warned about yet.
func (r *GrantRepository) FindExpiringWithin(ctx context.Context, now int64, window time.Duration) ([]*models.Grant, error) {
	filter := bson.M{
		"status":    models.GrantStatusActive,
		"expiresAt": bson.M{"$gt": now, "$lte": now + int64(window.Seconds())},
		"$or": []bson.M{
			{"warnedAt": bson.M{"$exists": false}},
			{"warnedAt": 0},
		},
	}

	opts := options.Find()
	opts.SetSort(bson.M{"expiresAt": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode expiring grants: %w", err)
	}

	return grants, nil
}

// MarkTerminal transitions an active grant to a terminal status. Marking a
// grant that is already terminal is a no-op, not an error.
func (r *GrantRepository) MarkTerminal(ctx context.Context, id bson.ObjectID, status models.GrantStatus, at int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	set := bson.M{
		"status":             status,
		"metadata.updatedAt": at,
	}
	switch status {
	case models.GrantStatusExpired:
		set["expiredAt"] = at
	case models.GrantStatusRevoked:
		set["revokedAt"] = at
	case models.GrantStatusRevocationFailed:
		set["failedAt"] = at
	}

	filter := bson.M{"_id": id, "status": models.GrantStatusActive}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to mark grant terminal: %w", err)
	}

	if result.MatchedCount == 0 {
		// Either the grant does not exist or it already left the active
		// state; only the former is an error.
		var existing models.Grant
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&existing); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// Extend adds seconds to an active timed grant's expiry and clears any
// pending expiry warning.
func (r *GrantRepository) Extend(ctx context.Context, id bson.ObjectID, extraSeconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filter := bson.M{
		"_id":       id,
		"status":    models.GrantStatusActive,
		"expiresAt": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"expiresAt": extraSeconds},
		"$set": bson.M{
			"warnedAt":           int64(0),
			"metadata.updatedAt": time.Now().Unix(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to extend grant: %w", err)
	}

	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *GrantRepository) UpdateRole(ctx context.Context, id bson.ObjectID, role models.GrantRole, clearExpiry bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := bson.M{
		"role":               role,
		"metadata.updatedAt": time.Now().Unix(),
	}
	if clearExpiry {
		set["expiresAt"] = int64(0)
		set["warnedAt"] = int64(0)
	}

	filter := bson.M{"_id": id, "status": models.GrantStatusActive}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update grant role: %w", err)
	}

	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *GrantRepository) MarkWarned(ctx context.Context, id bson.ObjectID, at int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filter := bson.M{"_id": id, "status": models.GrantStatusActive}
	update := bson.M{"$set": bson.M{"warnedAt": at, "metadata.updatedAt": at}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark grant warned: %w", err)
	}
	return nil
}

func (r *GrantRepository) Search(ctx context.Context, query *models.GrantSearchQuery) ([]*models.Grant, int64, error) {
	filter := bson.M{}

	if query.Email != "" {
		filter["email"] = models.NormalizeEmail(query.Email)
	}
	if query.FolderID != "" {
		filter["folderId"] = query.FolderID
	}
	if query.Status != "" {
		filter["status"] = query.Status
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count grants: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.M{"grantedAt": -1})
	opts.SetSkip(int64((query.Page - 1) * query.PageSize))
	opts.SetLimit(int64(query.PageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, 0, fmt.Errorf("failed to decode grants: %w", err)
	}

	return grants, totalCount, nil
}

func (r *GrantRepository) CountActive(ctx context.Context, now int64) (int64, error) {
	filter := bson.M{
		"status": models.GrantStatusActive,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$gt": now}},
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": 0},
		},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count active grants: %w", err)
	}
	return count, nil
}

func (r *GrantRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "folderId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "grantedAt", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expiresAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "folderId", Value: 1},
				{Key: "status", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create grant indexes: %w", err)
	}

	return nil
}
