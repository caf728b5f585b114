package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueueRepository defines the interface for the notification retry queue
type QueueRepository interface {
	Enqueue(ctx context.Context, matchID, userID, channel string) error
	GetDueItems(ctx context.Context, now time.Time, maxRetries int, limit int64) ([]models.NotificationQueueItem, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MongoQueueRepository implements QueueRepository for MongoDB
type MongoQueueRepository struct {
	collection *mongo.Collection
}

// NewMongoQueueRepository creates a new MongoQueueRepository
func NewMongoQueueRepository(db *mongo.Database) *MongoQueueRepository {
	return &MongoQueueRepository{collection: db.Collection("notificationQueue")}
}

// Enqueue records a failed delivery attempt for later retry. The item
// is immediately due: nextRetryAt starts at now.
func (r *MongoQueueRepository) Enqueue(ctx context.Context, matchID, userID, channel string) error {
	now := time.Now()
	item := models.NotificationQueueItem{
		ID:          primitive.NewObjectID(),
		MatchID:     matchID,
		UserID:      userID,
		Type:        channel,
		Status:      models.QueueStatusPending,
		RetryCount:  0,
		CreatedAt:   now,
		NextRetryAt: now,
	}
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// GetDueItems returns up to limit pending items whose retry time has
// arrived and whose retry budget is not exhausted
func (r *MongoQueueRepository) GetDueItems(ctx context.Context, now time.Time, maxRetries int, limit int64) ([]models.NotificationQueueItem, error) {
	filter := bson.M{
		"status":      models.QueueStatusPending,
		"nextRetryAt": bson.M{"$lte": now},
		"retryCount":  bson.M{"$lt": maxRetries},
	}
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "nextRetryAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.NotificationQueueItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkProcessing transitions an item to processing
func (r *MongoQueueRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, bson.M{"status": models.QueueStatusProcessing})
}

// MarkCompleted transitions an item to its completed terminal state
func (r *MongoQueueRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, bson.M{"status": models.QueueStatusCompleted})
}

// MarkFailed transitions an item to its failed terminal state
func (r *MongoQueueRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.setStatus(ctx, id, bson.M{"status": models.QueueStatusFailed, "lastError": reason})
}

// ScheduleRetry puts an item back to pending with a bumped retry count
// and the next backoff deadline
func (r *MongoQueueRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error {
	return r.setStatus(ctx, id, bson.M{
		"status":      models.QueueStatusPending,
		"retryCount":  retryCount,
		"nextRetryAt": nextRetryAt,
		"lastError":   lastError,
	})
}

func (r *MongoQueueRepository) setStatus(ctx context.Context, id string, fields bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid queue item ID format: %w", err)
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("queue item %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteFinishedBefore purges completed and failed items older than
// the cutoff. Housekeeping only.
func (r *MongoQueueRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":    bson.M{"$in": []string{models.QueueStatusCompleted, models.QueueStatusFailed}},
		"createdAt": bson.M{"$lte": cutoff},
	}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
