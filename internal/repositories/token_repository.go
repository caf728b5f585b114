package repositories

import (
	"context"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TokenRepository defines the interface for the push-token registry
type TokenRepository interface {
	UpsertToken(ctx context.Context, userID, token string, deviceInfo *models.DeviceInfo, expiresAt time.Time) error
	GetValidTokens(ctx context.Context, userID string, now time.Time) ([]models.PushToken, error)
	DeleteTokens(ctx context.Context, userID string, tokens []string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MongoTokenRepository implements TokenRepository for MongoDB. Tokens
// live in a single collection filtered by userId, the flat equivalent
// of a per-user sub-collection.
type MongoTokenRepository struct {
	collection *mongo.Collection
}

// NewMongoTokenRepository creates a new MongoTokenRepository
func NewMongoTokenRepository(db *mongo.Database) *MongoTokenRepository {
	return &MongoTokenRepository{collection: db.Collection("fcmTokens")}
}

// UpsertToken registers a token, refreshing timestamps in place when
// the same token value is already on record for the user.
func (r *MongoTokenRepository) UpsertToken(ctx context.Context, userID, token string, deviceInfo *models.DeviceInfo, expiresAt time.Time) error {
	now := time.Now()

	filter := bson.M{"userId": userID, "token": token}
	update := bson.M{
		"$set": bson.M{
			"lastUsedAt": now,
			"expiresAt":  expiresAt,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"userId":    userID,
			"token":     token,
			"createdAt": now,
		},
	}
	if deviceInfo != nil {
		update["$set"].(bson.M)["deviceInfo"] = deviceInfo
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetValidTokens returns the user's tokens that have not expired.
// Expired tokens stay in storage until cleanup or provider-driven
// invalidation removes them.
func (r *MongoTokenRepository) GetValidTokens(ctx context.Context, userID string, now time.Time) ([]models.PushToken, error) {
	filter := bson.M{"userId": userID, "expiresAt": bson.M{"$gt": now}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tokens []models.PushToken
	if err = cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteTokens removes the given token values for a user
func (r *MongoTokenRepository) DeleteTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	filter := bson.M{"userId": userID, "token": bson.M{"$in": tokens}}
	_, err := r.collection.DeleteMany(ctx, filter)
	return err
}

// DeleteExpiredBefore removes tokens whose expiry passed before the
// cutoff, across all users
func (r *MongoTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
