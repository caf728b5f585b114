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

// MatchRepository defines the interface for match data operations
type MatchRepository interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	CreateMatchIfAbsent(ctx context.Context, match *models.Match) (created bool, err error)
	GetMatchByID(ctx context.Context, id string) (*models.Match, error)
	FindClaim(ctx context.Context, foundItemID, claimantUserID string) (*models.Match, error)
	GetMatchesForUser(ctx context.Context, userID string) ([]models.Match, error)
	SetNotificationOutcome(ctx context.Context, id string, notificationSent, emailSent bool) error
	SetChannelSent(ctx context.Context, id, channel string) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// MongoMatchRepository implements MatchRepository for MongoDB
type MongoMatchRepository struct {
	collection *mongo.Collection
}

// NewMongoMatchRepository creates a new MongoMatchRepository
func NewMongoMatchRepository(db *mongo.Database) *MongoMatchRepository {
	return &MongoMatchRepository{collection: db.Collection("matches")}
}

// CreateMatch inserts a match unconditionally
func (r *MongoMatchRepository) CreateMatch(ctx context.Context, match *models.Match) error {
	match.ID = primitive.NewObjectID()
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, match)
	return err
}

// CreateMatchIfAbsent creates exactly one match per (lostItemId,
// foundItemId) pair. The pair filter plus $setOnInsert makes the
// create idempotent, so triggering matching from both directions
// cannot double-create a pair. When the pair already exists the
// existing document's ID is written back into match.ID.
func (r *MongoMatchRepository) CreateMatchIfAbsent(ctx context.Context, match *models.Match) (bool, error) {
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}

	filter := bson.M{
		"lostItemId":  match.LostItemID,
		"foundItemId": match.FoundItemID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"lostItemId":           match.LostItemID,
			"foundItemId":          match.FoundItemID,
			"lostItemUserId":       match.LostItemUserID,
			"foundItemUserId":      match.FoundItemUserID,
			"lostItemCategory":     match.LostItemCategory,
			"lostItemDescription":  match.LostItemDescription,
			"foundItemDescription": match.FoundItemDescription,
			"similarityScore":      match.SimilarityScore,
			"status":               match.Status,
			"notificationSent":     match.NotificationSent,
			"emailSent":            match.EmailSent,
			"createdAt":            match.CreatedAt,
			"viewedAt":             match.ViewedAt,
		},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	if res.UpsertedID != nil {
		match.ID = res.UpsertedID.(primitive.ObjectID)
		return true, nil
	}

	var existing models.Match
	if err := r.collection.FindOne(ctx, filter).Decode(&existing); err == nil {
		match.ID = existing.ID
	}
	return false, nil
}

// GetMatchByID retrieves a match by ID
func (r *MongoMatchRepository) GetMatchByID(ctx context.Context, id string) (*models.Match, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid match ID format: %w", err)
	}

	var match models.Match
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&match)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &match, nil
}

// FindClaim looks up an existing claim-from-search match for the
// (foundItemId, claimant) pair. Returns ErrNotFound when none exists.
func (r *MongoMatchRepository) FindClaim(ctx context.Context, foundItemID, claimantUserID string) (*models.Match, error) {
	filter := bson.M{"foundItemId": foundItemID, "lostItemUserId": claimantUserID}

	var match models.Match
	err := r.collection.FindOne(ctx, filter).Decode(&match)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("claim for item %s: %w", foundItemID, ErrNotFound)
		}
		return nil, err
	}
	return &match, nil
}

// GetMatchesForUser returns matches where the user is on either side,
// newest first
func (r *MongoMatchRepository) GetMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"lostItemUserId": userID},
			{"foundItemUserId": userID},
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var matches []models.Match
	if err = cursor.All(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// SetNotificationOutcome records the latest delivery attempt state
func (r *MongoMatchRepository) SetNotificationOutcome(ctx context.Context, id string, notificationSent, emailSent bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid match ID format: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"notificationSent":        notificationSent,
			"emailSent":               emailSent,
			"lastNotificationAttempt": time.Now(),
		},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// SetChannelSent flips the delivered flag for one channel after a
// successful retry
func (r *MongoMatchRepository) SetChannelSent(ctx context.Context, id, channel string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid match ID format: %w", err)
	}

	field := "notificationSent"
	if channel == models.ChannelEmail {
		field = "emailSent"
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{field: true}})
	return err
}

// UpdateStatus transitions a match to the given status
func (r *MongoMatchRepository) UpdateStatus(ctx context.Context, id, status string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid match ID format: %w", err)
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}
