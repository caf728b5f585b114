package repositories

import (
	"context"
	"fmt"

	"github.com/traceyhq/tracey/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository defines the read-only interface onto user documents.
// Accounts and notification preferences are written by the external
// auth and profile flows.
type UserRepository interface {
	GetUserByID(ctx context.Context, uid string) (*models.User, error)
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// GetUserByID retrieves a user by their auth UID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", uid, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}
