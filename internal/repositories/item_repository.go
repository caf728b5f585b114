package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id string) (*models.Item, error)
	GetOpenItemsByType(ctx context.Context, itemType string) ([]models.Item, error)
	GetOpenItems(ctx context.Context) ([]models.Item, error)
	SetAnalysis(ctx context.Context, id string, analysis *models.ItemAnalysisRequest) error
	ClaimItems(ctx context.Context, lostItemID, foundItemID string) error
}

// MongoItemRepository implements ItemRepository for MongoDB
type MongoItemRepository struct {
	collection *mongo.Collection
}

// NewMongoItemRepository creates a new MongoItemRepository
func NewMongoItemRepository(db *mongo.Database) *MongoItemRepository {
	return &MongoItemRepository{collection: db.Collection("items")}
}

// normalizeItem folds legacy document shapes into the current one.
// Early reports stored a single imageUrl string instead of images[].
func normalizeItem(item *models.Item) {
	if item.LegacyImageURL != "" && len(item.Images) == 0 {
		item.Images = []string{item.LegacyImageURL}
	}
	item.LegacyImageURL = ""
	if item.ColorTags == nil {
		item.ColorTags = []string{}
	}
	if item.Images == nil {
		item.Images = []string{}
	}
}

// CreateItem inserts a new item report with an empty embedding
func (r *MongoItemRepository) CreateItem(ctx context.Context, item *models.Item) error {
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now()
	if item.Status == "" {
		item.Status = models.ItemStatusOpen
	}
	normalizeItem(item)
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// GetItemByID retrieves an item by ID
func (r *MongoItemRepository) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item ID format: %w", err)
	}

	var item models.Item
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	normalizeItem(&item)
	return &item, nil
}

// GetOpenItemsByType retrieves all open items of the given type
func (r *MongoItemRepository) GetOpenItemsByType(ctx context.Context, itemType string) ([]models.Item, error) {
	return r.findItems(ctx, bson.M{"type": itemType, "status": models.ItemStatusOpen})
}

// GetOpenItems retrieves all open items regardless of type
func (r *MongoItemRepository) GetOpenItems(ctx context.Context) ([]models.Item, error) {
	return r.findItems(ctx, bson.M{"status": models.ItemStatusOpen})
}

func (r *MongoItemRepository) findItems(ctx context.Context, filter bson.M) ([]models.Item, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	for i := range items {
		normalizeItem(&items[i])
	}
	return items, nil
}

// SetAnalysis writes the AI analysis result onto an item
func (r *MongoItemRepository) SetAnalysis(ctx context.Context, id string, analysis *models.ItemAnalysisRequest) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID format: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"aiDescription": analysis.AIDescription,
			"category":      analysis.Category,
			"colorTags":     analysis.ColorTags,
			"embedding":     analysis.Embedding,
		},
	}
	if len(analysis.BlurredImages) > 0 {
		update["$set"].(bson.M)["blurredImages"] = analysis.BlurredImages
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClaimItems marks both sides of a confirmed match as claimed in a
// single transaction so a partial claimed/unclaimed split cannot occur.
func (r *MongoItemRepository) ClaimItems(ctx context.Context, lostItemID, foundItemID string) error {
	lostID, err := primitive.ObjectIDFromHex(lostItemID)
	if err != nil {
		return fmt.Errorf("invalid item ID format: %w", err)
	}
	foundID, err := primitive.ObjectIDFromHex(foundItemID)
	if err != nil {
		return fmt.Errorf("invalid item ID format: %w", err)
	}

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	update := bson.M{"$set": bson.M{"status": models.ItemStatusClaimed}}
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.UpdateOne(sc, bson.M{"_id": lostID}, update); err != nil {
			return nil, err
		}
		if _, err := r.collection.UpdateOne(sc, bson.M{"_id": foundID}, update); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
