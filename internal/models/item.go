package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item type values. The type is immutable after creation.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item status values.
const (
	ItemStatusOpen      = "open"
	ItemStatusClaimed   = "claimed"
	ItemStatusDismissed = "dismissed"
)

// GeoPoint is the reported location of an item.
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Item represents a lost or found item report stored in MongoDB.
// Embedding stays empty until the external AI analysis completes;
// only open items with a non-empty embedding take part in matching.
type Item struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Type          string             `json:"type" bson:"type"`
	Status        string             `json:"status" bson:"status"`
	Category      string             `json:"category" bson:"category"`
	AIDescription string             `json:"aiDescription" bson:"aiDescription"`
	ColorTags     []string           `json:"colorTags" bson:"colorTags"`
	Embedding     []float64          `json:"embedding,omitempty" bson:"embedding,omitempty"`
	Images        []string           `json:"images" bson:"images"`
	BlurredImages []string           `json:"blurredImages,omitempty" bson:"blurredImages,omitempty"`
	// LegacyImageURL carries the single-image field of early item
	// documents; the repository folds it into Images on decode.
	LegacyImageURL string    `json:"-" bson:"imageUrl,omitempty"`
	Location       *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
	CreatedBy      string    `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

// HasEmbedding reports whether AI analysis has populated the item.
func (i *Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// OppositeType returns the side an item of the given type is matched
// against: found items search lost reports and vice versa.
func OppositeType(itemType string) string {
	if itemType == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}

// CreateItemRequest defines the request body for reporting an item.
type CreateItemRequest struct {
	Type     string    `json:"type" validate:"required,oneof=lost found"`
	Category string    `json:"category,omitempty"`
	Images   []string  `json:"images,omitempty" validate:"omitempty,dive,url"`
	Location *GeoPoint `json:"location,omitempty"`
}

// ItemAnalysisRequest is the payload the AI collaborator posts back
// once it has analyzed the item's image.
type ItemAnalysisRequest struct {
	AIDescription string    `json:"aiDescription" validate:"required"`
	Category      string    `json:"category" validate:"required"`
	ColorTags     []string  `json:"colorTags,omitempty"`
	Embedding     []float64 `json:"embedding" validate:"required,min=1"`
	BlurredImages []string  `json:"blurredImages,omitempty" validate:"omitempty,dive,url"`
}
