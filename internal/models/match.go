package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match status values. Transitions are one-way: pending may become
// claimed or dismissed, both of which are terminal.
const (
	MatchStatusPending   = "pending"
	MatchStatusClaimed   = "claimed"
	MatchStatusDismissed = "dismissed"
)

// Match represents a proposed pairing between a lost and a found item.
// LostItemID is nil when the match was created by claiming a found
// item directly from search, with no prior lost report.
type Match struct {
	ID                      primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	LostItemID              *string            `json:"lostItemId" bson:"lostItemId"`
	FoundItemID             string             `json:"foundItemId" bson:"foundItemId"`
	LostItemUserID          string             `json:"lostItemUserId" bson:"lostItemUserId"`
	FoundItemUserID         string             `json:"foundItemUserId" bson:"foundItemUserId"`
	LostItemCategory        string             `json:"lostItemCategory" bson:"lostItemCategory"`
	LostItemDescription     string             `json:"lostItemDescription" bson:"lostItemDescription"`
	FoundItemDescription    string             `json:"foundItemDescription" bson:"foundItemDescription"`
	SimilarityScore         float64            `json:"similarityScore" bson:"similarityScore"`
	Status                  string             `json:"status" bson:"status"`
	NotificationSent        bool               `json:"notificationSent" bson:"notificationSent"`
	EmailSent               bool               `json:"emailSent" bson:"emailSent"`
	ClaimedFromSearch       bool               `json:"claimedFromSearch,omitempty" bson:"claimedFromSearch,omitempty"`
	CreatedAt               time.Time          `json:"createdAt" bson:"createdAt"`
	ViewedAt                *time.Time         `json:"viewedAt" bson:"viewedAt"`
	LastNotificationAttempt *time.Time         `json:"lastNotificationAttempt,omitempty" bson:"lastNotificationAttempt,omitempty"`
}

// AutoMatchRequest triggers matching for a newly analyzed item.
type AutoMatchRequest struct {
	ItemID string `json:"itemId" validate:"required"`
}

// ClaimItemRequest claims a found item directly from a search result.
type ClaimItemRequest struct {
	ItemID string `json:"itemId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// ClaimMatchRequest confirms an existing pending match.
type ClaimMatchRequest struct {
	MatchID string `json:"matchId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}
