package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification queue item statuses. Completed and failed are terminal.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// Notification channel types carried by queue items.
const (
	ChannelEmail = "email"
	ChannelFCM   = "fcm"
)

// NotificationQueueItem is a failed delivery attempt awaiting retry.
type NotificationQueueItem struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MatchID     string             `json:"matchId" bson:"matchId"`
	UserID      string             `json:"userId" bson:"userId"`
	Type        string             `json:"type" bson:"type"`
	Status      string             `json:"status" bson:"status"`
	RetryCount  int                `json:"retryCount" bson:"retryCount"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	NextRetryAt time.Time          `json:"nextRetryAt" bson:"nextRetryAt"`
	LastError   string             `json:"lastError,omitempty" bson:"lastError,omitempty"`
}
