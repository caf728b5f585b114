package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceInfo is optional metadata captured on token registration.
type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Platform  string `json:"platform,omitempty" bson:"platform,omitempty"`
}

// PushToken is a per-device FCM registration token. Tokens expire a
// fixed period after their last registration; the push provider's
// invalid-token responses prune dead ones.
type PushToken struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     string             `json:"userId" bson:"userId"`
	Token      string             `json:"token" bson:"token"`
	DeviceInfo *DeviceInfo        `json:"deviceInfo,omitempty" bson:"deviceInfo,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	LastUsedAt time.Time          `json:"lastUsedAt" bson:"lastUsedAt"`
	ExpiresAt  time.Time          `json:"expiresAt" bson:"expiresAt"`
}

// RegisterTokenRequest defines the body of the token registration call.
type RegisterTokenRequest struct {
	Token      string      `json:"token" validate:"required"`
	DeviceInfo *DeviceInfo `json:"deviceInfo,omitempty"`
}
