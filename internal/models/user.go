package models

import "time"

// NotificationPreferences controls which channels a user receives
// match notifications on. Pointer fields distinguish "never set" from
// an explicit false; unset fields fall back to the configured defaults.
type NotificationPreferences struct {
	EmailEnabled  *bool    `json:"emailEnabled,omitempty" bson:"emailEnabled,omitempty"`
	PushEnabled   *bool    `json:"pushEnabled,omitempty" bson:"pushEnabled,omitempty"`
	MinMatchScore *float64 `json:"minMatchScore,omitempty" bson:"minMatchScore,omitempty"`
}

// User is the slice of the user document the notification pipeline
// consumes. Accounts are created and maintained by the external auth
// flow; this service reads them only.
type User struct {
	UID                     string                   `json:"uid" bson:"_id"`
	Email                   string                   `json:"email" bson:"email"`
	Name                    string                   `json:"name,omitempty" bson:"name,omitempty"`
	PhotoURL                string                   `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	NotificationPreferences *NotificationPreferences `json:"notificationPreferences,omitempty" bson:"notificationPreferences,omitempty"`
	CreatedAt               time.Time                `json:"createdAt" bson:"createdAt"`
}
