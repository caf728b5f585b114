package services

import (
	"context"
	"log"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/pkg/firebase"
)

const (
	// TokenExpiryDays is how long a registration stays valid without
	// being refreshed.
	TokenExpiryDays = 60
	// TokenCleanupDays is the grace period before expired tokens are
	// physically removed.
	TokenCleanupDays = 90
)

// PushNotification is one push message fanned out to all of a user's
// devices. Data carries the deep-link payload verbatim.
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushSendResult aggregates per-token outcomes of one fan-out.
type PushSendResult struct {
	Success int
	Failed  int
}

// PushClient is the slice of the push provider the token manager
// needs. *firebase.FCMClient satisfies it.
type PushClient interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*firebase.PushResult, error)
}

// TokenManager maintains the per-user multi-device push-token registry
// and fans push notifications out across it.
type TokenManager struct {
	tokens repositories.TokenRepository
	push   PushClient
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(tokens repositories.TokenRepository, push PushClient) *TokenManager {
	return &TokenManager{tokens: tokens, push: push}
}

// RegisterToken registers or refreshes a device token. Re-registering
// the same token value bumps its timestamps in place instead of
// duplicating it.
func (m *TokenManager) RegisterToken(ctx context.Context, userID, token string, deviceInfo *models.DeviceInfo) error {
	expiresAt := time.Now().Add(TokenExpiryDays * 24 * time.Hour)
	return m.tokens.UpsertToken(ctx, userID, token, deviceInfo, expiresAt)
}

// GetValidTokens returns the user's non-expired token values
func (m *TokenManager) GetValidTokens(ctx context.Context, userID string) ([]string, error) {
	records, err := m.tokens.GetValidTokens(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(records))
	for _, rec := range records {
		tokens = append(tokens, rec.Token)
	}
	return tokens, nil
}

// SendToUser fans the notification out to all of the user's valid
// tokens in one batch. A user with no registered devices is a zero
// result, not an error. Tokens the provider reports dead are pruned.
func (m *TokenManager) SendToUser(ctx context.Context, userID string, notification PushNotification) (*PushSendResult, error) {
	tokens, err := m.GetValidTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &PushSendResult{}, nil
	}

	result, err := m.push.SendMulticast(ctx, tokens, notification.Title, notification.Body, notification.Data)
	if err != nil {
		return &PushSendResult{Failed: len(tokens)}, err
	}

	if len(result.InvalidTokens) > 0 {
		if err := m.tokens.DeleteTokens(ctx, userID, result.InvalidTokens); err != nil {
			log.Printf("[FCM] Failed to remove %d invalid tokens for user %s: %v", len(result.InvalidTokens), userID, err)
		}
	}

	return &PushSendResult{Success: result.Success, Failed: result.Failed}, nil
}

// CleanupExpired removes tokens that expired more than the cleanup
// grace period ago
func (m *TokenManager) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-TokenCleanupDays * 24 * time.Hour)
	return m.tokens.DeleteExpiredBefore(ctx, cutoff)
}
