package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/pkg/firebase"
)

// In-memory fakes for the repository and collaborator interfaces.

type fakeItemRepo struct {
	items      map[string]*models.Item
	claimCalls [][2]string
}

func newFakeItemRepo(items ...*models.Item) *fakeItemRepo {
	repo := &fakeItemRepo{items: make(map[string]*models.Item)}
	for _, item := range items {
		repo.add(item)
	}
	return repo
}

func (r *fakeItemRepo) add(item *models.Item) {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	r.items[item.ID.Hex()] = item
}

func (r *fakeItemRepo) CreateItem(ctx context.Context, item *models.Item) error {
	item.CreatedAt = time.Now()
	r.add(item)
	return nil
}

func (r *fakeItemRepo) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, repositories.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (r *fakeItemRepo) GetOpenItemsByType(ctx context.Context, itemType string) ([]models.Item, error) {
	var result []models.Item
	for _, item := range r.items {
		if item.Type == itemType && item.Status == models.ItemStatusOpen {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *fakeItemRepo) GetOpenItems(ctx context.Context) ([]models.Item, error) {
	var result []models.Item
	for _, item := range r.items {
		if item.Status == models.ItemStatusOpen {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *fakeItemRepo) SetAnalysis(ctx context.Context, id string, analysis *models.ItemAnalysisRequest) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, repositories.ErrNotFound)
	}
	item.AIDescription = analysis.AIDescription
	item.Category = analysis.Category
	item.ColorTags = analysis.ColorTags
	item.Embedding = analysis.Embedding
	return nil
}

func (r *fakeItemRepo) ClaimItems(ctx context.Context, lostItemID, foundItemID string) error {
	r.claimCalls = append(r.claimCalls, [2]string{lostItemID, foundItemID})
	for _, id := range []string{lostItemID, foundItemID} {
		if item, ok := r.items[id]; ok {
			item.Status = models.ItemStatusClaimed
		}
	}
	return nil
}

type fakeMatchRepo struct {
	matches      map[string]*models.Match
	outcomeCalls []struct {
		MatchID          string
		NotificationSent bool
		EmailSent        bool
	}
	channelSent map[string][]string
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{
		matches:     make(map[string]*models.Match),
		channelSent: make(map[string][]string),
	}
	for _, match := range matches {
		repo.add(match)
	}
	return repo
}

func (r *fakeMatchRepo) add(match *models.Match) {
	if match.ID.IsZero() {
		match.ID = primitive.NewObjectID()
	}
	r.matches[match.ID.Hex()] = match
}

func (r *fakeMatchRepo) CreateMatch(ctx context.Context, match *models.Match) error {
	match.ID = primitive.NewObjectID()
	r.matches[match.ID.Hex()] = match
	return nil
}

func (r *fakeMatchRepo) CreateMatchIfAbsent(ctx context.Context, match *models.Match) (bool, error) {
	for _, existing := range r.matches {
		samePair := existing.FoundItemID == match.FoundItemID &&
			(existing.LostItemID == nil) == (match.LostItemID == nil) &&
			(existing.LostItemID == nil || *existing.LostItemID == *match.LostItemID)
		if samePair {
			match.ID = existing.ID
			return false, nil
		}
	}
	r.add(match)
	return true, nil
}

func (r *fakeMatchRepo) GetMatchByID(ctx context.Context, id string) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, repositories.ErrNotFound)
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) FindClaim(ctx context.Context, foundItemID, claimantUserID string) (*models.Match, error) {
	for _, match := range r.matches {
		if match.FoundItemID == foundItemID && match.LostItemUserID == claimantUserID {
			copied := *match
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("claim for item %s: %w", foundItemID, repositories.ErrNotFound)
}

func (r *fakeMatchRepo) GetMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var result []models.Match
	for _, match := range r.matches {
		if match.LostItemUserID == userID || match.FoundItemUserID == userID {
			result = append(result, *match)
		}
	}
	return result, nil
}

func (r *fakeMatchRepo) SetNotificationOutcome(ctx context.Context, id string, notificationSent, emailSent bool) error {
	r.outcomeCalls = append(r.outcomeCalls, struct {
		MatchID          string
		NotificationSent bool
		EmailSent        bool
	}{id, notificationSent, emailSent})
	if match, ok := r.matches[id]; ok {
		match.NotificationSent = notificationSent
		match.EmailSent = emailSent
		now := time.Now()
		match.LastNotificationAttempt = &now
	}
	return nil
}

func (r *fakeMatchRepo) SetChannelSent(ctx context.Context, id, channel string) error {
	r.channelSent[id] = append(r.channelSent[id], channel)
	if match, ok := r.matches[id]; ok {
		if channel == models.ChannelEmail {
			match.EmailSent = true
		} else {
			match.NotificationSent = true
		}
	}
	return nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, id, status string) error {
	match, ok := r.matches[id]
	if !ok {
		return fmt.Errorf("match %s: %w", id, repositories.ErrNotFound)
	}
	match.Status = status
	return nil
}

type fakeQueueRepo struct {
	items     map[string]*models.NotificationQueueItem
	enqueued  []models.NotificationQueueItem
	completed []string
	failed    map[string]string
	retried   map[string]time.Time
}

func newFakeQueueRepo(items ...*models.NotificationQueueItem) *fakeQueueRepo {
	repo := &fakeQueueRepo{
		items:   make(map[string]*models.NotificationQueueItem),
		failed:  make(map[string]string),
		retried: make(map[string]time.Time),
	}
	for _, item := range items {
		if item.ID.IsZero() {
			item.ID = primitive.NewObjectID()
		}
		repo.items[item.ID.Hex()] = item
	}
	return repo
}

func (r *fakeQueueRepo) Enqueue(ctx context.Context, matchID, userID, channel string) error {
	item := models.NotificationQueueItem{
		ID:      primitive.NewObjectID(),
		MatchID: matchID,
		UserID:  userID,
		Type:    channel,
		Status:  models.QueueStatusPending,
	}
	r.enqueued = append(r.enqueued, item)
	r.items[item.ID.Hex()] = &item
	return nil
}

func (r *fakeQueueRepo) GetDueItems(ctx context.Context, now time.Time, maxRetries int, limit int64) ([]models.NotificationQueueItem, error) {
	var due []models.NotificationQueueItem
	for _, item := range r.items {
		if item.Status == models.QueueStatusPending && !item.NextRetryAt.After(now) && item.RetryCount < maxRetries {
			due = append(due, *item)
		}
		if int64(len(due)) == limit {
			break
		}
	}
	return due, nil
}

func (r *fakeQueueRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(id, models.QueueStatusProcessing)
}

func (r *fakeQueueRepo) MarkCompleted(ctx context.Context, id string) error {
	r.completed = append(r.completed, id)
	return r.setStatus(id, models.QueueStatusCompleted)
}

func (r *fakeQueueRepo) MarkFailed(ctx context.Context, id, reason string) error {
	r.failed[id] = reason
	return r.setStatus(id, models.QueueStatusFailed)
}

func (r *fakeQueueRepo) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("queue item %s: %w", id, repositories.ErrNotFound)
	}
	item.Status = models.QueueStatusPending
	item.RetryCount = retryCount
	item.NextRetryAt = nextRetryAt
	item.LastError = lastError
	r.retried[id] = nextRetryAt
	return nil
}

func (r *fakeQueueRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, item := range r.items {
		finished := item.Status == models.QueueStatusCompleted || item.Status == models.QueueStatusFailed
		if finished && !item.CreatedAt.After(cutoff) {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeQueueRepo) setStatus(id, status string) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("queue item %s: %w", id, repositories.ErrNotFound)
	}
	item.Status = status
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, user := range users {
		repo.users[user.UID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	user, ok := r.users[uid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", uid, repositories.ErrNotFound)
	}
	return user, nil
}

type fakeTokenRepo struct {
	tokens  map[string][]models.PushToken
	deleted map[string][]string
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		tokens:  make(map[string][]models.PushToken),
		deleted: make(map[string][]string),
	}
}

func (r *fakeTokenRepo) UpsertToken(ctx context.Context, userID, token string, deviceInfo *models.DeviceInfo, expiresAt time.Time) error {
	now := time.Now()
	for i, existing := range r.tokens[userID] {
		if existing.Token == token {
			r.tokens[userID][i].LastUsedAt = now
			r.tokens[userID][i].ExpiresAt = expiresAt
			if deviceInfo != nil {
				r.tokens[userID][i].DeviceInfo = deviceInfo
			}
			return nil
		}
	}
	r.tokens[userID] = append(r.tokens[userID], models.PushToken{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  expiresAt,
	})
	return nil
}

func (r *fakeTokenRepo) GetValidTokens(ctx context.Context, userID string, now time.Time) ([]models.PushToken, error) {
	var valid []models.PushToken
	for _, token := range r.tokens[userID] {
		if token.ExpiresAt.After(now) {
			valid = append(valid, token)
		}
	}
	return valid, nil
}

func (r *fakeTokenRepo) DeleteTokens(ctx context.Context, userID string, tokens []string) error {
	r.deleted[userID] = append(r.deleted[userID], tokens...)
	kept := r.tokens[userID][:0]
	for _, existing := range r.tokens[userID] {
		dead := false
		for _, t := range tokens {
			if existing.Token == t {
				dead = true
				break
			}
		}
		if !dead {
			kept = append(kept, existing)
		}
	}
	r.tokens[userID] = kept
	return nil
}

func (r *fakeTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for userID, tokens := range r.tokens {
		kept := tokens[:0]
		for _, token := range tokens {
			if token.ExpiresAt.After(cutoff) {
				kept = append(kept, token)
			} else {
				deleted++
			}
		}
		r.tokens[userID] = kept
	}
	return deleted, nil
}

type fakePushClient struct {
	result *firebase.PushResult
	err    error
	calls  []fakePushCall
}

type fakePushCall struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

func (c *fakePushClient) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*firebase.PushResult, error) {
	c.calls = append(c.calls, fakePushCall{Tokens: tokens, Title: title, Body: body, Data: data})
	if c.err != nil {
		return nil, c.err
	}
	if c.result != nil {
		return c.result, nil
	}
	return &firebase.PushResult{Success: len(tokens)}, nil
}

type fakeEmailSender struct {
	err   error
	calls []fakeEmailCall
}

type fakeEmailCall struct {
	To       string
	Score    float64
	MatchID  string
	Category string
}

func (s *fakeEmailSender) SendMatchEmail(to string, score float64, matchID, itemCategory string) error {
	s.calls = append(s.calls, fakeEmailCall{To: to, Score: score, MatchID: matchID, Category: itemCategory})
	return s.err
}

var errProviderDown = errors.New("provider unavailable")

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
