package services

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/traceyhq/tracey/backend/internal/models"
)

type processorFixture struct {
	processor *QueueProcessor
	queue     *fakeQueueRepo
	matches   *fakeMatchRepo
	tokens    *fakeTokenRepo
	push      *fakePushClient
	email     *fakeEmailSender
}

func newProcessorFixture(queue *fakeQueueRepo, matches *fakeMatchRepo, users *fakeUserRepo) *processorFixture {
	f := &processorFixture{
		queue:   queue,
		matches: matches,
		tokens:  newFakeTokenRepo(),
		push:    &fakePushClient{},
		email:   &fakeEmailSender{},
	}
	manager := NewTokenManager(f.tokens, f.push)
	f.processor = NewQueueProcessor(queue, matches, users, manager, f.email)
	return f
}

func dueQueueItem(matchID, userID, channel string, retryCount int) *models.NotificationQueueItem {
	return &models.NotificationQueueItem{
		ID:          primitive.NewObjectID(),
		MatchID:     matchID,
		UserID:      userID,
		Type:        channel,
		Status:      models.QueueStatusPending,
		RetryCount:  retryCount,
		CreatedAt:   time.Now().Add(-time.Hour),
		NextRetryAt: time.Now().Add(-time.Minute),
	}
}

func TestProcessQueueCompletesEmailRetry(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "owner", models.ChannelEmail, 1)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "owner", Email: "owner@example.com"})
	f := newProcessorFixture(queue, matches, users)

	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}

	if len(f.email.calls) != 1 || f.email.calls[0].To != "owner@example.com" {
		t.Fatalf("email calls = %+v, want one to owner@example.com", f.email.calls)
	}
	if len(queue.completed) != 1 {
		t.Errorf("completed = %v, want the item marked completed", queue.completed)
	}
	if got := matches.channelSent[match.ID.Hex()]; len(got) != 1 || got[0] != models.ChannelEmail {
		t.Errorf("channelSent = %v, want emailSent patched on the match", got)
	}
}

func TestProcessQueueReschedulesWithBackoff(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "owner", models.ChannelEmail, 0)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "owner", Email: "owner@example.com"})
	f := newProcessorFixture(queue, matches, users)
	f.email.err = errProviderDown

	before := time.Now()
	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}

	stored := queue.items[item.ID.Hex()]
	if stored.Status != models.QueueStatusPending || stored.RetryCount != 1 {
		t.Fatalf("item = status %s retryCount %d, want pending at retry 1", stored.Status, stored.RetryCount)
	}
	// First retry backs off one minute.
	wantAt := before.Add(1 * time.Minute)
	if stored.NextRetryAt.Before(wantAt.Add(-5*time.Second)) || stored.NextRetryAt.After(wantAt.Add(5*time.Second)) {
		t.Errorf("nextRetryAt = %v, want about %v", stored.NextRetryAt, wantAt)
	}
	if stored.LastError == "" {
		t.Error("lastError not recorded")
	}
}

func TestProcessQueueFailsAtRetryBudget(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "owner", models.ChannelEmail, MaxRetries-1)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "owner", Email: "owner@example.com"})
	f := newProcessorFixture(queue, matches, users)
	f.email.err = errProviderDown

	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}

	stored := queue.items[item.ID.Hex()]
	if stored.Status != models.QueueStatusFailed {
		t.Errorf("status = %s, want failed once the retry budget is spent", stored.Status)
	}
	if _, ok := queue.retried[item.ID.Hex()]; ok {
		t.Error("exhausted item must not be rescheduled")
	}
}

func TestProcessQueueFailsOrphanedItems(t *testing.T) {
	users := newFakeUserRepo(&models.User{UID: "owner", Email: "owner@example.com"})
	match := testMatch(0.85)

	tests := []struct {
		name       string
		matches    *fakeMatchRepo
		userID     string
		wantReason string
	}{
		{
			name:       "match deleted",
			matches:    newFakeMatchRepo(),
			userID:     "owner",
			wantReason: "Match not found",
		},
		{
			name:       "user deleted",
			matches:    newFakeMatchRepo(match),
			userID:     "ghost",
			wantReason: "User not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := dueQueueItem(match.ID.Hex(), tt.userID, models.ChannelEmail, 0)
			queue := newFakeQueueRepo(item)
			f := newProcessorFixture(queue, tt.matches, users)

			if err := f.processor.ProcessQueue(context.Background()); err != nil {
				t.Fatalf("ProcessQueue() error = %v", err)
			}

			if got := queue.failed[item.ID.Hex()]; got != tt.wantReason {
				t.Errorf("failure reason = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

func TestProcessQueueSendsPushToFinderSide(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "finder", models.ChannelFCM, 0)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "finder"})
	f := newProcessorFixture(queue, matches, users)
	registerTestToken(t, f.tokens, "finder", "device-1")

	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}

	if len(f.push.calls) != 1 {
		t.Fatalf("got %d push calls, want 1", len(f.push.calls))
	}
	finderWording := MatchPushNotification(match.ID.Hex(), match.SimilarityScore, match.LostItemCategory, RecipientFinder)
	if f.push.calls[0].Title != finderWording.Title {
		t.Errorf("push title = %q, want the finder-side wording %q", f.push.calls[0].Title, finderWording.Title)
	}
	if len(queue.completed) != 1 {
		t.Errorf("completed = %v, want the item marked completed", queue.completed)
	}
}

func TestProcessQueueRetriesWhenNoDeviceAccepts(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "owner", models.ChannelFCM, 0)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "owner"})
	f := newProcessorFixture(queue, matches, users)
	// No tokens registered: the push cannot reach any device.

	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}

	stored := queue.items[item.ID.Hex()]
	if stored.Status != models.QueueStatusPending || stored.RetryCount != 1 {
		t.Errorf("item = status %s retryCount %d, want rescheduled", stored.Status, stored.RetryCount)
	}
}

func TestProcessQueueSingleFlight(t *testing.T) {
	match := testMatch(0.85)
	matches := newFakeMatchRepo(match)
	item := dueQueueItem(match.ID.Hex(), "owner", models.ChannelEmail, 0)
	queue := newFakeQueueRepo(item)
	users := newFakeUserRepo(&models.User{UID: "owner", Email: "owner@example.com"})
	f := newProcessorFixture(queue, matches, users)

	f.processor.processing.Store(true)
	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}
	if len(f.email.calls) != 0 {
		t.Error("overlapping sweep must be a no-op")
	}

	f.processor.processing.Store(false)
	if err := f.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}
	if len(f.email.calls) != 1 {
		t.Errorf("got %d email calls after the guard cleared, want 1", len(f.email.calls))
	}
}

func TestRetryDelaySchedule(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{retryCount: 1, want: 1 * time.Minute},
		{retryCount: 2, want: 5 * time.Minute},
		{retryCount: 3, want: 15 * time.Minute},
		{retryCount: 7, want: 15 * time.Minute},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.retryCount); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestCleanupPurgesOldFinishedItems(t *testing.T) {
	old := dueQueueItem("m1", "u1", models.ChannelEmail, 0)
	old.Status = models.QueueStatusFailed
	old.CreatedAt = time.Now().Add(-10 * 24 * time.Hour)

	recent := dueQueueItem("m2", "u2", models.ChannelEmail, 0)
	recent.Status = models.QueueStatusCompleted
	recent.CreatedAt = time.Now().Add(-time.Hour)

	pending := dueQueueItem("m3", "u3", models.ChannelEmail, 0)
	pending.CreatedAt = time.Now().Add(-10 * 24 * time.Hour)

	queue := newFakeQueueRepo(old, recent, pending)
	f := newProcessorFixture(queue, newFakeMatchRepo(), newFakeUserRepo())

	deleted, err := f.processor.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want only the old finished item", deleted)
	}
	if _, ok := queue.items[pending.ID.Hex()]; !ok {
		t.Error("pending item must survive cleanup regardless of age")
	}
}
