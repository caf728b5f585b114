package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
)

const (
	// MaxRetries is the per-item retry budget. An item whose retry
	// count reaches it is failed permanently.
	MaxRetries = 3
	// QueueBatchSize bounds how many due items one sweep picks up.
	QueueBatchSize = 10
	// QueueRetentionDays is how long finished items stay queryable
	// before cleanup removes them.
	QueueRetentionDays = 7
)

// retryDelays is the backoff schedule indexed by attempt number,
// clamped to the last entry.
var retryDelays = []time.Duration{1 * time.Minute, 5 * time.Minute, 15 * time.Minute}

// retryDelay returns the backoff before the given retry attempt
// (1-based).
func retryDelay(retryCount int) time.Duration {
	idx := retryCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(retryDelays) {
		idx = len(retryDelays) - 1
	}
	return retryDelays[idx]
}

// QueueProcessor drains the notification retry queue. At most one
// sweep runs at a time per process; the guard is owned by the
// processor instance, so concurrent replicas are not protected against
// double-processing the same item.
type QueueProcessor struct {
	queue   repositories.QueueRepository
	matches repositories.MatchRepository
	users   repositories.UserRepository
	tokens  *TokenManager
	email   EmailSender

	processing atomic.Bool
}

// NewQueueProcessor creates a new QueueProcessor
func NewQueueProcessor(
	queue repositories.QueueRepository,
	matches repositories.MatchRepository,
	users repositories.UserRepository,
	tokens *TokenManager,
	email EmailSender,
) *QueueProcessor {
	return &QueueProcessor{
		queue:   queue,
		matches: matches,
		users:   users,
		tokens:  tokens,
		email:   email,
	}
}

// ProcessQueue runs one sweep over due pending items. Invoking it
// while a sweep is already in flight is a no-op.
func (p *QueueProcessor) ProcessQueue(ctx context.Context) error {
	if !p.processing.CompareAndSwap(false, true) {
		return nil
	}
	defer p.processing.Store(false)

	items, err := p.queue.GetDueItems(ctx, time.Now(), MaxRetries, QueueBatchSize)
	if err != nil {
		return fmt.Errorf("failed to load due queue items: %w", err)
	}

	for _, item := range items {
		p.processItem(ctx, item)
	}
	return nil
}

// processItem retries one delivery. Structural dead ends (match or
// user gone) fail the item immediately; delivery failures reschedule
// it with backoff until the budget runs out.
func (p *QueueProcessor) processItem(ctx context.Context, item models.NotificationQueueItem) {
	itemID := item.ID.Hex()

	if err := p.queue.MarkProcessing(ctx, itemID); err != nil {
		log.Printf("[Queue] Failed to mark item %s processing: %v", itemID, err)
		return
	}

	match, err := p.matches.GetMatchByID(ctx, item.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			p.markFailed(ctx, itemID, "Match not found")
		} else {
			p.scheduleRetry(ctx, item, err.Error())
		}
		return
	}

	user, err := p.users.GetUserByID(ctx, item.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			p.markFailed(ctx, itemID, "User not found")
		} else {
			p.scheduleRetry(ctx, item, err.Error())
		}
		return
	}

	var success bool
	var lastErr string

	switch item.Type {
	case models.ChannelEmail:
		if user.Email == "" {
			lastErr = "User has no email address"
		} else if err := p.email.SendMatchEmail(user.Email, match.SimilarityScore, item.MatchID, match.LostItemCategory); err != nil {
			lastErr = err.Error()
		} else {
			success = true
		}
	case models.ChannelFCM:
		recipient := RecipientOwner
		if item.UserID == match.FoundItemUserID {
			recipient = RecipientFinder
		}
		notification := MatchPushNotification(item.MatchID, match.SimilarityScore, match.LostItemCategory, recipient)
		result, err := p.tokens.SendToUser(ctx, item.UserID, notification)
		if err != nil {
			lastErr = err.Error()
		} else if result.Success > 0 {
			success = true
		} else {
			lastErr = "No device accepted the push"
		}
	default:
		p.markFailed(ctx, itemID, fmt.Sprintf("Unknown channel %q", item.Type))
		return
	}

	if !success {
		p.scheduleRetry(ctx, item, lastErr)
		return
	}

	if err := p.queue.MarkCompleted(ctx, itemID); err != nil {
		log.Printf("[Queue] Failed to mark item %s completed: %v", itemID, err)
	}
	if err := p.matches.SetChannelSent(ctx, item.MatchID, item.Type); err != nil {
		log.Printf("[Queue] Failed to patch match %s after retry: %v", item.MatchID, err)
	}
}

// scheduleRetry bumps the retry count and either reschedules with
// backoff or fails the item when the budget is exhausted. An item is
// never put back to pending with retryCount at or past MaxRetries.
func (p *QueueProcessor) scheduleRetry(ctx context.Context, item models.NotificationQueueItem, lastErr string) {
	newRetryCount := item.RetryCount + 1
	itemID := item.ID.Hex()

	if newRetryCount >= MaxRetries {
		if lastErr == "" {
			lastErr = "Max retries exceeded"
		}
		p.markFailed(ctx, itemID, lastErr)
		return
	}

	if lastErr == "" {
		lastErr = "Unknown error"
	}
	nextRetryAt := time.Now().Add(retryDelay(newRetryCount))
	if err := p.queue.ScheduleRetry(ctx, itemID, newRetryCount, nextRetryAt, lastErr); err != nil {
		log.Printf("[Queue] Failed to reschedule item %s: %v", itemID, err)
	}
}

func (p *QueueProcessor) markFailed(ctx context.Context, itemID, reason string) {
	if err := p.queue.MarkFailed(ctx, itemID, reason); err != nil {
		log.Printf("[Queue] Failed to mark item %s failed: %v", itemID, err)
	}
}

// Cleanup purges completed and failed items older than the retention
// window. Housekeeping, not correctness-critical.
func (p *QueueProcessor) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-QueueRetentionDays * 24 * time.Hour)
	return p.queue.DeleteFinishedBefore(ctx, cutoff)
}
