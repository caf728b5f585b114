package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/pkg/config"
)

// Recipient identifies which side of a match a notification goes to.
// The two sides get different wording.
type Recipient int

const (
	// RecipientOwner is the lost-item owner.
	RecipientOwner Recipient = iota
	// RecipientFinder is the found-item reporter.
	RecipientFinder
)

// EmailSender sends the formatted match email. *email.EmailService
// satisfies it.
type EmailSender interface {
	SendMatchEmail(to string, score float64, matchID, itemCategory string) error
}

// DispatchResult reports which channels reached the user.
type DispatchResult struct {
	EmailSent bool
	PushSent  bool
}

// NotificationDispatcher delivers match notifications over email and
// push according to each user's preferences. Delivery is best effort:
// channel failures are absorbed into the retry queue and never
// surfaced to the matching pipeline.
type NotificationDispatcher struct {
	users   repositories.UserRepository
	matches repositories.MatchRepository
	queue   repositories.QueueRepository
	tokens  *TokenManager
	email   EmailSender
}

// NewNotificationDispatcher creates a new NotificationDispatcher
func NewNotificationDispatcher(
	users repositories.UserRepository,
	matches repositories.MatchRepository,
	queue repositories.QueueRepository,
	tokens *TokenManager,
	email EmailSender,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		users:   users,
		matches: matches,
		queue:   queue,
		tokens:  tokens,
		email:   email,
	}
}

// MatchPushNotification builds the push message for one side of a
// match. The data payload carries the deep-link hint the client app
// uses to open the match screen.
func MatchPushNotification(matchID string, score float64, itemCategory string, recipient Recipient) PushNotification {
	if itemCategory == "" {
		itemCategory = "item"
	}
	percent := score * 100

	title := "Item Match Found!"
	body := fmt.Sprintf("We found a %.0f%% match for your lost %s", percent, itemCategory)
	if recipient == RecipientFinder {
		title = "Someone is Looking for Your Found Item!"
		body = fmt.Sprintf("Your found %s matches a lost item report (%.0f%% match)", itemCategory, percent)
	}

	return PushNotification{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"matchId":   matchID,
			"type":      "match_found",
			"action":    "view_match",
			"score":     strconv.FormatFloat(score, 'f', -1, 64),
			"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	}
}

// resolvedPreferences applies the configured defaults to whatever the
// user document carries.
type resolvedPreferences struct {
	emailEnabled  bool
	pushEnabled   bool
	minMatchScore float64
}

func resolvePreferences(user *models.User) resolvedPreferences {
	resolved := resolvedPreferences{
		emailEnabled:  config.DefaultEmailEnabled,
		pushEnabled:   config.DefaultPushEnabled,
		minMatchScore: config.DefaultMinMatchScore,
	}
	prefs := user.NotificationPreferences
	if prefs == nil {
		return resolved
	}
	if prefs.EmailEnabled != nil {
		resolved.emailEnabled = *prefs.EmailEnabled
	}
	if prefs.PushEnabled != nil {
		resolved.pushEnabled = *prefs.PushEnabled
	}
	if prefs.MinMatchScore != nil && *prefs.MinMatchScore > 0 {
		resolved.minMatchScore = *prefs.MinMatchScore
	}
	return resolved
}

// NotifyUser attempts delivery to one user over both channels. An
// unknown user is a silent no-op. A score below the user's own
// threshold skips both channels without queueing anything: the match
// record itself is untouched by that choice. Channel failures enqueue
// a retry item and report the channel as not sent.
func (d *NotificationDispatcher) NotifyUser(ctx context.Context, match *models.Match, userID string, recipient Recipient) DispatchResult {
	var result DispatchResult

	user, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("[Dispatch] Failed to load user %s: %v", userID, err)
		}
		return result
	}

	prefs := resolvePreferences(user)
	if match.SimilarityScore < prefs.minMatchScore {
		return result
	}

	matchID := match.ID.Hex()

	// The match email is worded for the lost-item owner; the finder
	// side is push only.
	if recipient == RecipientOwner && prefs.emailEnabled && user.Email != "" {
		if err := d.email.SendMatchEmail(user.Email, match.SimilarityScore, matchID, match.LostItemCategory); err != nil {
			log.Printf("[Dispatch] Email to %s failed: %v", userID, err)
			d.enqueueRetry(ctx, matchID, userID, models.ChannelEmail)
		} else {
			result.EmailSent = true
		}
	}

	if prefs.pushEnabled {
		notification := MatchPushNotification(matchID, match.SimilarityScore, match.LostItemCategory, recipient)
		sendResult, err := d.tokens.SendToUser(ctx, userID, notification)
		if err != nil {
			log.Printf("[Dispatch] Push to %s failed: %v", userID, err)
			d.enqueueRetry(ctx, matchID, userID, models.ChannelFCM)
		} else {
			result.PushSent = sendResult.Success > 0
			// Queued even on partial success: the retry re-sends to
			// all current valid tokens, covering the failed subset.
			if sendResult.Failed > 0 || sendResult.Success == 0 {
				d.enqueueRetry(ctx, matchID, userID, models.ChannelFCM)
			}
		}
	}

	return result
}

// NotifyMatch notifies both sides of a freshly created match and
// records the final attempt state on the match document. The update
// happens even when every channel failed so the record reflects the
// latest attempt.
func (d *NotificationDispatcher) NotifyMatch(ctx context.Context, match *models.Match) DispatchResult {
	ownerResult := d.NotifyUser(ctx, match, match.LostItemUserID, RecipientOwner)
	finderResult := d.NotifyUser(ctx, match, match.FoundItemUserID, RecipientFinder)

	combined := DispatchResult{
		EmailSent: ownerResult.EmailSent || finderResult.EmailSent,
		PushSent:  ownerResult.PushSent || finderResult.PushSent,
	}

	if err := d.matches.SetNotificationOutcome(ctx, match.ID.Hex(), combined.PushSent, combined.EmailSent); err != nil {
		log.Printf("[Dispatch] Failed to record notification outcome for match %s: %v", match.ID.Hex(), err)
	}
	return combined
}

func (d *NotificationDispatcher) enqueueRetry(ctx context.Context, matchID, userID, channel string) {
	if err := d.queue.Enqueue(ctx, matchID, userID, channel); err != nil {
		log.Printf("[Dispatch] Failed to enqueue %s retry for match %s: %v", channel, matchID, err)
	}
}
