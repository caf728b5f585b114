package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
)

// MatchThreshold is the minimum cosine similarity (inclusive) for a
// candidate pairing to become a match. Kept high: contacting the wrong
// user about a reunion has real-world cost.
const MatchThreshold = 0.70

// Structural matching errors, surfaced to the caller as 4xx.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidItemType = errors.New("invalid item type for matching")
)

// MatchResult is the per-match entry of a matching run's response.
type MatchResult struct {
	MatchID     string  `json:"matchId"`
	LostUserID  string  `json:"lostUserId"`
	FoundUserID string  `json:"foundUserId"`
	Score       float64 `json:"score"`
	Status      string  `json:"status"`
}

// MatchRunResult summarizes one matching run. A source item whose
// embedding is still pending yields a zero-match success, not an
// error: the caller should retry after AI analysis completes.
type MatchRunResult struct {
	MatchCount        int           `json:"matchCount"`
	NotificationsSent int           `json:"notificationsSent"`
	Results           []MatchResult `json:"results"`
	Message           string        `json:"message,omitempty"`
}

// MatchEngine pairs semantically similar lost and found items and
// drives the notification workflow for each created match.
type MatchEngine struct {
	items      repositories.ItemRepository
	matches    repositories.MatchRepository
	dispatcher *NotificationDispatcher
}

// NewMatchEngine creates a new MatchEngine
func NewMatchEngine(items repositories.ItemRepository, matches repositories.MatchRepository, dispatcher *NotificationDispatcher) *MatchEngine {
	return &MatchEngine{items: items, matches: matches, dispatcher: dispatcher}
}

// candidate is one opposite-side item that cleared the threshold.
type candidate struct {
	item  models.Item
	score float64
}

// FindAndRecordMatches loads the source item, scores every open
// opposite-type item against it, and creates a match for each
// candidate at or above MatchThreshold. Match creation strictly
// precedes notification dispatch: the match is the durable artifact,
// delivery is best effort. One candidate's failure never aborts the
// rest of the run.
//
// sourceType declares which side the caller is matching from; an item
// of the other type is rejected with ErrInvalidItemType.
func (e *MatchEngine) FindAndRecordMatches(ctx context.Context, sourceItemID, sourceType string) (*MatchRunResult, error) {
	source, err := e.items.GetItemByID(ctx, sourceItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if source.Type != sourceType {
		return nil, fmt.Errorf("%w: expected %s item", ErrInvalidItemType, sourceType)
	}

	if !source.HasEmbedding() {
		return &MatchRunResult{
			Results: []MatchResult{},
			Message: "Item created, matching will occur after AI analysis completes",
		}, nil
	}

	candidates, err := e.scoreCandidates(ctx, source)
	if err != nil {
		return nil, err
	}

	result := &MatchRunResult{Results: []MatchResult{}}
	for _, cand := range candidates {
		matchResult, err := e.recordMatch(ctx, source, cand)
		if err != nil {
			log.Printf("[Match] Failed to process candidate %s for item %s: %v", cand.item.ID.Hex(), sourceItemID, err)
			continue
		}
		result.MatchCount++
		if matchResult != nil {
			result.NotificationsSent++
			result.Results = append(result.Results, *matchResult)
		}
	}
	return result, nil
}

// scoreCandidates scans open items of the opposite type and keeps
// those at or above the threshold. Candidates without an embedding are
// skipped, not errors.
func (e *MatchEngine) scoreCandidates(ctx context.Context, source *models.Item) ([]candidate, error) {
	items, err := e.items.GetOpenItemsByType(ctx, models.OppositeType(source.Type))
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, item := range items {
		if !item.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(source.Embedding, item.Embedding)
		if score >= MatchThreshold {
			candidates = append(candidates, candidate{item: item, score: score})
		}
	}
	return candidates, nil
}

// recordMatch creates the match document for one candidate pair and
// dispatches notifications to both users. A pair that already exists
// (matching was triggered from the other side first) is counted but
// not re-notified.
func (e *MatchEngine) recordMatch(ctx context.Context, source *models.Item, cand candidate) (*MatchResult, error) {
	lost, found := source, &cand.item
	if source.Type == models.ItemTypeFound {
		lost, found = &cand.item, source
	}

	lostItemID := lost.ID.Hex()
	match := &models.Match{
		LostItemID:           &lostItemID,
		FoundItemID:          found.ID.Hex(),
		LostItemUserID:       lost.CreatedBy,
		FoundItemUserID:      found.CreatedBy,
		LostItemCategory:     lost.Category,
		LostItemDescription:  lost.AIDescription,
		FoundItemDescription: found.AIDescription,
		SimilarityScore:      cand.score,
		Status:               models.MatchStatusPending,
		CreatedAt:            time.Now(),
	}

	created, err := e.matches.CreateMatchIfAbsent(ctx, match)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	e.dispatcher.NotifyMatch(ctx, match)

	return &MatchResult{
		MatchID:     match.ID.Hex(),
		LostUserID:  match.LostItemUserID,
		FoundUserID: match.FoundItemUserID,
		Score:       match.SimilarityScore,
		Status:      "match_created",
	}, nil
}
