package services

import (
	"context"
	"errors"
	"time"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
)

// Structural claim errors, surfaced to the caller as 4xx.
var (
	ErrSelfClaim     = errors.New("you cannot claim your own item")
	ErrMatchNotFound = errors.New("match not found")
	ErrNotClaimant   = errors.New("only the lost item owner can claim this match")
	ErrMatchSettled  = errors.New("match is already claimed or dismissed")
)

// ClaimResult reports the outcome of a claim-from-search call.
type ClaimResult struct {
	MatchID        string
	AlreadyClaimed bool
}

// ClaimService handles the two manual match-creation flows: claiming a
// found item straight from search, and confirming an existing pending
// match.
type ClaimService struct {
	items   repositories.ItemRepository
	matches repositories.MatchRepository
}

// NewClaimService creates a new ClaimService
func NewClaimService(items repositories.ItemRepository, matches repositories.MatchRepository) *ClaimService {
	return &ClaimService{items: items, matches: matches}
}

// ClaimItem claims a found item directly from a search result, with no
// prior lost report. Idempotent: a repeat claim by the same user for
// the same item returns the existing match instead of creating another.
func (s *ClaimService) ClaimItem(ctx context.Context, itemID, userID string) (*ClaimResult, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if item.CreatedBy == userID {
		return nil, ErrSelfClaim
	}

	existing, err := s.matches.FindClaim(ctx, itemID, userID)
	if err == nil {
		return &ClaimResult{MatchID: existing.ID.Hex(), AlreadyClaimed: true}, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	category := item.Category
	if category == "" {
		category = "Unknown"
	}
	now := time.Now()
	match := &models.Match{
		LostItemID:           nil,
		FoundItemID:          itemID,
		LostItemUserID:       userID,
		FoundItemUserID:      item.CreatedBy,
		LostItemCategory:     category,
		LostItemDescription:  "Claimed from search",
		FoundItemDescription: item.AIDescription,
		SimilarityScore:      1.0,
		Status:               models.MatchStatusClaimed,
		ClaimedFromSearch:    true,
		CreatedAt:            now,
		ViewedAt:             &now,
	}
	if err := s.matches.CreateMatch(ctx, match); err != nil {
		return nil, err
	}

	return &ClaimResult{MatchID: match.ID.Hex()}, nil
}

// ClaimMatch confirms a pending match. Only the lost-item owner may
// confirm; on success the match and both linked items transition to
// claimed, the items atomically. Claimed and dismissed are terminal:
// re-claiming a settled match is rejected.
func (s *ClaimService) ClaimMatch(ctx context.Context, matchID, userID string) error {
	match, err := s.matches.GetMatchByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	if match.LostItemUserID != userID {
		return ErrNotClaimant
	}
	if match.Status != models.MatchStatusPending {
		return ErrMatchSettled
	}

	if err := s.matches.UpdateStatus(ctx, matchID, models.MatchStatusClaimed); err != nil {
		return err
	}

	if match.LostItemID != nil {
		return s.items.ClaimItems(ctx, *match.LostItemID, match.FoundItemID)
	}
	return nil
}
