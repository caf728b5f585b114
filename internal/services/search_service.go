package services

import (
	"context"
	"sort"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
)

const (
	// SearchThreshold is looser than the match threshold: search is
	// exploratory, matching contacts people.
	SearchThreshold = 0.50
	// SearchResultLimit caps how many hits a search returns.
	SearchResultLimit = 5
)

// SearchResult is one search hit. The item's embedding is stripped
// before it leaves the service.
type SearchResult struct {
	Item  models.Item `json:"item"`
	Score float64     `json:"score"`
}

// SearchService scores a caller-supplied query embedding against all
// open items. Embedding generation itself belongs to the external AI
// collaborator.
type SearchService struct {
	items repositories.ItemRepository
}

// NewSearchService creates a new SearchService
func NewSearchService(items repositories.ItemRepository) *SearchService {
	return &SearchService{items: items}
}

// SearchByEmbedding returns the best-scoring open items for the query
// embedding, highest first
func (s *SearchService) SearchByEmbedding(ctx context.Context, embedding []float64) ([]SearchResult, error) {
	items, err := s.items.GetOpenItems(ctx)
	if err != nil {
		return nil, err
	}

	results := []SearchResult{}
	for _, item := range items {
		if !item.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(embedding, item.Embedding)
		if score >= SearchThreshold {
			item.Embedding = nil
			results = append(results, SearchResult{Item: item, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > SearchResultLimit {
		results = results[:SearchResultLimit]
	}
	return results, nil
}
