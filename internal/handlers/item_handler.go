package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/internal/services"
)

// ItemHandler handles item reports, AI analysis ingestion, matching
// triggers and embedding search
type ItemHandler struct {
	itemRepository repositories.ItemRepository
	matchEngine    *services.MatchEngine
	searchService  *services.SearchService
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemRepo repositories.ItemRepository, engine *services.MatchEngine, search *services.SearchService) *ItemHandler {
	return &ItemHandler{
		itemRepository: itemRepo,
		matchEngine:    engine,
		searchService:  search,
	}
}

// RegisterItemRoutes registers the item routes invoked by external
// collaborators and internal triggers
func (h *ItemHandler) RegisterItemRoutes(g *echo.Group) {
	g.POST("/items/:id/analysis", h.SubmitAnalysis)
	g.POST("/auto-match", h.AutoMatch)
	g.POST("/auto-match-lost", h.AutoMatchLost)
	g.POST("/search-items", h.SearchItems)
}

// RegisterReportRoutes registers the routes that require an
// authenticated reporter
func (h *ItemHandler) RegisterReportRoutes(g *echo.Group) {
	g.POST("/items", h.CreateItem)
}

// CreateItem records a new lost or found report. The embedding stays
// empty until the AI collaborator posts its analysis back.
func (h *ItemHandler) CreateItem(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	category := req.Category
	if category == "" {
		category = "unknown"
	}
	item := &models.Item{
		Type:      req.Type,
		Status:    models.ItemStatusOpen,
		Category:  category,
		ColorTags: []string{},
		Images:    req.Images,
		Location:  req.Location,
		CreatedBy: userID,
	}
	if err := h.itemRepository.CreateItem(c.Request().Context(), item); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": item})
}

// SubmitAnalysis ingests the AI collaborator's analysis result for an
// item: description, category, color tags and the embedding vector.
func (h *ItemHandler) SubmitAnalysis(c echo.Context) error {
	itemID := c.Param("id")

	var req models.ItemAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.itemRepository.SetAnalysis(c.Request().Context(), itemID, &req)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// AutoMatch matches a found item against open lost reports
func (h *ItemHandler) AutoMatch(c echo.Context) error {
	return h.runMatch(c, models.ItemTypeFound)
}

// AutoMatchLost matches a lost item against open found reports
func (h *ItemHandler) AutoMatchLost(c echo.Context) error {
	return h.runMatch(c, models.ItemTypeLost)
}

func (h *ItemHandler) runMatch(c echo.Context, sourceType string) error {
	var req models.AutoMatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.matchEngine.FindAndRecordMatches(c.Request().Context(), req.ItemID, sourceType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Item not found")
		case errors.Is(err, services.ErrInvalidItemType):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	response := echo.Map{
		"success":           true,
		"matchCount":        result.MatchCount,
		"notificationsSent": result.NotificationsSent,
		"results":           result.Results,
	}
	if result.Message != "" {
		response["message"] = result.Message
	}
	return c.JSON(http.StatusOK, response)
}

// SearchItemsRequest carries a caller-supplied query embedding.
type SearchItemsRequest struct {
	Embedding []float64 `json:"embedding" validate:"required,min=1"`
}

// SearchItems scores the query embedding against all open items
func (h *ItemHandler) SearchItems(c echo.Context) error {
	var req SearchItemsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	results, err := h.searchService.SearchByEmbedding(c.Request().Context(), req.Embedding)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "results": results})
}
