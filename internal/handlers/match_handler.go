package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/internal/services"
)

// MatchHandler handles claim flows and match listing
type MatchHandler struct {
	matchRepository repositories.MatchRepository
	claimService    *services.ClaimService
}

// NewMatchHandler creates a new MatchHandler
func NewMatchHandler(matchRepo repositories.MatchRepository, claims *services.ClaimService) *MatchHandler {
	return &MatchHandler{
		matchRepository: matchRepo,
		claimService:    claims,
	}
}

// RegisterMatchRoutes registers match routes
func (h *MatchHandler) RegisterMatchRoutes(g *echo.Group) {
	g.POST("/claim-item", h.ClaimItem)
	g.POST("/claim-match", h.ClaimMatch)
	g.GET("/matches", h.ListMatches)
}

// ClaimItem claims a found item directly from a search result
func (h *MatchHandler) ClaimItem(c echo.Context) error {
	var req models.ClaimItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.claimService.ClaimItem(c.Request().Context(), req.ItemID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Item not found")
		case errors.Is(err, services.ErrSelfClaim):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	message := "Item claimed successfully"
	if result.AlreadyClaimed {
		message = "You have already claimed this item"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"matchId": result.MatchID,
		"message": message,
	})
}

// ClaimMatch confirms an existing pending match
func (h *MatchHandler) ClaimMatch(c echo.Context) error {
	var req models.ClaimMatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.claimService.ClaimMatch(c.Request().Context(), req.MatchID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMatchNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Match not found")
		case errors.Is(err, services.ErrNotClaimant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, services.ErrMatchSettled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Match claimed successfully",
	})
}

// ListMatches returns all matches where the user is on either side
func (h *MatchHandler) ListMatches(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		userID = getUserIDFromContext(c)
	}
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId required")
	}

	matches, err := h.matchRepository.GetMatchesForUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"matches": matches},
	})
}
