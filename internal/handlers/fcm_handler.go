package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceyhq/tracey/backend/internal/models"
	"github.com/traceyhq/tracey/backend/internal/services"
)

// FCMHandler handles push-token registration
type FCMHandler struct {
	tokenManager *services.TokenManager
}

// NewFCMHandler creates a new FCMHandler
func NewFCMHandler(tokens *services.TokenManager) *FCMHandler {
	return &FCMHandler{tokenManager: tokens}
}

// RegisterFCMRoutes registers FCM routes
func (h *FCMHandler) RegisterFCMRoutes(g *echo.Group) {
	g.POST("/fcm/register", h.RegisterToken)
}

// RegisterToken registers or refreshes a device token for the
// authenticated user
func (h *FCMHandler) RegisterToken(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.RegisterTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.tokenManager.RegisterToken(c.Request().Context(), userID, req.Token, req.DeviceInfo); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
