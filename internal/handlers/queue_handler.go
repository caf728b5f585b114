package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceyhq/tracey/backend/internal/services"
)

// QueueHandler exposes the retry-queue sweep and cleanup to external
// scheduling (a cron hitting the endpoint periodically)
type QueueHandler struct {
	processor  *services.QueueProcessor
	cronSecret string
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(processor *services.QueueProcessor, cronSecret string) *QueueHandler {
	return &QueueHandler{processor: processor, cronSecret: cronSecret}
}

// RegisterQueueRoutes registers queue routes
func (h *QueueHandler) RegisterQueueRoutes(g *echo.Group) {
	g.POST("/process-queue", h.ProcessQueue)
	// GET alias for manual runs
	g.GET("/process-queue", h.ProcessQueue)
	g.POST("/process-queue/cleanup", h.CleanupQueue)
}

// authorize enforces the shared-secret bearer check when a secret is
// configured
func (h *QueueHandler) authorize(c echo.Context) error {
	if h.cronSecret == "" {
		return nil
	}
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "Bearer "+h.cronSecret {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return nil
}

// ProcessQueue runs one sweep over due retry items
func (h *QueueHandler) ProcessQueue(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}

	if err := h.processor.ProcessQueue(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Queue processed successfully",
	})
}

// CleanupQueue purges finished queue items past the retention window
func (h *QueueHandler) CleanupQueue(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}

	deleted, err := h.processor.Cleanup(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"deleted": deleted,
	})
}
