package handlers

import "github.com/labstack/echo/v4"

// getUserIDFromContext returns the Firebase UID the auth middleware
// stored on the request, or "" when the request is unauthenticated.
func getUserIDFromContext(c echo.Context) string {
	if uid, ok := c.Get("firebaseUID").(string); ok {
		return uid
	}
	return ""
}
