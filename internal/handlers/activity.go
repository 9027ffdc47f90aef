package handlers

import (
	"context"
	"errors"
	"net/http"

	"real-estate-matching/internal/activity"
	"real-estate-matching/internal/middleware"

	"github.com/gin-gonic/gin"
)

// ActivityUpdater stamps a user's last activity
type ActivityUpdater interface {
	UpdateUserActivity(ctx context.Context, callerID string) error
}

// ActivityHandler serves the updateUserActivity callable
type ActivityHandler struct {
	service ActivityUpdater
}

func NewActivityHandler(service ActivityUpdater) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// UpdateUserActivity handles POST /api/users/activity
func (h *ActivityHandler) UpdateUserActivity(c *gin.Context) {
	err := h.service.UpdateUserActivity(c.Request.Context(), c.GetString(middleware.UserIDKey))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, activity.ErrUnauthenticated):
		callableError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "User must be authenticated")
	default:
		callableError(c, http.StatusInternalServerError, "INTERNAL", "Failed to update user activity")
	}
}

func callableError(c *gin.Context, code int, status, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"status":  status,
			"message": message,
		},
	})
}
