package handler

import (
	"net/http"
	"strconv"

	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)))
	if err != nil || limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	rows, err := h.Notifications.ListNotifications(c.Request.Context(), RoleContextFrom(c), limit)
	if err != nil {
		_ = c.Error(storage.AppError(err, "could not load notifications"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(apperr.Validation("invalid notification id"))
		return
	}
	if err := h.Notifications.MarkNotificationRead(c.Request.Context(), RoleContextFrom(c), uint(id)); err != nil {
		_ = c.Error(storage.AppError(err, "could not update notification"))
		return
	}
	c.Status(http.StatusNoContent)
}
