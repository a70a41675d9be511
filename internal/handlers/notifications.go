package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetNotifications returns the caller's newest notifications and unread count
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	list, err := h.Notifications.List(ctx, userID, util.ParseInt(c.Query("limit"), social.DefaultNotificationLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.Notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	updated, err := h.Notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
