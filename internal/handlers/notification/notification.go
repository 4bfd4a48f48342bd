package notification

import (
	"net/http"
	"time"

	"vkitchen_back_end/internal/notifications"
	"vkitchen_back_end/internal/realtime"

	"github.com/gin-gonic/gin"
)

// Handler serves the per-user notification feed.
type Handler struct {
	Store *notifications.Store
	Hub   *realtime.Hub
}

func NewHandler(store *notifications.Store, hub *realtime.Hub) *Handler {
	return &Handler{Store: store, Hub: hub}
}

// List returns the caller's notifications, newest first. ?unread=true filters
// to unread only.
func (h *Handler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	unreadOnly := c.Query("unread") == "true"

	list, err := h.Store.ListByUser(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("notificationId")

	n, err := h.Store.MarkRead(c.Request.Context(), userID, id)
	if err == notifications.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update notification"})
		return
	}

	h.pushUpdate(c, userID, map[string]interface{}{
		"notification_id": n.ID.String(),
		"read":            true,
	})

	c.JSON(http.StatusOK, gin.H{"notification": n})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("user_id")

	updated, err := h.Store.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update notifications"})
		return
	}

	h.pushUpdate(c, userID, map[string]interface{}{"all_read": true})

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("notificationId")

	if err := h.Store.Delete(c.Request.Context(), userID, id); err != nil {
		if err == notifications.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete notification"})
		return
	}

	h.pushUpdate(c, userID, map[string]interface{}{"notification_id": id, "deleted": true})

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")

	count, err := h.Store.CountUnread(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// pushUpdate tells the user's open sockets the feed changed, with the fresh
// unread count riding along.
func (h *Handler) pushUpdate(c *gin.Context, userID string, data map[string]interface{}) {
	if h.Hub == nil {
		return
	}

	h.Hub.RouteToUser(userID, realtime.Event{
		Type:      realtime.EventNotificationUpdated,
		Timestamp: time.Now(),
		Data:      data,
	})

	if count, err := h.Store.CountUnread(c.Request.Context(), userID); err == nil {
		h.Hub.RouteToUser(userID, realtime.Event{
			Type:      realtime.EventUnreadCountUpdated,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"unread": count},
		})
	}
}
