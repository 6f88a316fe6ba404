package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/notify"
)

// ListNotifications returns the caller's notifications; ?unread=true limits
// the result to unread, unexpired ones.
func ListNotifications(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /notifications"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if c.Query("unread") == "true" {
			notifications, err := svc.ListUnread(c.Request.Context(), userID)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			c.JSON(http.StatusOK, notifications)
			return
		}

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
		notifications, err := svc.List(c.Request.Context(), userID, limit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, notifications)
	}
}

// MarkNotificationRead acknowledges one notification. Re-acknowledging is a
// no-op.
func MarkNotificationRead(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /notifications/:id/read"
		defer handlePanic(c, route)

		notificationID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		userID, _ := currentUserID(c)

		err := svc.MarkRead(c.Request.Context(), notificationID, userID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "marked read"})
	}
}

// MarkAllNotificationsRead acknowledges everything unread for the caller.
func MarkAllNotificationsRead(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /notifications/read-all"
		defer handlePanic(c, route)

		userID, _ := currentUserID(c)

		modified, err := svc.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked": modified})
	}
}
