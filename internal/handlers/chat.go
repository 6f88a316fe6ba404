package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/notify"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// SendMessage sends a chat message to another user and pushes it to their
// live channels.
func SendMessage(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /messages"
		defer handlePanic(c, route)

		senderID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipientId"})
			return
		}

		msg, err := svc.SendMessage(c.Request.Context(), senderID, recipientID, req.Content)
		if err != nil {
			var unknown notify.UnknownPartyError
			if errors.As(err, &unknown) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":  "unknown party",
					"userId": unknown.UserID.Hex(),
				})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, msg)
	}
}

// GetConversation returns the history with one counter-party; fetching marks
// their unread messages read.
func GetConversation(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /messages/:userId"
		defer handlePanic(c, route)

		userID, _ := currentUserID(c)
		otherID, err := primitive.ObjectIDFromHex(c.Param("userId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}

		messages, err := svc.Conversation(c.Request.Context(), userID, otherID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, messages)
	}
}

// GetChatList returns the caller's conversations, newest first.
func GetChatList(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /messages"
		defer handlePanic(c, route)

		userID, _ := currentUserID(c)

		chats, err := svc.ChatList(c.Request.Context(), userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, chats)
	}
}

// DeleteMessage removes a sent message; only the sender may do so.
func DeleteMessage(svc *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /messages/:id"
		defer handlePanic(c, route)

		messageID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		userID, _ := currentUserID(c)

		err := svc.DeleteMessage(c.Request.Context(), messageID, userID)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, notify.ErrNotSender):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case err != nil:
			respondWithError(c, http.StatusInternalServerError, route, "db error")
		default:
			c.JSON(http.StatusOK, gin.H{"message": "deleted"})
		}
	}
}
