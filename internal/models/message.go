package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message defines a persisted point-to-point chat message. Content is
// immutable once sent; only the Read flag changes, and only when the
// recipient fetches the conversation.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID    primitive.ObjectID `bson:"senderId" json:"senderId"`
	RecipientID primitive.ObjectID `bson:"recipientId" json:"recipientId"`
	Content     string             `bson:"content" json:"content"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// ChatSummary is one row of a user's chat list: the most recent message
// exchanged with a counter-party. Derived, never stored.
type ChatSummary struct {
	UserID      primitive.ObjectID `bson:"_id" json:"userId"`
	LastMessage Message            `bson:"lastMessage" json:"lastMessage"`
	UnreadCount int                `bson:"unreadCount" json:"unreadCount"`
}
