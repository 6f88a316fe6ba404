package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/internal/models"
	"farmlink/internal/realtime"
)

// UnknownPartyError reports a sender or recipient that does not resolve to
// an active account. The message is not created.
type UnknownPartyError struct {
	UserID primitive.ObjectID
}

func (e UnknownPartyError) Error() string {
	return "unknown user " + e.UserID.Hex()
}

// ErrNotSender rejects a delete attempt by anyone but the original sender.
var ErrNotSender = errors.New("only the sender may delete a message")

// SendMessage validates both parties, persists the message, then routes a
// new_message envelope to the recipient's live channels.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID primitive.ObjectID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message content is required")
	}
	if senderID == recipientID {
		return nil, errSelfMessage
	}

	for _, id := range []primitive.ObjectID{senderID, recipientID} {
		ok, err := s.userExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, UnknownPartyError{UserID: id}
		}
	}

	msg := models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Read:        false,
		CreatedAt:   time.Now(),
	}

	res, err := s.db.Collection("messages").InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = id
	}

	s.registry.Route(recipientID.Hex(), realtime.NewEnvelope(realtime.EventNewMessage, msg))

	return &msg, nil
}

// Conversation returns the full message history between two users, oldest
// first. Fetching it marks every unread message from the counter-party as
// read; the recipient never issues a separate read call.
func (s *Service) Conversation(ctx context.Context, userID, otherID primitive.ObjectID) ([]models.Message, error) {
	_, err := s.db.Collection("messages").UpdateMany(ctx,
		bson.M{"senderId": otherID, "recipientId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return nil, err
	}

	cursor, err := s.db.Collection("messages").Find(ctx,
		bson.M{"$or": []bson.M{
			{"senderId": userID, "recipientId": otherID},
			{"senderId": otherID, "recipientId": userID},
		}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ChatList derives the user's chat list: per distinct counter-party, the
// most recent message exchanged, newest conversation first. Nothing is
// stored; the list is computed from the messages collection.
func (s *Service) ChatList(ctx context.Context, userID primitive.ObjectID) ([]models.ChatSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": []bson.M{
			{"senderId": userID},
			{"recipientId": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$addFields", Value: bson.M{
			"counterparty": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", userID}},
				"$recipientId",
				"$senderId",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$counterparty",
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$recipientId", userID}},
					bson.M{"$eq": bson.A{"$read", false}},
				}},
				1,
				0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}

	cursor, err := s.db.Collection("messages").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []models.ChatSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// DeleteMessage removes a message on behalf of its sender and pushes a
// message_deleted event to the recipient so their view updates.
func (s *Service) DeleteMessage(ctx context.Context, messageID, requesterID primitive.ObjectID) error {
	var msg models.Message
	err := s.db.Collection("messages").FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return ErrNotSender
	}

	_, err = s.db.Collection("messages").DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return err
	}

	s.registry.Route(msg.RecipientID.Hex(), realtime.NewEnvelope(realtime.EventMessageDeleted, bson.M{
		"messageId": messageID.Hex(),
		"senderId":  msg.SenderID.Hex(),
	}))

	return nil
}
