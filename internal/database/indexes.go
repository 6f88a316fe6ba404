package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := db.Collection("users").Indexes().CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "buyerId", Value: 1}},
			Options: options.Index().SetName("buyerId_index"),
		},
		{
			Keys: bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().
				SetName("orderNumber_unique").
				SetUnique(true),
		},
		{
			// Serves the unassigned ready_for_pickup pool drivers poll.
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "driver.driverId", Value: 1}},
			Options: options.Index().SetName("status_driver_index"),
		},
		{
			Keys:    bson.D{{Key: "items.farmerId", Value: 1}},
			Options: options.Index().SetName("farmerId_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	_, err := db.Collection("orders").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Println("EnsureOrderIndexes: order index error:", err)
		return err
	}
	return nil
}

func EnsureDriverIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("userId_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "availability.isAvailable", Value: 1}},
			Options: options.Index().SetName("availability_index"),
		},
	}

	log.Println("EnsureDriverIndexes: creating driver indexes")
	_, err := db.Collection("drivers").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Println("EnsureDriverIndexes: driver index error:", err)
		return err
	}
	return nil
}

func EnsureNotificationIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			// Serves the unread-list query.
			Keys:    bson.D{{Key: "recipientId", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("recipient_unread_index"),
		},
		{
			// Expired notifications are purged by the server.
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().
				SetName("expiresAt_ttl").
				SetExpireAfterSeconds(0),
		},
	}

	log.Println("EnsureNotificationIndexes: creating notification indexes")
	_, err := db.Collection("notifications").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Println("EnsureNotificationIndexes: notification index error:", err)
		return err
	}
	return nil
}

func EnsureMessageIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "senderId", Value: 1}, {Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("conversation_index"),
		},
		{
			Keys:    bson.D{{Key: "recipientId", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("recipient_unread_index"),
		},
	}

	log.Println("EnsureMessageIndexes: creating message indexes")
	_, err := db.Collection("messages").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Println("EnsureMessageIndexes: message index error:", err)
		return err
	}
	return nil
}
