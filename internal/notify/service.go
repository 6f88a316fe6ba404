// Package notify is the facade other components call to tell someone
// something now: it persists the durable record first, then asks the
// presence registry to push it to any live channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/internal/models"
	"farmlink/internal/realtime"
)

// Service persists notifications and chat messages and fans them out to live
// presence channels. Persistence always happens before routing: a record
// that failed to persist is never routed, and one that persisted but did not
// reach a live channel still counts as sent.
type Service struct {
	db        *mongo.Database
	registry  *realtime.Registry
	retention time.Duration
}

func NewService(db *mongo.Database, registry *realtime.Registry, retention time.Duration) *Service {
	return &Service{db: db, registry: registry, retention: retention}
}

// Notify persists the notification and pushes it to the recipient's live
// channels. The returned bool reports live delivery only; false with a nil
// error means the recipient will see it in their unread list later.
func (s *Service) Notify(ctx context.Context, n models.Notification) (bool, error) {
	if !n.Type.Valid() {
		return false, fmt.Errorf("unknown notification type %q", n.Type)
	}
	if !n.Type.RequiredData(n.Data) {
		return false, fmt.Errorf("notification type %q is missing required data", n.Type)
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = time.Now()
	n.ExpiresAt = n.CreatedAt.Add(s.retention)

	res, err := s.db.Collection("notifications").InsertOne(ctx, n)
	if err != nil {
		return false, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = id
	}

	delivered := s.registry.Route(n.RecipientID.Hex(), realtime.NewEnvelope(realtime.EventNotification, n))
	return delivered, nil
}

// OrderStatusChanged notifies the counter-party of a committed order
// transition: the buyer hears about farmer and driver actions, the farmers
// hear about buyer actions (placement and cancellation).
func (s *Service) OrderStatusChanged(ctx context.Context, order *models.Order, actor models.Role) error {
	typ, title, message, priority := describeOrderStatus(order)
	if typ == "" {
		return nil
	}

	data := models.NotificationData{
		OrderID:     &order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
	}

	recipients := []primitive.ObjectID{order.BuyerID}
	if actor == models.RoleBuyer {
		recipients = farmersOf(order)
	}

	var firstErr error
	for _, recipient := range recipients {
		_, err := s.Notify(ctx, models.Notification{
			RecipientID: recipient,
			Type:        typ,
			Title:       title,
			Message:     message,
			Data:        data,
			Priority:    priority,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// describeOrderStatus maps an order status onto the notification shape sent
// for it.
func describeOrderStatus(order *models.Order) (models.NotificationType, string, string, models.NotificationPriority) {
	switch order.Status {
	case models.OrderPending:
		return models.NotifyOrderPlaced, "New order",
			fmt.Sprintf("Order %s has been placed", order.OrderNumber), models.PriorityHigh
	case models.OrderConfirmed:
		return models.NotifyOrderConfirmed, "Order confirmed",
			fmt.Sprintf("Order %s has been confirmed by the farmer", order.OrderNumber), models.PriorityMedium
	case models.OrderPreparing:
		return models.NotifyOrderPreparing, "Order being prepared",
			fmt.Sprintf("Order %s is being prepared", order.OrderNumber), models.PriorityMedium
	case models.OrderReadyForPickup:
		return models.NotifyOrderReady, "Order ready for pickup",
			fmt.Sprintf("Order %s is ready and waiting for a driver", order.OrderNumber), models.PriorityMedium
	case models.OrderOutForDelivery:
		return models.NotifyOrderOutForDelivery, "Order on the way",
			fmt.Sprintf("Order %s is out for delivery", order.OrderNumber), models.PriorityHigh
	case models.OrderDelivered:
		return models.NotifyOrderDelivered, "Order delivered",
			fmt.Sprintf("Order %s has been delivered", order.OrderNumber), models.PriorityHigh
	case models.OrderCancelled:
		return models.NotifyOrderCancelled, "Order cancelled",
			fmt.Sprintf("Order %s was cancelled by the buyer", order.OrderNumber), models.PriorityHigh
	default:
		return "", "", "", ""
	}
}

// farmersOf returns the distinct farmers referenced by the order's items.
func farmersOf(order *models.Order) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(order.Items))
	farmers := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.FarmerID]; ok {
			continue
		}
		seen[item.FarmerID] = struct{}{}
		farmers = append(farmers, item.FarmerID)
	}
	return farmers
}

// ListUnread returns the recipient's unread, unexpired notifications, newest
// first.
func (s *Service) ListUnread(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error) {
	cursor, err := s.db.Collection("notifications").Find(ctx,
		bson.M{
			"recipientId": recipientID,
			"isRead":      false,
			"expiresAt":   bson.M{"$gt": time.Now()},
		},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// List returns the recipient's recent notifications, read or not.
func (s *Service) List(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	cursor, err := s.db.Collection("notifications").Find(ctx,
		bson.M{"recipientId": recipientID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips one notification to read. Marking an already-read
// notification again is a no-op, not an error.
func (s *Service) MarkRead(ctx context.Context, notificationID, recipientID primitive.ObjectID) error {
	res, err := s.db.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": notificationID, "recipientId": recipientID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, err := s.db.Collection("notifications").CountDocuments(ctx,
			bson.M{"_id": notificationID, "recipientId": recipientID})
		if err != nil {
			return err
		}
		if count == 0 {
			return mongo.ErrNoDocuments
		}
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (s *Service) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	res, err := s.db.Collection("notifications").UpdateMany(ctx,
		bson.M{"recipientId": recipientID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// userExists reports whether the id resolves to an active account.
func (s *Service) userExists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := s.db.Collection("users").CountDocuments(ctx,
		bson.M{"_id": userID, "isActive": true})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var errSelfMessage = errors.New("sender and recipient are the same user")
