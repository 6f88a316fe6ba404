package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of events a notification can describe.
type NotificationType string

const (
	NotifyOrderPlaced         NotificationType = "order_placed"
	NotifyOrderConfirmed      NotificationType = "order_confirmed"
	NotifyOrderPreparing      NotificationType = "order_preparing"
	NotifyOrderReady          NotificationType = "order_ready"
	NotifyOrderOutForDelivery NotificationType = "order_out_for_delivery"
	NotifyOrderDelivered      NotificationType = "order_delivered"
	NotifyOrderCancelled      NotificationType = "order_cancelled"
	NotifyPaymentReceived     NotificationType = "payment_received"
	NotifyPaymentFailed       NotificationType = "payment_failed"
	NotifyProductOutOfStock   NotificationType = "product_out_of_stock"
	NotifyNewMessage          NotificationType = "new_message"
	NotifyMessageDeleted      NotificationType = "message_deleted"
)

// NotificationPriority orders how prominently a notification is surfaced.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// NotificationData is the structured payload attached to a notification.
// Which fields are populated is fixed per NotificationType; see
// RequiredData.
type NotificationData struct {
	OrderID     *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	OrderNumber string              `bson:"orderNumber,omitempty" json:"orderNumber,omitempty"`
	ProductID   *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	Amount      *float64            `bson:"amount,omitempty" json:"amount,omitempty"`
	Status      string              `bson:"status,omitempty" json:"status,omitempty"`
	Extra       map[string]string   `bson:"extra,omitempty" json:"extra,omitempty"`
}

// Notification defines the persisted notification document. Immutable once
// created except for the read transition; purged once ExpiresAt passes.
type Notification struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID   `bson:"recipientId" json:"recipientId"`
	SenderID    *primitive.ObjectID  `bson:"senderId,omitempty" json:"senderId,omitempty"`
	Type        NotificationType     `bson:"type" json:"type"`
	Title       string               `bson:"title" json:"title"`
	Message     string               `bson:"message" json:"message"`
	Data        NotificationData     `bson:"data" json:"data"`
	Priority    NotificationPriority `bson:"priority" json:"priority"`
	IsRead      bool                 `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time           `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time            `bson:"expiresAt" json:"expiresAt"`
}

var notificationTypes = map[NotificationType]struct{}{
	NotifyOrderPlaced:         {},
	NotifyOrderConfirmed:      {},
	NotifyOrderPreparing:      {},
	NotifyOrderReady:          {},
	NotifyOrderOutForDelivery: {},
	NotifyOrderDelivered:      {},
	NotifyOrderCancelled:      {},
	NotifyPaymentReceived:     {},
	NotifyPaymentFailed:       {},
	NotifyProductOutOfStock:   {},
	NotifyNewMessage:          {},
	NotifyMessageDeleted:      {},
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// RequiredData reports whether data carries the fields the type demands:
// order and payment events reference an order, payment events additionally
// carry an amount, product events reference a product.
func (t NotificationType) RequiredData(data NotificationData) bool {
	switch t {
	case NotifyOrderPlaced, NotifyOrderConfirmed, NotifyOrderPreparing,
		NotifyOrderReady, NotifyOrderOutForDelivery, NotifyOrderDelivered,
		NotifyOrderCancelled:
		return data.OrderID != nil
	case NotifyPaymentReceived, NotifyPaymentFailed:
		return data.OrderID != nil && data.Amount != nil
	case NotifyProductOutOfStock:
		return data.ProductID != nil
	case NotifyNewMessage, NotifyMessageDeleted:
		return true
	default:
		return false
	}
}
