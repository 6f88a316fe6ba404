package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the wire-visible order lifecycle status. Values are part of
// the client contract and must not be renamed.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReadyForPickup OrderStatus = "ready_for_pickup"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

// PaymentStatus is an independent axis from OrderStatus.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// TrackingEntry is one immutable record in the order's audit trail.
// Entries are only ever appended, never rewritten.
type TrackingEntry struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Notes     string      `bson:"notes,omitempty" json:"notes,omitempty"`
	Location  *GeoPoint   `bson:"location,omitempty" json:"location,omitempty"`
}

// OrderItem represents a single product entry within an order. Price and
// line total are snapshotted at checkout and never recomputed.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	FarmerID  primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Unit      string             `bson:"unit" json:"unit"`
	UnitPrice float64            `bson:"unitPrice" json:"unitPrice"`
	LineTotal float64            `bson:"lineTotal" json:"lineTotal"`
}

// OrderDriver is the delivery sub-document. DriverID stays nil until a
// driver accepts the order; the timestamps fill in as the delivery advances.
type OrderDriver struct {
	DriverID          *primitive.ObjectID `bson:"driverId" json:"driverId"`
	AssignedAt        *time.Time          `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	AcceptedAt        *time.Time          `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	PickedUpAt        *time.Time          `bson:"pickedUpAt,omitempty" json:"pickedUpAt,omitempty"`
	DeliveredAt       *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	DriverLocation    *GeoPoint           `bson:"driverLocation,omitempty" json:"driverLocation,omitempty"`
	LocationUpdatedAt *time.Time          `bson:"locationUpdatedAt,omitempty" json:"locationUpdatedAt,omitempty"`
}

// Order defines the persisted order document. Status always mirrors the
// status of the last tracking entry.
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber       string             `bson:"orderNumber" json:"orderNumber"`
	BuyerID           primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Subtotal          float64            `bson:"subtotal" json:"subtotal"`
	DeliveryFee       float64            `bson:"deliveryFee" json:"deliveryFee"`
	Tax               float64            `bson:"tax" json:"tax"`
	FinalAmount       float64            `bson:"finalAmount" json:"finalAmount"`
	Status            OrderStatus        `bson:"status" json:"status"`
	PaymentStatus     PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	Driver            OrderDriver        `bson:"driver" json:"driver"`
	Tracking          []TrackingEntry    `bson:"tracking" json:"tracking"`
	DeliveryAddress   string             `bson:"deliveryAddress,omitempty" json:"deliveryAddress,omitempty"`
	EstimatedDelivery *time.Time         `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time         `bson:"actualDelivery,omitempty" json:"actualDelivery,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsTerminal reports whether no further status transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderRefunded
}
