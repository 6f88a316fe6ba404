package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotificationTypeValid(t *testing.T) {
	if !NotifyOrderConfirmed.Valid() {
		t.Fatal("expected order_confirmed to be a known type")
	}
	if NotificationType("shipment_lost").Valid() {
		t.Fatal("expected unknown type to be rejected")
	}
}

func TestRequiredDataPerType(t *testing.T) {
	orderID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	amount := 190.0

	cases := []struct {
		name string
		typ  NotificationType
		data NotificationData
		want bool
	}{
		{"order event with order ref", NotifyOrderDelivered, NotificationData{OrderID: &orderID}, true},
		{"order event missing order ref", NotifyOrderDelivered, NotificationData{}, false},
		{"payment event with amount", NotifyPaymentReceived, NotificationData{OrderID: &orderID, Amount: &amount}, true},
		{"payment event missing amount", NotifyPaymentReceived, NotificationData{OrderID: &orderID}, false},
		{"product event with product ref", NotifyProductOutOfStock, NotificationData{ProductID: &productID}, true},
		{"product event missing product ref", NotifyProductOutOfStock, NotificationData{}, false},
		{"message event needs nothing", NotifyNewMessage, NotificationData{}, true},
	}

	for _, tc := range cases {
		if got := tc.typ.RequiredData(tc.data); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderDelivered, OrderCancelled, OrderRefunded} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReadyForPickup, OrderOutForDelivery} {
		if s.IsTerminal() {
			t.Fatalf("expected %s not to be terminal", s)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleBuyer, RoleFarmer, RoleDriver} {
		if !r.Valid() {
			t.Fatalf("expected %s to be valid", r)
		}
	}
	if Role("admin").Valid() {
		t.Fatal("expected unknown role to be rejected")
	}
}
