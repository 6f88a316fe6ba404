package notify

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/internal/models"
)

func TestDescribeOrderStatusCoversLifecycle(t *testing.T) {
	order := &models.Order{
		ID:          primitive.NewObjectID(),
		OrderNumber: "ORD-1-abcd",
	}

	cases := []struct {
		status models.OrderStatus
		typ    models.NotificationType
	}{
		{models.OrderPending, models.NotifyOrderPlaced},
		{models.OrderConfirmed, models.NotifyOrderConfirmed},
		{models.OrderPreparing, models.NotifyOrderPreparing},
		{models.OrderReadyForPickup, models.NotifyOrderReady},
		{models.OrderOutForDelivery, models.NotifyOrderOutForDelivery},
		{models.OrderDelivered, models.NotifyOrderDelivered},
		{models.OrderCancelled, models.NotifyOrderCancelled},
	}

	for _, tc := range cases {
		order.Status = tc.status
		typ, title, message, priority := describeOrderStatus(order)
		if typ != tc.typ {
			t.Fatalf("status %s: expected type %s, got %s", tc.status, tc.typ, typ)
		}
		if title == "" || message == "" || priority == "" {
			t.Fatalf("status %s: expected title, message and priority to be set", tc.status)
		}
	}

	order.Status = models.OrderRefunded
	if typ, _, _, _ := describeOrderStatus(order); typ != "" {
		t.Fatalf("expected no notification shape for refunded, got %s", typ)
	}
}

func TestFarmersOfDeduplicates(t *testing.T) {
	farmerA := primitive.NewObjectID()
	farmerB := primitive.NewObjectID()

	order := &models.Order{
		Items: []models.OrderItem{
			{FarmerID: farmerA},
			{FarmerID: farmerB},
			{FarmerID: farmerA},
		},
	}

	farmers := farmersOf(order)
	if len(farmers) != 2 {
		t.Fatalf("expected 2 distinct farmers, got %d", len(farmers))
	}
	if farmers[0] != farmerA || farmers[1] != farmerB {
		t.Fatal("expected first-seen order to be preserved")
	}
}
