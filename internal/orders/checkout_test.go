package orders

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/internal/models"
)

func TestComputeTotals(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: primitive.NewObjectID(), Quantity: 2, UnitPrice: 45, LineTotal: 90},
		{ProductID: primitive.NewObjectID(), Quantity: 1, UnitPrice: 50, LineTotal: 50},
	}

	subtotal, tax, final := ComputeTotals(items, 50, 0)
	if subtotal != 140 {
		t.Fatalf("expected subtotal 140, got %v", subtotal)
	}
	if tax != 0 {
		t.Fatalf("expected tax 0, got %v", tax)
	}
	if final != 190 {
		t.Fatalf("expected finalAmount 190, got %v", final)
	}
}

func TestComputeTotalsWithTax(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 1, UnitPrice: 100, LineTotal: 100},
	}

	subtotal, tax, final := ComputeTotals(items, 20, 0.1)
	if subtotal != 100 || tax != 10 || final != 130 {
		t.Fatalf("expected 100/10/130, got %v/%v/%v", subtotal, tax, final)
	}
}

func TestComputeTotalsRounds(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 3, UnitPrice: 3.33, LineTotal: 9.99},
	}

	subtotal, tax, final := ComputeTotals(items, 0, 0.18)
	if subtotal != 9.99 {
		t.Fatalf("expected subtotal 9.99, got %v", subtotal)
	}
	if tax != 1.8 {
		t.Fatalf("expected tax 1.8, got %v", tax)
	}
	if final != 11.79 {
		t.Fatalf("expected final 11.79, got %v", final)
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	number := NewOrderNumber()

	if !strings.HasPrefix(number, "ORD-") {
		t.Fatalf("expected ORD- prefix, got %s", number)
	}
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		t.Fatalf("expected three dash-separated parts, got %s", number)
	}
	if len(parts[2]) != 4 {
		t.Fatalf("expected 4 hex chars of suffix, got %q", parts[2])
	}
}
