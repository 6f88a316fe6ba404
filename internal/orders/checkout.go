package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/models"
)

// CheckoutItem is one requested line of a checkout.
type CheckoutItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// CheckoutInput is the validated input to Checkout.
type CheckoutInput struct {
	BuyerID         primitive.ObjectID
	Items           []CheckoutItem
	DeliveryAddress string
	DeliveryFee     float64
	TaxRate         float64
}

// Checkout creates an order from the buyer's cart inside a single
// transaction. Each product's stock is decremented with a floor check, so a
// concurrent checkout can never drive stock below zero; losing the check
// fails the whole order with InsufficientStockError and nothing is created.
func Checkout(ctx context.Context, db *mongo.Database, in CheckoutInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("at least one item is required")
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, errors.New("quantity must be greater than zero")
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(cctx)

	now := time.Now()
	order := models.Order{
		OrderNumber:   NewOrderNumber(),
		BuyerID:       in.BuyerID,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		Driver:        models.OrderDriver{},
		Tracking: []models.TrackingEntry{
			NewTrackingEntry(models.OrderPending, "order placed", nil),
		},
		DeliveryAddress: in.DeliveryAddress,
		CreatedAt:       now,
	}

	_, err = session.WithTransaction(cctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		items := make([]models.OrderItem, 0, len(in.Items))

		for _, item := range in.Items {
			var product models.Product
			err := db.Collection("products").FindOne(
				sessCtx,
				bson.M{
					"_id":       item.ProductID,
					"isActive":  true,
					"isDeleted": bson.M{"$ne": true},
				},
			).Decode(&product)
			if err == mongo.ErrNoDocuments {
				return nil, ProductNotFoundError{ProductID: item.ProductID}
			}
			if err != nil {
				return nil, err
			}

			if product.Stock < item.Quantity {
				return nil, InsufficientStockError{
					ProductID: item.ProductID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}

			filter := bson.M{
				"_id":       item.ProductID,
				"isDeleted": bson.M{"$ne": true},
				"stock":     bson.M{"$gte": item.Quantity},
			}
			res, err := db.Collection("products").UpdateOne(
				sessCtx, filter,
				bson.M{"$inc": bson.M{"stock": -item.Quantity}},
			)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, InsufficientStockError{
					ProductID: item.ProductID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				FarmerID:  product.FarmerID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				Unit:      product.Unit,
				UnitPrice: product.Price,
				LineTotal: round2(product.Price * float64(item.Quantity)),
			})
		}

		order.Items = items
		order.Subtotal, order.Tax, order.FinalAmount = ComputeTotals(items, in.DeliveryFee, in.TaxRate)
		order.DeliveryFee = in.DeliveryFee

		res, err := db.Collection("orders").InsertOne(sessCtx, order)
		if err != nil {
			return nil, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// ComputeTotals derives the monetary totals from the snapshotted line items.
// finalAmount = subtotal + deliveryFee + tax; fixed after creation.
func ComputeTotals(items []models.OrderItem, deliveryFee, taxRate float64) (subtotal, tax, final float64) {
	for _, item := range items {
		subtotal += item.LineTotal
	}
	subtotal = round2(subtotal)
	tax = round2(subtotal * taxRate)
	final = round2(subtotal + deliveryFee + tax)
	return subtotal, tax, final
}

// NewOrderNumber generates the human-readable order id, e.g.
// ORD-1756710000000-a3f1. Uniqueness is backed by the orderNumber index.
func NewOrderNumber() string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return "ORD-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + hex.EncodeToString(suffix)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
