package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/models"
)

// Cancel cancels a pending order on behalf of its buyer and restores the
// reserved stock of every line item. Restock and the status change commit
// together or not at all. Cancelled is terminal; the order is never deleted.
func Cancel(ctx context.Context, db *mongo.Database, notifier Notifier, orderID, buyerID primitive.ObjectID, notes string) (*models.Order, error) {
	var order models.Order
	err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		return nil, err
	}

	if order.BuyerID != buyerID {
		return nil, UnauthorizedRoleError{Role: models.RoleBuyer, Requested: models.OrderCancelled}
	}
	if err := CanTransition(order.Status, models.OrderCancelled, models.RoleBuyer); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(cctx)

	entry := NewTrackingEntry(models.OrderCancelled, notes, nil)

	_, err = session.WithTransaction(cctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		// Guard on pending so a concurrent confirm or cancel loses cleanly.
		res, err := db.Collection("orders").UpdateOne(
			sessCtx,
			bson.M{"_id": orderID, "status": models.OrderPending},
			bson.M{
				"$set":  bson.M{"status": models.OrderCancelled},
				"$push": bson.M{"tracking": entry},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, InvalidTransitionError{Current: order.Status, Requested: models.OrderCancelled}
		}

		for _, item := range order.Items {
			_, err := db.Collection("products").UpdateOne(
				sessCtx,
				bson.M{"_id": item.ProductID},
				bson.M{"$inc": bson.M{"stock": item.Quantity}},
			)
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		var invalid InvalidTransitionError
		if errors.As(err, &invalid) {
			// Re-read so the caller sees the status that won the race.
			var latest models.Order
			if e := db.Collection("orders").FindOne(cctx, bson.M{"_id": orderID}).Decode(&latest); e == nil {
				invalid.Current = latest.Status
			}
			return nil, invalid
		}
		return nil, err
	}

	order.Status = models.OrderCancelled
	order.Tracking = append(order.Tracking, entry)

	notifyAsync(notifier, &order, models.RoleBuyer)

	return &order, nil
}
