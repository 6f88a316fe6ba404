package orders

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/internal/models"
)

// Notifier informs the counter-party about a committed order change. Calls
// are best-effort: implementations persist and route, and the caller never
// rolls back an order mutation because notification failed.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order, actor models.Role) error
}

// Transition applies a role-gated status change to an order.
//
// The write is guarded on the status the order had when it was read, so two
// concurrent transitions on the same order cannot both succeed: the loser
// fails with InvalidTransitionError carrying whatever status won. On success
// a tracking entry is appended and the denormalized status updated in the
// same write. Reaching delivered also stamps actualDelivery and releases
// the assigned driver.
func Transition(ctx context.Context, db *mongo.Database, notifier Notifier, orderID primitive.ObjectID, requested models.OrderStatus, role models.Role, notes string, location *models.GeoPoint) (*models.Order, error) {
	var order models.Order
	err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		return nil, err
	}

	if err := CanTransition(order.Status, requested, role); err != nil {
		return nil, err
	}

	now := time.Now()
	entry := NewTrackingEntry(requested, notes, location)
	set := bson.M{"status": requested}
	if requested == models.OrderDelivered {
		set["actualDelivery"] = now
		set["driver.deliveredAt"] = now
	}

	filter := bson.M{"_id": orderID, "status": order.Status}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"tracking": entry},
	}

	var updated models.Order
	err = db.Collection("orders").FindOneAndUpdate(
		ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		// Lost a race with a concurrent transition; report against the
		// status that is now current.
		current := order.Status
		var latest models.Order
		if e := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&latest); e == nil {
			current = latest.Status
		}
		return nil, InvalidTransitionError{Current: current, Requested: requested}
	}
	if err != nil {
		return nil, err
	}

	if requested == models.OrderDelivered && updated.Driver.DriverID != nil {
		releaseDriver(ctx, db, *updated.Driver.DriverID, updated.OrderNumber)
	}

	notifyAsync(notifier, &updated, role)

	return &updated, nil
}

// releaseDriver credits the delivery and puts the driver back in the pool.
// A failure here leaves the driver flagged busy with no active order, which
// needs operator attention, so it is logged loudly rather than returned.
func releaseDriver(ctx context.Context, db *mongo.Database, driverID primitive.ObjectID, orderNumber string) {
	_, err := db.Collection("drivers").UpdateOne(ctx,
		bson.M{"_id": driverID},
		bson.M{
			"$inc": bson.M{"totalDeliveries": 1},
			"$set": bson.M{
				"availability.isAvailable": true,
				"availability.updatedAt":   time.Now(),
			},
		},
	)
	if err != nil {
		log.Printf("[DISPATCH] [ERROR] order %s delivered but driver %s not released, manual reconciliation required: %v",
			orderNumber, driverID.Hex(), err)
	}
}

// notifyAsync fires the side channel after the mutation has committed.
// Failures are logged and swallowed.
func notifyAsync(notifier Notifier, order *models.Order, actor models.Role) {
	if notifier == nil {
		return
	}
	o := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := notifier.OrderStatusChanged(ctx, &o, actor); err != nil {
			log.Printf("[NOTIFY] [WARN] order %s status %s: %v", o.OrderNumber, o.Status, err)
		}
	}()
}
