// Package dispatch attaches available drivers to ready-for-pickup orders and
// keeps the order's driver sub-document and the driver's availability flag
// mutating as a pair.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/internal/models"
	"farmlink/internal/orders"
)

// ErrDriverUnavailable rejects an accept from a driver already on a delivery.
var ErrDriverUnavailable = errors.New("driver is not available")

// ErrNotAssigned rejects a driver action on an order the driver is not
// attached to.
var ErrNotAssigned = errors.New("driver is not assigned to this order")

// AlreadyAssignedError is returned to the loser of an accept race. The order
// was not changed from the loser's perspective.
type AlreadyAssignedError struct {
	OrderID  primitive.ObjectID
	DriverID primitive.ObjectID
}

func (e AlreadyAssignedError) Error() string {
	return "order already assigned to another driver"
}

// InconsistencyError reports a partial dispatch effect: the order mutation
// committed but the paired driver update did not. This is fatal from the
// coordinator's point of view and needs manual reconciliation; it is never
// retried silently.
type InconsistencyError struct {
	OrderID  primitive.ObjectID
	DriverID primitive.ObjectID
	Cause    error
}

func (e InconsistencyError) Error() string {
	return fmt.Sprintf("dispatch left order %s and driver %s inconsistent: %v",
		e.OrderID.Hex(), e.DriverID.Hex(), e.Cause)
}

func (e InconsistencyError) Unwrap() error { return e.Cause }

// Accept attaches the driver to an unassigned ready_for_pickup order and
// moves it out_for_delivery. The attach is a compare-and-set on the driver
// reference: exactly one of two racing drivers wins, the other gets
// AlreadyAssignedError immediately, no waiting.
func Accept(ctx context.Context, db *mongo.Database, notifier orders.Notifier, orderID primitive.ObjectID, driver *models.Driver) (*models.Order, error) {
	if !driver.Availability.IsAvailable {
		return nil, ErrDriverUnavailable
	}

	now := time.Now()
	entry := orders.NewTrackingEntry(models.OrderOutForDelivery, "driver accepted delivery", driver.Location)

	filter := bson.M{
		"_id":             orderID,
		"status":          models.OrderReadyForPickup,
		"driver.driverId": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"status":            models.OrderOutForDelivery,
			"driver.driverId":   driver.ID,
			"driver.assignedAt": now,
			"driver.acceptedAt": now,
		},
		"$push": bson.M{"tracking": entry},
	}

	var updated models.Order
	err := db.Collection("orders").FindOneAndUpdate(
		ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, classifyAcceptFailure(ctx, db, orderID)
	}
	if err != nil {
		return nil, err
	}

	// Paired effect: mark the driver busy. If this fails the system is
	// inconsistent (order says assigned, driver says free) and the caller
	// must be told loudly.
	res, err := db.Collection("drivers").UpdateOne(ctx,
		bson.M{"_id": driver.ID, "availability.isAvailable": true},
		bson.M{"$set": bson.M{
			"availability.isAvailable": false,
			"availability.updatedAt":   now,
		}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = ErrDriverUnavailable
	}
	if err != nil {
		fatal := InconsistencyError{OrderID: orderID, DriverID: driver.ID, Cause: err}
		log.Printf("[DISPATCH] [ERROR] %v", fatal)
		return nil, fatal
	}

	notifyAsync(notifier, &updated, models.RoleDriver)

	return &updated, nil
}

// classifyAcceptFailure explains why the accept compare-and-set matched
// nothing: somebody else already holds the order, or it is not in the pool.
func classifyAcceptFailure(ctx context.Context, db *mongo.Database, orderID primitive.ObjectID) error {
	var order models.Order
	if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return err
	}
	if order.Driver.DriverID != nil {
		return AlreadyAssignedError{OrderID: orderID, DriverID: *order.Driver.DriverID}
	}
	return orders.InvalidTransitionError{Current: order.Status, Requested: models.OrderOutForDelivery}
}

// Reject detaches the driver from an order that has not been picked up yet
// and returns it to the unassigned pool. The rejecting driver is restored to
// available if the earlier accept had marked them busy; a driver who never
// accepted is untouched.
func Reject(ctx context.Context, db *mongo.Database, notifier orders.Notifier, orderID primitive.ObjectID, driver *models.Driver) (*models.Order, error) {
	entry := orders.NewTrackingEntry(models.OrderReadyForPickup, "driver rejected delivery", nil)

	filter := bson.M{
		"_id":               orderID,
		"status":            models.OrderOutForDelivery,
		"driver.driverId":   driver.ID,
		"driver.pickedUpAt": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"status":          models.OrderReadyForPickup,
			"driver.driverId": nil,
		},
		"$unset": bson.M{
			"driver.assignedAt": "",
			"driver.acceptedAt": "",
		},
		"$push": bson.M{"tracking": entry},
	}

	var updated models.Order
	err := db.Collection("orders").FindOneAndUpdate(
		ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotAssigned
	}
	if err != nil {
		return nil, err
	}

	_, err = db.Collection("drivers").UpdateOne(ctx,
		bson.M{"_id": driver.ID, "availability.isAvailable": false},
		bson.M{"$set": bson.M{
			"availability.isAvailable": true,
			"availability.updatedAt":   time.Now(),
		}},
	)
	if err != nil {
		fatal := InconsistencyError{OrderID: orderID, DriverID: driver.ID, Cause: err}
		log.Printf("[DISPATCH] [ERROR] %v", fatal)
		return nil, fatal
	}

	notifyAsync(notifier, &updated, models.RoleDriver)

	return &updated, nil
}

// ConfirmPickup stamps pickedUpAt once the driver collects the order from
// the farmer. Status stays out_for_delivery.
func ConfirmPickup(ctx context.Context, db *mongo.Database, orderID primitive.ObjectID, driverID primitive.ObjectID) (*models.Order, error) {
	filter := bson.M{
		"_id":               orderID,
		"status":            models.OrderOutForDelivery,
		"driver.driverId":   driverID,
		"driver.pickedUpAt": nil,
	}

	var updated models.Order
	err := db.Collection("orders").FindOneAndUpdate(
		ctx, filter,
		bson.M{"$set": bson.M{"driver.pickedUpAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotAssigned
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deliver confirms delivery on behalf of the assigned driver. The status
// change itself goes through the order state machine, which also releases
// the driver.
func Deliver(ctx context.Context, db *mongo.Database, notifier orders.Notifier, orderID primitive.ObjectID, driverID primitive.ObjectID, location *models.GeoPoint) (*models.Order, error) {
	count, err := db.Collection("orders").CountDocuments(ctx, bson.M{
		"_id":             orderID,
		"driver.driverId": driverID,
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotAssigned
	}

	return orders.Transition(ctx, db, notifier, orderID, models.OrderDelivered, models.RoleDriver, "order delivered", location)
}

// UpdateLocation records a driver's periodic position report. The driver
// document is the source of truth; the active order's copy is refreshed
// best-effort so the buyer's tracking view stays within a polling interval.
func UpdateLocation(ctx context.Context, db *mongo.Database, driverID primitive.ObjectID, loc models.GeoPoint) error {
	now := time.Now()

	res, err := db.Collection("drivers").UpdateOne(ctx,
		bson.M{"_id": driverID},
		bson.M{"$set": bson.M{
			"location":          loc,
			"locationUpdatedAt": now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	_, err = db.Collection("orders").UpdateOne(ctx,
		bson.M{
			"driver.driverId": driverID,
			"status":          models.OrderOutForDelivery,
		},
		bson.M{"$set": bson.M{
			"driver.driverLocation":    loc,
			"driver.locationUpdatedAt": now,
		}},
	)
	if err != nil {
		log.Printf("[DISPATCH] [WARN] order location refresh failed for driver %s: %v", driverID.Hex(), err)
	}

	return nil
}

// AvailableOrders lists the unassigned ready_for_pickup pool any available
// driver may accept from.
func AvailableOrders(ctx context.Context, db *mongo.Database) ([]models.Order, error) {
	cursor, err := db.Collection("orders").Find(ctx, bson.M{
		"status":          models.OrderReadyForPickup,
		"driver.driverId": nil,
	}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pool []models.Order
	if err := cursor.All(ctx, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func notifyAsync(notifier orders.Notifier, order *models.Order, actor models.Role) {
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
