package orders

import (
	"time"

	"farmlink/internal/models"
)

// canonicalOrder is the forward progression of an order. Cancelled and
// refunded sit outside it; they are reachable only through their own edges.
var canonicalOrder = []models.OrderStatus{
	models.OrderPending,
	models.OrderConfirmed,
	models.OrderPreparing,
	models.OrderReadyForPickup,
	models.OrderOutForDelivery,
	models.OrderDelivered,
}

var statusRank = func() map[models.OrderStatus]int {
	m := make(map[models.OrderStatus]int, len(canonicalOrder))
	for i, s := range canonicalOrder {
		m[s] = i
	}
	return m
}()

// CanTransition validates a requested status change against the current
// status and the acting role.
//
// Buyers may only cancel a pending order. Farmers may move an order to any
// strictly later status up to ready_for_pickup, including forward skips such
// as pending straight to preparing; that permissiveness matches the client
// contract and is deliberate. The out_for_delivery and delivered edges
// belong to the driver side and are reached through dispatch.
func CanTransition(current, requested models.OrderStatus, role models.Role) error {
	if current.IsTerminal() {
		return InvalidTransitionError{Current: current, Requested: requested}
	}

	switch role {
	case models.RoleBuyer:
		if requested != models.OrderCancelled {
			return UnauthorizedRoleError{Role: role, Requested: requested}
		}
		if current != models.OrderPending {
			return InvalidTransitionError{Current: current, Requested: requested}
		}
		return nil

	case models.RoleFarmer:
		rank, ok := statusRank[requested]
		if !ok || rank == 0 || rank > statusRank[models.OrderReadyForPickup] {
			return UnauthorizedRoleError{Role: role, Requested: requested}
		}
		if rank <= statusRank[current] {
			return InvalidTransitionError{Current: current, Requested: requested}
		}
		return nil

	case models.RoleDriver:
		switch {
		case current == models.OrderReadyForPickup && requested == models.OrderOutForDelivery:
			return nil
		case current == models.OrderOutForDelivery && requested == models.OrderDelivered:
			return nil
		case requested == models.OrderOutForDelivery || requested == models.OrderDelivered:
			return InvalidTransitionError{Current: current, Requested: requested}
		default:
			return UnauthorizedRoleError{Role: role, Requested: requested}
		}
	}

	return UnauthorizedRoleError{Role: role, Requested: requested}
}

// NewTrackingEntry builds the audit record appended on every transition.
func NewTrackingEntry(status models.OrderStatus, notes string, location *models.GeoPoint) models.TrackingEntry {
	return models.TrackingEntry{
		Status:    status,
		Timestamp: time.Now(),
		Notes:     notes,
		Location:  location,
	}
}
