package orders

import (
	"errors"
	"testing"

	"farmlink/internal/models"
)

func TestBuyerMayOnlyCancelPending(t *testing.T) {
	if err := CanTransition(models.OrderPending, models.OrderCancelled, models.RoleBuyer); err != nil {
		t.Fatalf("expected buyer cancel of pending order to be allowed, got %v", err)
	}

	err := CanTransition(models.OrderOutForDelivery, models.OrderCancelled, models.RoleBuyer)
	var invalid InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError cancelling out_for_delivery order, got %v", err)
	}
	if invalid.Current != models.OrderOutForDelivery {
		t.Fatalf("expected error to carry current status, got %q", invalid.Current)
	}
}

func TestBuyerMayNotConfirm(t *testing.T) {
	err := CanTransition(models.OrderPending, models.OrderConfirmed, models.RoleBuyer)
	var unauthorized UnauthorizedRoleError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedRoleError, got %v", err)
	}
}

func TestFarmerForwardSkipAllowed(t *testing.T) {
	// pending straight to preparing in one call, skipping confirmed
	if err := CanTransition(models.OrderPending, models.OrderPreparing, models.RoleFarmer); err != nil {
		t.Fatalf("expected forward skip pending->preparing to be allowed, got %v", err)
	}
	if err := CanTransition(models.OrderPending, models.OrderReadyForPickup, models.RoleFarmer); err != nil {
		t.Fatalf("expected forward skip pending->ready_for_pickup to be allowed, got %v", err)
	}
}

func TestFarmerMayNotMoveBackwardsOrRepeat(t *testing.T) {
	cases := []struct {
		current   models.OrderStatus
		requested models.OrderStatus
	}{
		{models.OrderPreparing, models.OrderConfirmed},
		{models.OrderConfirmed, models.OrderConfirmed},
		{models.OrderReadyForPickup, models.OrderPreparing},
	}
	for _, tc := range cases {
		err := CanTransition(tc.current, tc.requested, models.RoleFarmer)
		var invalid InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError for %s->%s, got %v", tc.current, tc.requested, err)
		}
	}
}

func TestFarmerMayNotDispatchOrDeliver(t *testing.T) {
	for _, requested := range []models.OrderStatus{models.OrderOutForDelivery, models.OrderDelivered, models.OrderPending} {
		err := CanTransition(models.OrderReadyForPickup, requested, models.RoleFarmer)
		var unauthorized UnauthorizedRoleError
		if !errors.As(err, &unauthorized) {
			t.Fatalf("expected UnauthorizedRoleError for farmer->%s, got %v", requested, err)
		}
	}
}

func TestDriverEdges(t *testing.T) {
	if err := CanTransition(models.OrderReadyForPickup, models.OrderOutForDelivery, models.RoleDriver); err != nil {
		t.Fatalf("expected driver accept edge to be allowed, got %v", err)
	}
	if err := CanTransition(models.OrderOutForDelivery, models.OrderDelivered, models.RoleDriver); err != nil {
		t.Fatalf("expected driver deliver edge to be allowed, got %v", err)
	}

	err := CanTransition(models.OrderPending, models.OrderOutForDelivery, models.RoleDriver)
	var invalid InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError for premature dispatch, got %v", err)
	}

	err = CanTransition(models.OrderOutForDelivery, models.OrderConfirmed, models.RoleDriver)
	var unauthorized UnauthorizedRoleError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedRoleError for driver->confirmed, got %v", err)
	}
}

func TestTerminalStatusesRejectAllTransitions(t *testing.T) {
	terminals := []models.OrderStatus{models.OrderDelivered, models.OrderCancelled, models.OrderRefunded}
	roles := []models.Role{models.RoleBuyer, models.RoleFarmer, models.RoleDriver}

	for _, current := range terminals {
		for _, role := range roles {
			err := CanTransition(current, models.OrderConfirmed, role)
			var invalid InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidTransitionError from terminal %s as %s, got %v", current, role, err)
			}
			if invalid.Current != current {
				t.Fatalf("expected error to carry terminal status %s, got %s", current, invalid.Current)
			}
		}
	}
}

func TestNewTrackingEntryCarriesStatus(t *testing.T) {
	loc := &models.GeoPoint{Latitude: 41.01, Longitude: 28.97}
	entry := NewTrackingEntry(models.OrderPreparing, "started packing", loc)

	if entry.Status != models.OrderPreparing {
		t.Fatalf("expected status preparing, got %s", entry.Status)
	}
	if entry.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if entry.Notes != "started packing" || entry.Location != loc {
		t.Fatalf("expected notes and location to be preserved, got %+v", entry)
	}
}
