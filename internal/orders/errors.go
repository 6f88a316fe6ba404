package orders

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/internal/models"
)

// InvalidTransitionError is returned when the requested status change is not
// legal from the order's current status. Current lets the caller explain why.
type InvalidTransitionError struct {
	Current   models.OrderStatus
	Requested models.OrderStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.Current, e.Requested)
}

// UnauthorizedRoleError is returned when the acting role is not permitted to
// request the transition at all, regardless of the order's current status.
type UnauthorizedRoleError struct {
	Role      models.Role
	Requested models.OrderStatus
}

func (e UnauthorizedRoleError) Error() string {
	return fmt.Sprintf("role %q may not set status %q", e.Role, e.Requested)
}

// InsufficientStockError reports a failed stock floor check at checkout.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return "product out of stock"
}

// ProductNotFoundError reports an unknown or deleted product at checkout.
type ProductNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e ProductNotFoundError) Error() string {
	return "product not found"
}
