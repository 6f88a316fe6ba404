package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/dispatch"
	"farmlink/internal/models"
	"farmlink/internal/orders"
)

type driverRespondRequest struct {
	Action string `json:"action" binding:"required"`
}

type locationUpdateRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// AvailableOrders lists the unassigned ready_for_pickup pool.
func AvailableOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /driver/orders/available"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pool, err := dispatch.AvailableOrders(ctx, db)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, pool)
	}
}

// DriverRespond handles a driver's accept or reject of a delivery. Exactly
// one of two racing accepts wins; the loser gets a 409 with the reason.
func DriverRespond(db *mongo.Database, notifier orders.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /driver/orders/:id/respond"
		defer handlePanic(c, route)

		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		var req driverRespondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Action != "accept" && req.Action != "reject" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be accept or reject"})
			return
		}

		userID, _ := currentUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		driver, err := driverForUser(ctx, db, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "driver profile not found"})
			return
		}

		var order *models.Order
		if req.Action == "accept" {
			order, err = dispatch.Accept(ctx, db, notifier, orderID, driver)
		} else {
			order, err = dispatch.Reject(ctx, db, notifier, orderID, driver)
		}
		if err != nil {
			respondDispatchError(c, route, err)
			return
		}

		log.Printf("[DISPATCH] [INFO] driver %s %sed order %s", driver.ID.Hex(), req.Action, order.OrderNumber)
		c.JSON(http.StatusOK, order)
	}
}

// ConfirmPickup stamps the pickup time on the driver's active order.
func ConfirmPickup(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /driver/orders/:id/pickup"
		defer handlePanic(c, route)

		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		userID, _ := currentUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		driver, err := driverForUser(ctx, db, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "driver profile not found"})
			return
		}

		order, err := dispatch.ConfirmPickup(ctx, db, orderID, driver.ID)
		if err != nil {
			respondDispatchError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// ConfirmDelivery completes the delivery through the order state machine.
func ConfirmDelivery(db *mongo.Database, notifier orders.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /driver/orders/:id/deliver"
		defer handlePanic(c, route)

		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		var req struct {
			Location *models.GeoPoint `json:"location"`
		}
		_ = c.ShouldBindJSON(&req)

		userID, _ := currentUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		driver, err := driverForUser(ctx, db, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "driver profile not found"})
			return
		}

		order, err := dispatch.Deliver(ctx, db, notifier, orderID, driver.ID, req.Location)
		if err != nil {
			respondDispatchError(c, route, err)
			return
		}

		log.Println("[DISPATCH] [INFO] order delivered:", order.OrderNumber)
		c.JSON(http.StatusOK, order)
	}
}

// UpdateDriverLocation records a periodic position report from the driver.
func UpdateDriverLocation(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /driver/location"
		defer handlePanic(c, route)

		var req locationUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
			return
		}

		userID, _ := currentUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		driver, err := driverForUser(ctx, db, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "driver profile not found"})
			return
		}

		loc := models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
		if err := dispatch.UpdateLocation(ctx, db, driver.ID, loc); err != nil {
			respondDispatchError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "location updated"})
	}
}

func respondDispatchError(c *gin.Context, route string, err error) {
	var assigned dispatch.AlreadyAssignedError
	if errors.As(err, &assigned) {
		c.JSON(http.StatusConflict, gin.H{"error": "order already assigned"})
		return
	}
	var inconsistent dispatch.InconsistencyError
	if errors.As(err, &inconsistent) {
		// Partial dispatch effect; operators must reconcile. Loud on purpose.
		respondWithError(c, http.StatusInternalServerError, route, inconsistent.Error())
		return
	}
	switch {
	case errors.Is(err, dispatch.ErrDriverUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, dispatch.ErrNotAssigned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		respondTransitionError(c, route, err)
	}
}
