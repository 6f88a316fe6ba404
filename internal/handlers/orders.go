package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/internal/models"
	"farmlink/internal/orders"
)

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" binding:"required"`
	DeliveryAddress string                   `json:"deliveryAddress" binding:"required"`
}

type updateStatusRequest struct {
	Status   string           `json:"status" binding:"required"`
	Notes    string           `json:"notes"`
	Location *models.GeoPoint `json:"location"`
}

// CreateOrder is buyer checkout: stock is reserved transactionally and the
// order starts its tracking history at pending. Farmers on the order are
// notified best-effort after the commit.
func CreateOrder(db *mongo.Database, notifier orders.Notifier, deliveryFee, taxRate float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		buyerID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		input := orders.CheckoutInput{
			BuyerID:         buyerID,
			DeliveryAddress: req.DeliveryAddress,
			DeliveryFee:     deliveryFee,
			TaxRate:         taxRate,
		}
		for _, item := range req.Items {
			productID, err := primitive.ObjectIDFromHex(item.ProductID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
				return
			}
			input.Items = append(input.Items, orders.CheckoutItem{
				ProductID: productID,
				Quantity:  item.Quantity,
			})
		}

		order, err := orders.Checkout(c.Request.Context(), db, input)
		if err != nil {
			var stockErr orders.InsufficientStockError
			if errors.As(err, &stockErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "insufficient stock",
					"productId": stockErr.ProductID.Hex(),
					"available": stockErr.Available,
					"requested": stockErr.Requested,
				})
				return
			}
			var notFoundErr orders.ProductNotFoundError
			if errors.As(err, &notFoundErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "product not found",
					"productId": notFoundErr.ProductID.Hex(),
				})
				return
			}
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if notifier != nil {
			o := *order
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := notifier.OrderStatusChanged(ctx, &o, models.RoleBuyer); err != nil {
					log.Printf("[NOTIFY] [WARN] order %s placement: %v", o.OrderNumber, err)
				}
			}()
		}

		log.Println("[ORDER] [INFO] order created:", order.OrderNumber)
		c.JSON(http.StatusCreated, order)
	}
}

// UpdateOrderStatus applies a farmer transition (confirm, prepare, ready,
// forward skips included). Driver transitions go through the dispatch
// routes, buyer cancellation through CancelOrder.
func UpdateOrderStatus(db *mongo.Database, notifier orders.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/status"
		defer handlePanic(c, route)

		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		userID, _ := currentUserID(c)
		role := currentRole(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if role == models.RoleFarmer {
			// The farmer must actually sell on the order.
			count, err := db.Collection("orders").CountDocuments(ctx, bson.M{
				"_id":            orderID,
				"items.farmerId": userID,
			})
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if count == 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "order does not include your products"})
				return
			}
		}

		order, err := orders.Transition(ctx, db, notifier, orderID,
			models.OrderStatus(req.Status), role, req.Notes, req.Location)
		if err != nil {
			respondTransitionError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// CancelOrder cancels a pending order and restores the reserved stock.
func CancelOrder(db *mongo.Database, notifier orders.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/cancel"
		defer handlePanic(c, route)

		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}
		buyerID, _ := currentUserID(c)

		var req struct {
			Notes string `json:"notes"`
		}
		_ = c.ShouldBindJSON(&req)

		order, err := orders.Cancel(c.Request.Context(), db, notifier, orderID, buyerID, req.Notes)
		if err != nil {
			respondTransitionError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order cancelled:", order.OrderNumber)
		c.JSON(http.StatusOK, order)
	}
}

// GetOrder returns one order the caller is a party to.
func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if !orderParty(c, db, &order) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// GetOrderTracking returns just the audit trail of an order.
func GetOrderTracking(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID},
			options.FindOne().SetProjection(bson.M{
				"tracking":    1,
				"status":      1,
				"orderNumber": 1,
				"buyerId":     1,
				"items":       1,
				"driver":      1,
			}),
		).Decode(&order)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if !orderParty(c, db, &order) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderNumber": order.OrderNumber,
			"status":      order.Status,
			"tracking":    order.Tracking,
			"driver":      order.Driver,
		})
	}
}

// ListOrders returns the caller's orders scoped by role: buyers see their
// purchases, farmers the orders containing their products, drivers their
// deliveries.
func ListOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"

		userID, _ := currentUserID(c)
		role := currentRole(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var filter bson.M
		switch role {
		case models.RoleBuyer:
			filter = bson.M{"buyerId": userID}
		case models.RoleFarmer:
			filter = bson.M{"items.farmerId": userID}
		case models.RoleDriver:
			driver, err := driverForUser(ctx, db, userID)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "driver profile not found"})
				return
			}
			filter = bson.M{"driver.driverId": driver.ID}
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		cursor, err := db.Collection("orders").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orderList := []models.Order{}
		if err := cursor.All(ctx, &orderList); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, orderList)
	}
}

// orderParty reports whether the caller participates in the order.
func orderParty(c *gin.Context, db *mongo.Database, order *models.Order) bool {
	userID, ok := currentUserID(c)
	if !ok {
		return false
	}

	switch currentRole(c) {
	case models.RoleBuyer:
		return order.BuyerID == userID
	case models.RoleFarmer:
		for _, item := range order.Items {
			if item.FarmerID == userID {
				return true
			}
		}
		return false
	case models.RoleDriver:
		if order.Driver.DriverID == nil {
			return false
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		driver, err := driverForUser(ctx, db, userID)
		return err == nil && *order.Driver.DriverID == driver.ID
	}
	return false
}

// respondTransitionError maps state machine failures onto specific HTTP
// responses so the client can explain why, not just that, a change failed.
func respondTransitionError(c *gin.Context, route string, err error) {
	var invalid orders.InvalidTransitionError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "invalid transition",
			"currentStatus": invalid.Current,
			"requested":     invalid.Requested,
		})
		return
	}
	var unauthorized orders.UnauthorizedRoleError
	if errors.As(err, &unauthorized) {
		c.JSON(http.StatusForbidden, gin.H{"error": unauthorized.Error()})
		return
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	respondWithError(c, http.StatusInternalServerError, route, "db error")
}
