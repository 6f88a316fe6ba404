package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/models"
)

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" binding:"required"`
	Unit        string  `json:"unit" binding:"required"`
	Stock       int     `json:"stock" binding:"required"`
}

// CreateProduct lets a farmer list a product for sale.
func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		farmerID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Price <= 0 || req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive and stock non-negative"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product := models.Product{
			FarmerID:    farmerID,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Category:    strings.TrimSpace(req.Category),
			Price:       req.Price,
			Unit:        strings.TrimSpace(req.Unit),
			Stock:       req.Stock,
			IsActive:    true,
			CreatedAt:   time.Now(),
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}
		product.InStock = product.Stock > 0

		c.JSON(http.StatusCreated, product)
	}
}

// GetProducts lists active products, optionally filtered by farmer.
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{
			"isActive":  true,
			"isDeleted": bson.M{"$ne": true},
		}
		if farmer := strings.TrimSpace(c.Query("farmerId")); farmer != "" {
			farmerID, err := primitive.ObjectIDFromHex(farmer)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farmerId"})
				return
			}
			filter["farmerId"] = farmerID
		}

		cursor, err := db.Collection("products").Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "products could not be fetched"})
			return
		}
		defer cursor.Close(ctx)

		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse products"})
			return
		}
		for i := range products {
			products[i].InStock = products[i].Stock > 0
		}

		c.JSON(http.StatusOK, products)
	}
}
