package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"farmlink/internal/config"
	"farmlink/internal/database"
	"farmlink/internal/handlers"
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/notify"
	"farmlink/internal/realtime"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}
	if err := database.EnsureDriverIndexes(db); err != nil {
		log.Printf("⚠️ driver index warning: %v", err)
	}
	if err := database.EnsureNotificationIndexes(db); err != nil {
		log.Printf("⚠️ notification index warning: %v", err)
	}
	if err := database.EnsureMessageIndexes(db); err != nil {
		log.Printf("⚠️ message index warning: %v", err)
	}

	registry := realtime.NewRegistry()
	notifier := notify.NewService(db, registry, config.AppEnv.NotificationTTL)

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/ws", handlers.Connect(registry, config.AppEnv.JWTSecret, config.AppEnv.HeartbeatTimeout))

	auth := r.Group("/")
	auth.Use(middleware.Auth(config.AppEnv.JWTSecret))
	{
		auth.GET("/orders", handlers.ListOrders(db))
		auth.GET("/orders/:id", handlers.GetOrder(db))
		auth.GET("/orders/:id/tracking", handlers.GetOrderTracking(db))

		auth.GET("/notifications", handlers.ListNotifications(notifier))
		auth.POST("/notifications/:id/read", handlers.MarkNotificationRead(notifier))
		auth.POST("/notifications/read-all", handlers.MarkAllNotificationsRead(notifier))

		auth.GET("/messages", handlers.GetChatList(notifier))
		auth.GET("/messages/:userId", handlers.GetConversation(notifier))
		auth.POST("/messages", handlers.SendMessage(notifier))
		auth.DELETE("/messages/:id", handlers.DeleteMessage(notifier))
	}

	buyer := r.Group("/")
	buyer.Use(middleware.Auth(config.AppEnv.JWTSecret), middleware.RequireRole(models.RoleBuyer))
	{
		buyer.POST("/orders", handlers.CreateOrder(db, notifier, config.AppEnv.DeliveryFee, config.AppEnv.TaxRate))
		buyer.POST("/orders/:id/cancel", handlers.CancelOrder(db, notifier))
	}

	farmer := r.Group("/")
	farmer.Use(middleware.Auth(config.AppEnv.JWTSecret), middleware.RequireRole(models.RoleFarmer))
	{
		farmer.POST("/products", handlers.CreateProduct(db))
		farmer.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(db, notifier))
	}

	driver := r.Group("/driver")
	driver.Use(middleware.Auth(config.AppEnv.JWTSecret), middleware.RequireRole(models.RoleDriver))
	{
		driver.GET("/orders/available", handlers.AvailableOrders(db))
		driver.POST("/orders/:id/respond", handlers.DriverRespond(db, notifier))
		driver.POST("/orders/:id/pickup", handlers.ConfirmPickup(db))
		driver.POST("/orders/:id/deliver", handlers.ConfirmDelivery(db, notifier))
		driver.POST("/location", handlers.UpdateDriverLocation(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
