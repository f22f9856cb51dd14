package main

import (
	"log"
	"net/http"

	"bookstore-service/cache"
	"bookstore-service/config"
	"bookstore-service/consumers"
	"bookstore-service/controllers"
	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
	"bookstore-service/rabbitmq"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := database.InitDB(); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer database.CloseDB()

	cfg := config.LoadConfig()

	// The analytics cache is optional; the service runs without Redis.
	if err := cache.ConnectRedis(cfg); err != nil {
		log.Printf("Warning: Redis unavailable, analytics cache disabled: %v", err)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
	}

	go consumers.StartOrderConsumer(rmq.Channel, cfg)

	controllers.SetRabbitMQ(rmq)

	r := gin.Default()

	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/auth/login", controllers.Login)

	// Storefront reads need no session.
	r.GET("/api/books", controllers.ListBooks)
	r.GET("/api/books/:id", controllers.GetBook)
	r.GET("/api/categories", controllers.ListCategories)

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.GET("/cart", controllers.GetCart)
		api.POST("/cart", controllers.AddToCart)
		api.DELETE("/cart/:book_id", controllers.RemoveFromCart)
		api.POST("/checkout", controllers.Checkout)
		api.GET("/orders", controllers.GetCustomerOrders)
		api.GET("/orders/:id", controllers.GetOrderDetails)
	}

	admin := api.Group("/admin")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.POST("/books", middlewares.RequirePermission(models.PermManageBooks), controllers.CreateBook)
		admin.PUT("/books/:id", middlewares.RequirePermission(models.PermManageBooks), controllers.UpdateBook)
		admin.DELETE("/books/:id", middlewares.RequirePermission(models.PermManageBooks), controllers.DeleteBook)
		admin.POST("/categories", middlewares.RequirePermission(models.PermManageBooks), controllers.CreateCategory)
		admin.PUT("/categories/:id", middlewares.RequirePermission(models.PermManageBooks), controllers.UpdateCategory)
		admin.DELETE("/categories/:id", middlewares.RequirePermission(models.PermManageBooks), controllers.DeleteCategory)

		admin.PUT("/orders/:id/status", middlewares.RequirePermission(models.PermManageOrders), controllers.AdminUpdateOrderStatus)
		admin.POST("/orders/update", middlewares.RequirePermission(models.PermManageOrders), controllers.BatchUpdateOrders)
		admin.POST("/orders/fix", middlewares.RequirePermission(models.PermManageOrders), controllers.FixAllOrders)
		admin.GET("/payments/:id", middlewares.RequirePermission(models.PermManageOrders), controllers.GetPayment)
		admin.POST("/payments/:id/process", middlewares.RequirePermission(models.PermManageOrders), controllers.ProcessPayment)

		admin.GET("/analytics/sales", middlewares.RequirePermission(models.PermViewReports), controllers.SalesSummary)

		admin.GET("/admins", middlewares.RequireSuperAdmin(), controllers.ListAdmins)
		admin.POST("/admins", middlewares.RequireSuperAdmin(), controllers.CreateAdmin)
		admin.PUT("/admins/:id/permissions", middlewares.RequireSuperAdmin(), controllers.UpdateAdminPermissions)
		admin.DELETE("/admins/:id", middlewares.RequireSuperAdmin(), controllers.DeleteAdmin)
	}

	r.POST("/dead-letter", controllers.HandleDeadLetter)

	log.Printf("Bookstore service starting on %s", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
