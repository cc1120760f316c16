// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Klienn77/pos-vendas-ecommerce/config"
	"github.com/Klienn77/pos-vendas-ecommerce/database"
	"github.com/Klienn77/pos-vendas-ecommerce/handlers"
	"github.com/Klienn77/pos-vendas-ecommerce/middleware"
	"github.com/Klienn77/pos-vendas-ecommerce/store"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Load()

	// --- Initialize MongoDB (events, products, users, orders) ---
	dbClient, err := database.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	defer dbClient.Close()

	if err := utils.EnsureDir(cfg.UploadDir); err != nil {
		log.Fatalf("Failed to create upload directory %s: %v", cfg.UploadDir, err)
	}

	// --- Initialize Stores ---
	eventStore := store.NewEventStore(dbClient)
	productStore := store.NewProductStore(dbClient)
	userStore := store.NewUserStore(dbClient)
	orderStore := store.NewOrderStore(dbClient)

	liveStats := store.NewLiveStatsSource(eventStore, productStore, orderStore)
	fixtureStats := store.NewFixtureStatsSource(cfg.FixturePath, 0)

	var primary handlers.StatsSource = liveStats
	if cfg.StatsSource == "fixture" {
		log.Println("Serving statistics from the fixture source.")
		primary = fixtureStats
	}

	// --- Initialize Handlers ---
	logHandlers := handlers.NewLogHandlers(eventStore)
	statsHandlers := handlers.NewStatsHandlers(eventStore, primary, fixtureStats)
	productHandlers := handlers.NewProductHandlers(productStore, cfg.UploadDir)
	orderHandlers := handlers.NewOrderHandlers(orderStore)
	userHandlers := handlers.NewUserHandlers(userStore)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}))
	r.Use(middleware.CORSMiddleware())

	// Processed product images are served directly.
	r.Static("/uploads", cfg.UploadDir)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := dbClient.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Store unreachable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
		})

		// Ingestion is open: the storefront logs without credentials.
		logs := api.Group("/logs")
		{
			logs.POST("/event", logHandlers.IngestEvent)
			logs.POST("/batch", logHandlers.IngestBatch)
		}
		logsAdmin := api.Group("/logs")
		logsAdmin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			logsAdmin.GET("/events/:type", logHandlers.EventsByType)
			logsAdmin.GET("/counts", logHandlers.EventCounts)
			logsAdmin.GET("/most-viewed", logHandlers.MostViewed)
			logsAdmin.GET("/funnel", logHandlers.Funnel)
		}

		stats := api.Group("/stats")
		stats.GET("/public", statsHandlers.PublicStats)
		statsAdmin := api.Group("/stats")
		statsAdmin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			statsAdmin.GET("/overview", statsHandlers.Overview)
			statsAdmin.GET("/dashboard", statsHandlers.Dashboard)
			statsAdmin.GET("/trends", statsHandlers.Trends)
		}

		admin := api.Group("/admin")
		{
			users := admin.Group("/users")
			{
				users.POST("/login", userHandlers.Login)
				users.POST("/logout", userHandlers.Logout)
			}
			usersAuth := admin.Group("/users")
			usersAuth.Use(middleware.AuthRequired())
			{
				usersAuth.GET("/profile", userHandlers.Profile)
				usersAuth.POST("/change-password", userHandlers.ChangePassword)
			}
			usersAdmin := admin.Group("/users")
			usersAdmin.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				usersAdmin.POST("/register", userHandlers.Register)
				usersAdmin.GET("", userHandlers.ListUsers)
				usersAdmin.GET("/:id", userHandlers.GetUser)
				usersAdmin.PUT("/:id", userHandlers.UpdateUser)
				usersAdmin.DELETE("/:id", userHandlers.DeleteUser)
			}

			products := admin.Group("/products")
			products.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				products.POST("", productHandlers.CreateProduct)
				products.GET("", productHandlers.ListProducts)
				products.GET("/:id", productHandlers.GetProduct)
				products.PUT("/:id", productHandlers.UpdateProduct)
				products.DELETE("/:id", productHandlers.DeleteProduct)
			}

			orders := admin.Group("/orders")
			orders.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				orders.POST("", orderHandlers.CreateOrder)
				orders.GET("", orderHandlers.ListOrders)
				orders.GET("/:id", orderHandlers.GetOrder)
				orders.PUT("/:id", orderHandlers.UpdateOrder)
				orders.DELETE("/:id", orderHandlers.DeleteOrder)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Post-sale analytics API starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
