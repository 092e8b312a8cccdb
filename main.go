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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/cart"
	"github.com/bladi23/ImportadoraSonib/catalog"
	"github.com/bladi23/ImportadoraSonib/database"
	"github.com/bladi23/ImportadoraSonib/handlers"
	"github.com/bladi23/ImportadoraSonib/identity"
	"github.com/bladi23/ImportadoraSonib/kafka"
	"github.com/bladi23/ImportadoraSonib/middleware"
	"github.com/bladi23/ImportadoraSonib/orders"
	"github.com/bladi23/ImportadoraSonib/reco"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Seed(db, logger); err != nil {
		logger.Fatal("Failed to seed database", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := catalog.InitRedis(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer for order notifications
	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	go func() {
		if err := kafka.StartConsumer(consumer, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("importadora-sonib")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	// Wire the domain services
	tracker := reco.NewTracker(db, logger)
	tracker.Start()
	defer tracker.Stop()

	stamp := catalog.NewStamp()
	cache := catalog.NewCache(redisClient, logger)
	catalogSvc := catalog.NewService(db, cache, stamp, logger)
	cartStore := cart.NewStore(db, logger)
	orderEngine := orders.NewEngine(db, tracker, stamp, logger)
	recoSvc := reco.NewService(db, logger)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("importadora-sonib"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(identity.Middleware())

	router.GET("/health", handlers.Health(db))
	router.GET("/metrics", middleware.PrometheusHandler())

	productHandler := handlers.NewProductHandler(catalogSvc, logger)
	cartHandler := handlers.NewCartHandler(cartStore, catalogSvc, tracker, logger)
	orderHandler := handlers.NewOrderHandler(orderEngine, producer, logger)
	paymentHandler := handlers.NewPaymentHandler(orderEngine, producer, logger)
	recoHandler := handlers.NewRecoHandler(recoSvc, logger)

	api := router.Group("/api")
	{
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
		api.GET("/products/by-slug/:slug", productHandler.GetProductBySlug)

		api.GET("/cartitems", cartHandler.GetCart)
		api.POST("/cartitems", cartHandler.AddItem)
		api.DELETE("/cartitems/:productId", cartHandler.RemoveItem)

		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders/:id", orderHandler.GetOrder)

		api.POST("/payments/demo/create-session", paymentHandler.CreateSession)
		api.POST("/payments/demo/confirm", paymentHandler.Confirm)
		api.GET("/payments/order/:orderId", paymentHandler.GetPaymentStatus)

		api.GET("/reco/popular", recoHandler.Popular)
		api.GET("/reco/also-bought/:productId", recoHandler.AlsoBought)
		api.GET("/reco/popular-in-category/:categoryId", recoHandler.PopularInCategory)
	}

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Importadora Sonib API started", zap.String("addr", srv.Addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
