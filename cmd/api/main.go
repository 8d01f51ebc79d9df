package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/auth"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/barter"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/cache"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/config"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/events"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/handlers"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/notifications"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
	"github.com/Juanes-crypto/grupo-agro-backend/pkg/logger"
	"github.com/Juanes-crypto/grupo-agro-backend/pkg/middleware"
)

// @title           AgroBarter API
// @version         1.0
// @description     Marketplace backend for agricultural barter: proposal lifecycle, counter-offers and atomic inventory exchange.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("Starting AgroBarter API",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("sqlite_path", cfg.SQLitePath),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Authoritative store
	db, err := repository.Open(cfg.SQLitePath)
	if err != nil {
		appLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	proposalRepo := repository.NewProposalRepository(db)

	// Event publisher: Kafka with in-memory fallback
	var publisher events.Publisher
	if cfg.UseKafka {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka publisher, using in-memory fallback", zap.Error(err))
			publisher = events.NewInMemoryPublisher(appLogger)
		} else {
			defer kafkaPublisher.Close()
			publisher = kafkaPublisher
		}
	} else {
		publisher = events.NewInMemoryPublisher(appLogger)
	}

	// Notification side channel: Mongo, disabled falls back to a no-op
	var dispatcher notifications.Dispatcher = notifications.NopDispatcher{}
	if cfg.UseNotifications {
		mongoCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err == nil {
			err = mongoClient.Ping(mongoCtx, nil)
		}
		cancel()
		if err != nil {
			appLogger.Warn("Failed to connect to MongoDB, notifications disabled", zap.Error(err))
		} else {
			defer mongoClient.Disconnect(context.Background())
			dispatcher = notifications.NewMongoDispatcher(mongoClient, cfg.MongoDatabase, appLogger)
			appLogger.Info("MongoDB notification store initialized", zap.String("database", cfg.MongoDatabase))
		}
	}

	// Read cache: Redis with in-memory fallback
	var appCache cache.Cache
	if cfg.UseCache {
		appCache = cache.NewCache(cfg, appLogger)
	} else {
		appCache = cache.NewInMemoryCache(appLogger)
	}

	exchanger := barter.NewExecutor(db, appLogger)
	barterService := barter.NewService(proposalRepo, productRepo, userRepo, exchanger,
		publisher, dispatcher, appCache, cfg, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)

	authHandler := handlers.NewAuthHandler(userRepo, jwtManager, appLogger)
	productHandler := handlers.NewProductHandler(productRepo, appCache, cfg, appLogger)
	barterHandler := handlers.NewBarterHandler(barterService, appLogger)
	notificationHandler := handlers.NewNotificationHandler(dispatcher, appLogger)

	router := gin.New()

	// CORS first so preflight requests never hit auth
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware(appLogger))

	requestIDStore := middleware.NewInMemoryRequestIDStore()
	router.Use(middleware.IdempotencyMiddleware(requestIDStore, appLogger, 5*time.Minute))
	router.Use(middleware.ErrorHandler(appLogger))
	router.Use(middleware.StoreResponseMiddleware(requestIDStore, appLogger, 5*time.Minute))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		{
			products := protected.Group("/products")
			{
				products.POST("", productHandler.Create)
				products.GET("/mine", productHandler.ListMine)
				products.GET("/:id", productHandler.Get)
				products.PUT("/:id", productHandler.Update)
			}

			barterGroup := protected.Group("/barter")
			{
				barterGroup.POST("", barterHandler.Create)
				barterGroup.GET("/myproposals", barterHandler.ListMine)
				barterGroup.GET("/:id", barterHandler.Get)
				barterGroup.GET("/value-comparison", barterHandler.CompareProducts)
				barterGroup.GET("/:id/value-comparison", barterHandler.ValueComparison)
				barterGroup.PUT("/:id/status", barterHandler.UpdateStatus)
				barterGroup.PUT("/:id/cancel", barterHandler.Cancel)
				barterGroup.POST("/:id/counter", barterHandler.Counter)
				barterGroup.PUT("/:id/counter/accept", barterHandler.AcceptCounter)
				barterGroup.PUT("/:id/counter/reject", barterHandler.RejectCounter)
			}

			notificationsGroup := protected.Group("/notifications")
			{
				notificationsGroup.GET("", notificationHandler.List)
				notificationsGroup.PUT("/:id/read", notificationHandler.MarkRead)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Listening",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// healthCheck godoc
// @Summary      Health check endpoint
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "agrobarter-api",
	})
}
