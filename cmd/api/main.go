package main

import (
	"fmt"
	"net/http"
	"os"
	"sentinel/internal/config"
	"sentinel/internal/database"
	"sentinel/internal/handlers"
	"sentinel/internal/logger"
	"sentinel/internal/middleware"
	"sentinel/internal/notify"
	"sentinel/internal/services"
	"sentinel/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "sentinel/internal/docs" // Import swagger docs
)

// @title           Sentinel API
// @version         1.0
// @description     Sentinel is a household budget watchdog that tracks category spending, classifies overspend risk, and recommends corrective actions.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Alert change notifier (no-op unless AMQP is configured)
	var notifier notify.Notifier = notify.Nop{}
	if appConfig.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
		log.Infow("Alert publishing enabled", "exchange", appConfig.AMQPExchange, "queue", appConfig.AMQPQueue)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	periodService := services.NewPeriodService(db)
	ledgerService := services.NewLedgerService(db, notifier)
	alertService := services.NewAlertService(db, notifier)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	periodHandler := handlers.NewPeriodHandler(periodService, auditService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, auditService)
	alertHandler := handlers.NewAlertHandler(alertService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)

	// Period routes
	periods := protected.Group("/periods")
	periods.POST("", periodHandler.CreatePeriod)
	periods.GET("", periodHandler.GetPeriods)
	periods.GET("/:id", periodHandler.GetPeriod)
	periods.POST("/:id/archive", periodHandler.ArchivePeriod)
	periods.POST("/:id/rollover", periodHandler.RolloverPeriod)
	periods.POST("/:id/unlock", periodHandler.UnlockCategory)

	// Ledger routes
	periods.POST("/:id/transactions", ledgerHandler.RecordTransaction)
	periods.GET("/:id/transactions", ledgerHandler.GetTransactions)
	periods.POST("/:id/reversals", ledgerHandler.ReverseTransaction)
	periods.GET("/:id/remaining", ledgerHandler.GetRemaining)
	periods.GET("/:id/allowance", ledgerHandler.GetDailyAllowance)

	// Alert routes
	periods.GET("/:id/alert", alertHandler.GetAlert)
	periods.POST("/:id/evaluate", alertHandler.Evaluate)
	periods.POST("/:id/advice", alertHandler.Advise)

	log.Infof("Starting Sentinel backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
