package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/traceyhq/tracey/backend/internal/handlers"
	"github.com/traceyhq/tracey/backend/internal/middleware"
	"github.com/traceyhq/tracey/backend/internal/repositories"
	"github.com/traceyhq/tracey/backend/internal/services"
	"github.com/traceyhq/tracey/backend/pkg/config"
	"github.com/traceyhq/tracey/backend/pkg/email"
	"github.com/traceyhq/tracey/backend/pkg/firebase"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, mgClient *mongo.Client, fb *firebase.App) {
	db := mgClient.Database(cfg.MongoDatabase)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	itemRepo := repositories.NewMongoItemRepository(db)
	matchRepo := repositories.NewMongoMatchRepository(db)
	queueRepo := repositories.NewMongoQueueRepository(db)
	tokenRepo := repositories.NewMongoTokenRepository(db)
	userRepo := repositories.NewMongoUserRepository(db)

	// --- Initialize Services ---
	emailService := email.NewEmailService(cfg)
	fcmClient := firebase.NewFCMClient(fb.MessagingClient)
	tokenManager := services.NewTokenManager(tokenRepo, fcmClient)
	dispatcher := services.NewNotificationDispatcher(userRepo, matchRepo, queueRepo, tokenManager, emailService)
	matchEngine := services.NewMatchEngine(itemRepo, matchRepo, dispatcher)
	claimService := services.NewClaimService(itemRepo, matchRepo)
	searchService := services.NewSearchService(itemRepo)
	queueProcessor := services.NewQueueProcessor(queueRepo, matchRepo, userRepo, tokenManager, emailService)

	api := e.Group("/api/v1")

	// Item, matching and claim routes
	itemHandler := handlers.NewItemHandler(itemRepo, matchEngine, searchService)
	itemHandler.RegisterItemRoutes(api)
	log.Println("Item routes configured.")

	matchHandler := handlers.NewMatchHandler(matchRepo, claimService)
	matchHandler.RegisterMatchRoutes(api)
	log.Println("Match routes configured.")

	// Queue routes, guarded by the cron secret when one is set
	queueHandler := handlers.NewQueueHandler(queueProcessor, cfg.CronSecret)
	queueHandler.RegisterQueueRoutes(api)
	log.Println("Queue routes configured.")

	// Reporting and token registration require a verified Firebase ID token
	authed := e.Group("/api/v1")
	authed.Use(middleware.FirebaseAuthMiddleware(fb.AuthClient))
	itemHandler.RegisterReportRoutes(authed)
	fcmHandler := handlers.NewFCMHandler(tokenManager)
	fcmHandler.RegisterFCMRoutes(authed)
	log.Println("FCM routes configured.")

	log.Println("All routes configured.")
}
