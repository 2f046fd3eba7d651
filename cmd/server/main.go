package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mkoval/runcoach-app/internal/api"
	"mkoval/runcoach-app/internal/auth"
	"mkoval/runcoach-app/internal/config"
	"mkoval/runcoach-app/internal/repository/mongo"
	"mkoval/runcoach-app/internal/service"
	"mkoval/runcoach-app/internal/storage"
	"mkoval/runcoach-app/internal/strava"
)

// @title Running Coach API
// @version 1.0
// @description API for coaches and runners: training plans, schedules and Strava activity sync.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Running Coach Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	// The unique indexes back the conditional writes (duplicate email,
	// duplicate week day, duplicate activity), so they must exist before
	// traffic arrives.
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureTrainingPlanIndexes(ctx, appDB.Collection("training_plans"))
		mongo.EnsureTrainingDayIndexes(ctx, appDB.Collection("training_days"))
		mongo.EnsureConnectionIndexes(ctx, appDB.Collection("strava_connections"))
		mongo.EnsureActivityIndexes(ctx, appDB.Collection("strava_activities"))
		mongo.EnsureTaskIndexes(ctx, appDB.Collection("tasks"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing payload archive...")
	archive, err := storage.NewS3Archive(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 archive: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	planRepo := mongo.NewMongoTrainingPlanRepository(appDB)
	dayRepo := mongo.NewMongoTrainingDayRepository(appDB)
	connRepo := mongo.NewMongoConnectionRepository(appDB)
	activityRepo := mongo.NewMongoActivityRepository(appDB)
	taskRepo := mongo.NewMongoTaskRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiration)
	stravaClient := strava.NewClient(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.RedirectURL)

	authService := service.NewAuthService(userRepo, jwtService)
	planService := service.NewPlanService(planRepo, dayRepo, userRepo)
	stravaService := service.NewStravaService(
		stravaClient, connRepo, activityRepo, userRepo, archive,
		cfg.Strava.StateSecret, cfg.Strava.StateTTL, cfg.Strava.WebhookVerifyToken,
	)
	taskService := service.NewTaskService(taskRepo)

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, authService, planService, stravaService, taskService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
