package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"drive-access-service/internal/config"
	"drive-access-service/internal/database/mongo"
	"drive-access-service/internal/database/redis"
	"drive-access-service/internal/event"
	"drive-access-service/internal/gateway"
	"drive-access-service/internal/handlers"
	"drive-access-service/internal/middleware"
	"drive-access-service/internal/repository"
	"drive-access-service/internal/scheduler"
	"drive-access-service/internal/services"
	"drive-access-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "drive_access_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	if err := mongo.InitMongoDB(&cfg.MongoDB); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := redis.InitRedis(&cfg.Redis); err != nil {
		log.Printf("Warning: Failed to connect to Redis, caching disabled: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Drive Access Service is healthy")
	})

	// Initialize repositories
	grantRepo := repository.NewGrantRepository(mongo.Database, cfg.Expiry.SweepPageSize)
	adminRepo := repository.NewAdminRepository(mongo.Database)
	auditRepo := repository.NewAuditRepository(mongo.Database)

	// Create database indexes and seed configured admins
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := grantRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create grant indexes: %v", err)
	}
	if err := adminRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create admin indexes: %v", err)
	}
	if err := auditRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create audit indexes: %v", err)
	}
	if err := adminRepo.Bootstrap(ctx, cfg.AdminIDs); err != nil {
		log.Printf("Warning: Failed to bootstrap admins: %v", err)
	}
	cancel()

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher, events disabled: %v", err)
		eventPublisher, _ = event.NewEventPublisher("", cfg.RabbitMQ.Exchange)
	}

	// Initialize Drive gateway
	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 30*time.Second)
	driveGateway, err := gateway.NewDriveGateway(gatewayCtx, &cfg.Drive)
	gatewayCancel()
	if err != nil {
		log.Fatalf("Failed to initialize Drive gateway: %v", err)
	}

	// Initialize services
	grantService := services.NewGrantService(grantRepo, driveGateway, auditRepo, eventPublisher)
	folderService := services.NewFolderService(driveGateway, redis.Client, cfg.Redis.FolderCacheTTL)

	// Start the expiry scheduler
	expiryScheduler := scheduler.NewScheduler(grantService, cfg.Expiry)
	if err := expiryScheduler.Start(); err != nil {
		log.Fatalf("Failed to start expiry scheduler: %v", err)
	}

	// Initialize and register handlers
	adminGate := middleware.RequireAdmin(adminRepo, redis.Client, cfg.Redis.AdminCacheTTL)
	grantHandler := handlers.NewGrantHandler(grantService, grantRepo, cfg.Expiry.BulkImportTTL, adminGate)
	grantHandler.RegisterRoutes(app)
	folderHandler := handlers.NewFolderHandler(folderService, adminGate)
	folderHandler.RegisterRoutes(app)
	adminHandler := handlers.NewAdminHandler(adminRepo, auditRepo, adminGate)
	adminHandler.RegisterRoutes(app)

	// Register with service discovery
	serviceRegistry, err := discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Printf("Warning: Failed to create service registry: %v", err)
	} else if err := serviceRegistry.Register(); err != nil {
		log.Printf("Warning: Failed to register with Consul: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Stop the scheduler and wait for a running sweep to finish
	expiryScheduler.Stop()

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Deregister from service discovery
	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	redis.CloseRedis()
	mongo.CloseDB()

	<-doneChan
	log.Println("Server shutdown complete")
}
