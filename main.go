// Package main provides the main entry point for the zap-dispatcher messaging service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dispatcher"
	"github.com/revendapro/zap-dispatcher/app/handlers"
	"github.com/revendapro/zap-dispatcher/app/router"
	"github.com/revendapro/zap-dispatcher/app/scheduler"
	"github.com/revendapro/zap-dispatcher/app/services"
	businessflow "github.com/revendapro/zap-dispatcher/business_flow"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.Config
	server    *fiber.App
	registry  *dispatcher.Registry
	stopFuncs []func()
}

func main() {
	log.Println("Starting zap-dispatcher...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Close live WhatsApp handles so queued state is not lost mid-send
	app.registry.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := db.AutoMigrate(
		&models.Connection{},
		&models.Template{},
		&models.Contact{},
		&models.Campaign{},
		&models.SentMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s:%d (db=%d)", cfg.Host, cfg.Port, cfg.DB)
	return rc, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.Config) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		log.Printf("Cache unavailable, continuing without it: %v", err)
		rc = nil
	}

	// Initialize repositories
	connectionRepo := repository.NewConnectionRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	contactRepo := repository.NewContactRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	sentMessageRepo := repository.NewSentMessageRepository(db)

	// Initialize services
	var cacheService services.CacheService
	if rc != nil {
		cacheService = services.NewRedisCacheService(rc, cfg.Cache)
	} else {
		cacheService = services.NewNoopCacheService()
	}
	eventStore := services.NewEventStore(connectionRepo, sentMessageRepo, campaignRepo, contactRepo, cacheService, log.Default())

	// Initialize dispatcher core
	registry := dispatcher.NewRegistry()

	// Initialize campaign engine
	engine := scheduler.NewCampaignEngine(
		campaignRepo,
		templateRepo,
		contactRepo,
		sentMessageRepo,
		&scheduler.RegistrySender{Registry: registry},
		db,
		cfg.Campaign.EngineInterval,
		cfg.Campaign,
		cfg.Logging,
	)

	// Initialize flows
	connectionFlow := businessflow.NewConnectionFlow(
		connectionRepo,
		sentMessageRepo,
		registry,
		eventStore,
		cacheService,
		cfg.WhatsApp,
		cfg.Dispatcher,
		db,
	)
	templateFlow := businessflow.NewTemplateFlow(templateRepo, db)
	contactFlow := businessflow.NewContactFlow(contactRepo, cfg.WhatsApp, db)
	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		templateRepo,
		contactRepo,
		connectionRepo,
		engine,
		db,
	)

	// Rebuild handles for connections that existed before this restart
	if err := connectionFlow.RestoreHandles(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to restore connection handles: %w", err)
	}

	stopEngine := engine.Start(context.Background())
	stopFuncs = append(stopFuncs, stopEngine)

	// Initialize handlers
	connectionHandler := handlers.NewConnectionHandler(connectionFlow)
	templateHandler := handlers.NewTemplateHandler(templateFlow)
	contactHandler := handlers.NewContactHandler(contactFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg.Server,
		cfg.Metrics,
		connectionHandler,
		templateHandler,
		contactHandler,
		campaignHandler,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		registry:  registry,
		stopFuncs: stopFuncs,
	}

	return application, nil
}
