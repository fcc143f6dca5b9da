// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/app/handlers"
	"github.com/revendapro/zap-dispatcher/app/middleware"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app               *fiber.App
	cfg               config.ServerConfig
	metricsCfg        config.MetricsConfig
	connectionHandler handlers.ConnectionHandlerInterface
	templateHandler   handlers.TemplateHandlerInterface
	contactHandler    handlers.ContactHandlerInterface
	campaignHandler   handlers.CampaignHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg config.ServerConfig,
	metricsCfg config.MetricsConfig,
	connectionHandler handlers.ConnectionHandlerInterface,
	templateHandler handlers.TemplateHandlerInterface,
	contactHandler handlers.ContactHandlerInterface,
	campaignHandler handlers.CampaignHandlerInterface,
) Router {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 16 * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:      "Zap Dispatcher API",
		ServerHeader: "zap-dispatcher",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:               app,
		cfg:               cfg,
		metricsCfg:        metricsCfg,
		connectionHandler: connectionHandler,
		templateHandler:   templateHandler,
		contactHandler:    contactHandler,
		campaignHandler:   campaignHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.metricsCfg.Enabled {
		path := r.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.cfg.GlobalRateLimit > 0 {
		window := r.cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		api.Use(limiter.New(limiter.Config{
			Max:        r.cfg.GlobalRateLimit,
			Expiration: window,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
					Success: false,
					Message: "Too many requests. Please try again later.",
					Error: dto.ErrorDetail{
						Code: "RATE_LIMIT_EXCEEDED",
					},
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health"
			},
		}))
	}

	connections := api.Group("/connections")
	connections.Post("/", r.connectionHandler.CreateConnection)
	connections.Get("/", r.connectionHandler.ListConnections)
	connections.Get("/:id", r.connectionHandler.GetConnection)
	connections.Put("/:id", r.connectionHandler.UpdateConnection)
	connections.Delete("/:id", r.connectionHandler.DeleteConnection)
	connections.Post("/:id/connect", r.connectionHandler.Connect)
	connections.Post("/:id/disconnect", r.connectionHandler.Disconnect)
	connections.Post("/:id/messages", r.connectionHandler.SendMessage)
	connections.Get("/:id/messages", r.connectionHandler.ListMessages)
	connections.Post("/:id/check-number", r.connectionHandler.CheckNumber)

	templates := api.Group("/templates")
	templates.Post("/", r.templateHandler.CreateTemplate)
	templates.Get("/", r.templateHandler.ListTemplates)
	templates.Get("/:id", r.templateHandler.GetTemplate)
	templates.Put("/:id", r.templateHandler.UpdateTemplate)
	templates.Delete("/:id", r.templateHandler.DeleteTemplate)

	contacts := api.Group("/contacts")
	contacts.Post("/", r.contactHandler.CreateContact)
	contacts.Get("/", r.contactHandler.ListContacts)
	contacts.Get("/:id", r.contactHandler.GetContact)
	contacts.Put("/:id", r.contactHandler.UpdateContact)
	contacts.Delete("/:id", r.contactHandler.DeleteContact)

	campaigns := api.Group("/campaigns")
	campaigns.Post("/", r.campaignHandler.CreateCampaign)
	campaigns.Get("/", r.campaignHandler.ListCampaigns)
	campaigns.Get("/:id", r.campaignHandler.GetCampaign)
	campaigns.Post("/:id/cancel", r.campaignHandler.CancelCampaign)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	allowedOrigins := r.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
		},
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Structured access log
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.cfg.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "zap-dispatcher-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
