// server.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServer(cfg)
			return nil
		},
	}
}

func runServer(cfg *config.Config) {
	logx.Info("🚀 Starting TalentLedger API Server...")
	logx.Infof("Environment: %s", cfg.Server.Environment)

	// 1. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 2. Start background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "TalentLedger API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg),
		BodyLimit:             10 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// 4. Global Middleware
	setupMiddleware(app, cfg)

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(cfg))
	app.Get("/api/v1/docs", apiDocsHandler(cfg))

	// 6. Register Routes
	registerRoutes(app, container)

	// 7. 404 Handler
	app.Use(notFoundHandler)

	printRouteSummary()

	// 8. Start Server with Graceful Shutdown
	startServer(app, cfg, cancel)
}

// ============================================================================
// Setup Functions
// ============================================================================

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	// Panic recovery
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))

	// Request ID
	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	// CORS
	corsOrigins := "*"
	if len(cfg.Server.CORSOrigins) > 0 {
		corsOrigins = strings.Join(cfg.Server.CORSOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		AllowCredentials: corsOrigins != "*",
		ExposeHeaders:    "X-Request-ID",
	}))

	// Request logger
	logFormat := "${time} | ${status} | ${latency} | ${method} ${path}"
	if cfg.IsDevelopment() {
		logFormat += " | ${ip} | ${reqHeader:X-Request-ID}\n"
	} else {
		logFormat += "\n"
	}

	app.Use(logger.New(logger.Config{
		Format:     logFormat,
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))
}

func registerRoutes(app *fiber.App, container *Container) {
	logx.Info("📝 Registering routes...")

	api := app.Group("/api/v1")

	// Candidates & clients: /api/v1/candidates/*, /api/v1/clients
	container.CandidateHandlers.RegisterRoutes(api, container.AuthMiddleware)
	logx.Info("✓ Candidate routes registered")

	// Imports: /api/v1/imports/*
	container.ImportHandlers.RegisterRoutes(api, container.AuthMiddleware)
	logx.Info("✓ Import routes registered")

	// Assignments & talent: /api/v1/assignments/*, /api/v1/talents/*
	container.AssignmentHandlers.RegisterRoutes(api, container.AuthMiddleware)
	logx.Info("✓ Assignment routes registered")

	// Demand & hires: /api/v1/demand/*, /api/v1/hires/*
	container.DemandHandlers.RegisterRoutes(api, container.AuthMiddleware)
	logx.Info("✓ Demand routes registered")

	logx.Info("✅ All routes registered")
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler pings every backing store concurrently
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		checks := map[string]func(context.Context) error{
			"db": container.DB.PingContext,
			"redis": func(ctx context.Context) error {
				return container.Redis.Ping(ctx).Err()
			},
			"storage": container.FileSystem.Ping,
		}

		names := make([]string, 0, len(checks))
		errs := make([]error, len(checks))
		for name := range checks {
			names = append(names, name)
		}

		var g errgroup.Group
		for i, name := range names {
			i := i
			check := checks[name]
			g.Go(func() error {
				errs[i] = check(ctx)
				return nil
			})
		}
		_ = g.Wait()

		health := fiber.Map{
			"status":      "healthy",
			"service":     "talentledger-api",
			"environment": container.Config.Server.Environment,
			"timestamp":   time.Now().UTC().Unix(),
		}
		for i, name := range names {
			if errs[i] != nil {
				health[name] = "unhealthy"
				health[name+"_error"] = errs[i].Error()
				health["status"] = "degraded"
			} else {
				health[name] = "healthy"
			}
		}

		if container.Config.Scheduler.Enabled {
			jobs := make(fiber.Map)
			for _, job := range container.Scheduler.Jobs() {
				jobs[job.Name] = job.Spec
			}
			health["scheduled_jobs"] = jobs
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "TalentLedger API",
			"version":     "1.0.0",
			"description": "Recruitment pipeline consolidation and talent allocation ledger",
			"environment": cfg.Server.Environment,
			"data_source": cfg.Staffing.DataSource,
			"features": []string{
				"Spreadsheet candidate imports",
				"Candidate status workflow",
				"Talent allocation tracking",
				"Hire reconciliation against demand",
				"Scheduled integrity checks",
			},
			"endpoints": fiber.Map{
				"docs":   "/api/v1/docs",
				"health": "/health",
			},
		})
	}
}

// apiDocsHandler returns API documentation
func apiDocsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"api_version": "v1",
			"base_url":    cfg.Server.BaseURL,
			"endpoints": fiber.Map{
				"candidates": fiber.Map{
					"list":    "GET /api/v1/candidates",
					"get":     "GET /api/v1/candidates/:id",
					"history": "GET /api/v1/candidates/:id/history",
					"status":  "PUT /api/v1/candidates/:id/status",
					"clients": "GET /api/v1/clients",
				},
				"imports": fiber.Map{
					"stage":       "POST /api/v1/imports/stage",
					"stage_file":  "POST /api/v1/imports/stage-file",
					"stage_inbox": "POST /api/v1/imports/stage-inbox",
					"consolidate": "POST /api/v1/imports/consolidate",
					"status":      "GET /api/v1/imports/status",
				},
				"assignments": fiber.Map{
					"create":          "POST /api/v1/assignments",
					"get":             "GET /api/v1/assignments/:id",
					"update":          "PUT /api/v1/assignments/:id",
					"delete":          "DELETE /api/v1/assignments/:id",
					"validate":        "GET /api/v1/assignments/validate",
					"reconcile":       "POST /api/v1/assignments/reconcile",
					"integrity_check": "POST /api/v1/assignments/integrity-check",
					"integrity_log":   "GET /api/v1/assignments/integrity-log",
					"talent":          "GET /api/v1/talents/:id",
					"talent_sync":     "POST /api/v1/talents/:id/sync",
				},
				"demand": fiber.Map{
					"open":       "GET /api/v1/demand/open?client_id=...",
					"hire":       "POST /api/v1/hires",
					"hire_batch": "POST /api/v1/hires/batch",
				},
			},
			"authentication": fiber.Map{
				"types": []string{"JWT"},
				"headers": fiber.Map{
					"jwt":    "Authorization: Bearer <jwt_token>",
					"cookie": "Cookie: access_token=<jwt_token>",
				},
				"access_token_ttl": cfg.Auth.JWT.AccessTokenTTL.String(),
			},
			"scopes": scopeCatalog(),
			"scheduler": fiber.Map{
				"enabled":    cfg.Scheduler.Enabled,
				"import":     cfg.Scheduler.ImportSpec,
				"hire_sweep": cfg.Scheduler.HireSweepSpec,
				"integrity":  cfg.Scheduler.IntegritySpec,
				"retention":  cfg.Scheduler.RetentionSpec,
			},
		})
	}
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist. Visit /api/v1/docs for documentation.",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"request_id": c.Get("X-Request-ID"),
		}).Errorf("Request error: %v", err)

		if e, ok := err.(*fiber.Error); ok {
			return c.Status(e.Code).JSON(fiber.Map{
				"error":      e.Message,
				"code":       "FIBER_ERROR",
				"status":     e.Code,
				"request_id": c.Get("X-Request-ID"),
			})
		}

		if e, ok := errx.As(err); ok {
			response := fiber.Map{
				"error":      e.Message,
				"code":       e.Code,
				"type":       string(e.Type),
				"status":     e.HTTPStatus,
				"request_id": c.Get("X-Request-ID"),
			}

			if len(e.Details) > 0 {
				response["details"] = e.Details
			}

			if cfg.IsDevelopment() && e.Err != nil {
				response["underlying_error"] = e.Err.Error()
			}

			return c.Status(e.HTTPStatus).JSON(response)
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "Internal Server Error",
			"type":       "INTERNAL",
			"code":       "INTERNAL_ERROR",
			"message":    "An unexpected error occurred. Please contact support if the issue persists.",
			"request_id": c.Get("X-Request-ID"),
		})
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// scopeCatalog lists every scope with its description, grouped by category,
// and the scopes each role group carries
func scopeCatalog() fiber.Map {
	categories := fiber.Map{}
	for category, list := range scopes.ScopeCategories {
		described := make(fiber.Map, len(list))
		for _, s := range list {
			described[s] = scopes.GetScopeDescription(s)
		}
		categories[category] = described
	}

	roles := fiber.Map{}
	for role := range scopes.ScopeGroups {
		roles[role] = scopes.GetScopesByGroup(role)
	}

	return fiber.Map{
		"categories": categories,
		"roles":      roles,
	}
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Health: /health")
	logx.Info("   ├─ Info: /")
	logx.Info("   ├─ Docs: /api/v1/docs")
	logx.Info("   ├─ Candidates: /api/v1/candidates/*, /api/v1/clients")
	logx.Info("   ├─ Imports: /api/v1/imports/*")
	logx.Info("   ├─ Assignments: /api/v1/assignments/*, /api/v1/talents/*")
	logx.Info("   └─ Demand: /api/v1/demand/*, /api/v1/hires/*")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, cfg *config.Config, cancel context.CancelFunc) {
	port := fmt.Sprintf("%d", cfg.Server.Port)

	go func() {
		logx.Info(strings.Repeat("=", 71))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("📚 API Docs: http://localhost:%s/api/v1/docs", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Infof("🔒 Environment: %s", cfg.Server.Environment)
		logx.Info(strings.Repeat("=", 71))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app, cancel)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	// Stops scheduled jobs before in-flight requests drain
	cancel()

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
