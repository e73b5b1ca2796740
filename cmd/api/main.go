package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/config"
	"github.com/Pranshu2404/AsBrand-Backend/internal/handler"
	"github.com/Pranshu2404/AsBrand-Backend/internal/integrations/credit"
	"github.com/Pranshu2404/AsBrand-Backend/internal/middleware"
	"github.com/Pranshu2404/AsBrand-Backend/internal/notification"
	"github.com/Pranshu2404/AsBrand-Backend/internal/repository/postgres"
	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	planRepo := postgres.NewEmiPlanRepository(pool)
	appRepo := postgres.NewEmiApplicationRepository(pool)
	ledgerRepo := postgres.NewPenaltyLedgerRepository(pool)

	// Initialize external collaborators
	sink, err := notification.NewSNSSink(context.Background(), cfg.SNS.Region, cfg.SNS.TopicARN, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification sink")
	}
	eligibility := credit.NewClient(cfg.EligibilityURL, log.Logger)

	// Initialize services
	planService := service.NewPlanService(planRepo)
	appService := service.NewApplicationService(appRepo, planRepo, ledgerRepo, eligibility, cfg.Emi.DueDayOfMonth)
	penaltyService := service.NewPenaltyService(ledgerRepo)
	batchService := service.NewBatchService(appRepo, ledgerRepo, sink, log.Logger, cfg.Emi)

	// Initialize the daily batch worker
	batchWorker, err := service.NewBatchWorker(batchService, log.Logger, cfg.Batch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create batch worker")
	}
	if err := batchWorker.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start batch worker")
	}
	defer batchWorker.Stop()

	// Initialize handlers
	planHandler := handler.NewPlanHandler(planService)
	applicationHandler := handler.NewApplicationHandler(appService)
	ledgerHandler := handler.NewLedgerHandler(penaltyService)
	batchHandler := handler.NewBatchHandler(batchService)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Per-client rate limiting
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()
	e.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, planHandler, applicationHandler, ledgerHandler, batchHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
