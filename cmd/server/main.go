package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gin-gonic/gin"

	"github.com/merlinlabs/merlin-api/internal/auth"
	"github.com/merlinlabs/merlin-api/internal/chain"
	"github.com/merlinlabs/merlin-api/internal/config"
	"github.com/merlinlabs/merlin-api/internal/custody"
	"github.com/merlinlabs/merlin-api/internal/database"
	"github.com/merlinlabs/merlin-api/internal/market"
	"github.com/merlinlabs/merlin-api/internal/notify"
	"github.com/merlinlabs/merlin-api/internal/orders"
	"github.com/merlinlabs/merlin-api/internal/swap"
	"github.com/merlinlabs/merlin-api/internal/sweep"
	"github.com/merlinlabs/merlin-api/pkg/middleware"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the limit-order API server with graceful
// shutdown support. It wires the repository, custody vault, market oracle,
// swap executor and sweep processor together before exposing the routes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	vault, err := custody.NewVault(cfg.EncryptionSecret)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize custody vault")
	}

	rpcCtx, rpcCancel := context.WithTimeout(context.Background(), 15*time.Second)
	chainClient, err := chain.Dial(rpcCtx, cfg.RPCURL)
	rpcCancel()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to RPC endpoint")
	}

	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	custodyService := custody.NewService(db, vault)
	custodyHandlers := custody.NewGinHandlers(custodyService)

	orderService := orders.NewService(db)
	orderHandlers := orders.NewGinHandlers(orderService)

	oracle := market.NewClient(market.ClientConfig{
		PrimaryBaseURL:  cfg.OraclePrimaryURL,
		FallbackBaseURL: cfg.OracleFallbackURL,
	})

	aggregator := swap.NewAggregatorClient(swap.AggregatorConfig{
		BaseURL: cfg.AggregatorBaseURL,
	})
	executor := swap.NewExecutor(swap.ExecutorConfig{
		Aggregator: aggregator,
		Chain:      chainClient,
	})

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.TelegramBotToken != "" {
		notifier = notify.NewTelegramNotifier(notify.TelegramConfig{
			BotToken: cfg.TelegramBotToken,
		})
	}

	sweepService := sweep.NewService(orderService.DB(), oracle, custodyService, chainClient, executor, notifier)
	sweepHandlers := sweep.NewGinHandlers(sweepService)

	// Create and start sweep processor
	sweepProcessor := sweep.NewProcessor(sweepService, cfg.SweepInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go sweepProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, orderHandlers, custodyHandlers, sweepHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Order and wallet routes: Protected by JWT authentication
// - Internal routes: Protected by the sweep shared secret
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	orderHandlers *orders.GinHandlers,
	custodyHandlers *custody.GinHandlers,
	sweepHandlers *sweep.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			orderGroup.POST("", orderHandlers.CreateOrderHandler())
			orderGroup.GET("", orderHandlers.ListOrdersHandler())
			orderGroup.POST("/:order_id/cancel", orderHandlers.CancelOrderHandler())
		}

		// Custodial wallet routes
		walletGroup := v1.Group("/wallets")
		walletGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			walletGroup.POST("", custodyHandlers.CreateWalletHandler())
			walletGroup.GET("/:telegram_id", custodyHandlers.GetWalletHandler())
			walletGroup.DELETE("/:telegram_id", custodyHandlers.DeleteWalletHandler())
		}

		// Internal routes for the periodic sweep caller
		internal := v1.Group("/internal")
		internal.Use(middleware.SweepAuth(cfg.SweepSecret))
		{
			internal.POST("/sweep", sweepHandlers.TriggerSweepHandler())
		}
	}
}
