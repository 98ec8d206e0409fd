package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"foodpay/config"
	"foodpay/handlers"
	"foodpay/internal/gateway"
	"foodpay/internal/notify"
	"foodpay/internal/store/redisstore"
	"foodpay/monitoring"
	"foodpay/security"
	"foodpay/services"
	"foodpay/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)
	publisher := notify.NewPubNubPublisher(pn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable stores
	paymentStore := redisstore.NewPaymentStore(redisClient)
	ticketStore := redisstore.NewTicketStore(redisClient)
	codeSet := redisstore.NewCodeSet(redisClient)

	// Gateway: sandbox decision outside the ledger; production swaps this
	// for a real provider adapter.
	gw := gateway.NewSandbox(cfg.GatewayApprovalRate)

	// Initialize services
	paymentService := services.NewPaymentService(paymentStore, gw, publisher, cfg)
	ticketService := services.NewTicketService(ticketStore, paymentStore, codeSet, publisher, cfg)
	validator := services.NewRedemptionValidator(ticketStore)

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(app, paymentService)
	ticketHandler := handlers.NewTicketHandler(app, ticketService, validator)
	adminHandler := handlers.NewAdminHandler(app, ticketStore)
	limiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Monitoring
	if cfg.EnableMetrics {
		monitoring.NewMonitor(ticketStore)
		go serveMetrics(cfg.MetricsPort)
	}

	// Start background tasks
	go ticketService.RunCleanup(ctx, cfg.CleanupInterval)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		e.Router.BindFunc(limiter.Middleware())

		// Payment endpoints
		e.Router.POST("/api/v1/payments", paymentHandler.CreatePayment)
		e.Router.POST("/api/v1/payments/{paymentId}/verify", paymentHandler.VerifyPayment)
		e.Router.POST("/api/v1/payments/{paymentId}/cancel", paymentHandler.CancelPayment)
		e.Router.GET("/api/v1/payments/{paymentId}", paymentHandler.GetPayment)
		e.Router.GET("/api/v1/payments", paymentHandler.ListPayments)

		// Ticket endpoints
		e.Router.POST("/api/v1/tickets", ticketHandler.IssueTicket)
		e.Router.GET("/api/v1/tickets/{ticketNumber}", ticketHandler.GetTicket)
		e.Router.GET("/api/v1/tickets", ticketHandler.ListTickets)
		e.Router.PATCH("/api/v1/tickets/{ticketNumber}/status", ticketHandler.SetTicketStatus)
		e.Router.POST("/api/v1/tickets/{ticketNumber}/validate", ticketHandler.ValidateTicket)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/stats", adminHandler.GetStats)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	slog.Info("metrics server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("metrics server", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
