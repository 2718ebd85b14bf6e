package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbilling "github.com/partnerly/backend/internal/application/billing"
	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	infrabilling "github.com/partnerly/backend/internal/infrastructure/billing"
	"github.com/partnerly/backend/internal/infrastructure/cache"
	"github.com/partnerly/backend/internal/infrastructure/config"
	"github.com/partnerly/backend/internal/infrastructure/event"
	"github.com/partnerly/backend/internal/infrastructure/logger"
	"github.com/partnerly/backend/internal/infrastructure/persistence"
	"github.com/partnerly/backend/internal/interfaces/http/handler"
	"github.com/partnerly/backend/internal/interfaces/http/middleware"
	"github.com/partnerly/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Partnerly Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Stripe configuration
	stripeCfg := &infrabilling.StripeConfig{
		SecretKey:           cfg.Stripe.SecretKey,
		WebhookSecret:       cfg.Stripe.WebhookSecret,
		IsTestMode:          cfg.Stripe.IsTestMode,
		DefaultCurrency:     cfg.Stripe.DefaultCurrency,
		MaxWebhookBodyBytes: cfg.Stripe.MaxWebhookBodyBytes,
	}
	if cfg.App.Env == "production" {
		if err := stripeCfg.Validate(); err != nil {
			log.Fatal("Invalid Stripe configuration", zap.Error(err))
		}
	} else if stripeCfg.WebhookSecret == "" {
		log.Warn("Stripe webhook secret not set, signature verification will reject all deliveries")
	}
	if stripeCfg.SecretKey != "" {
		stripeCfg.InitStripeClient()
	}

	// Fast-path idempotency store: Redis when configured, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	ledgerActivityHandler := appbilling.NewLedgerActivityHandler(log)
	eventBus.Subscribe(ledgerActivityHandler)
	log.Info("Event handlers registered",
		zap.Strings("ledger_activity_events", ledgerActivityHandler.EventTypes()),
	)

	// Initialize repositories and the transaction scope
	codeRepo := persistence.NewGormReferralCodeRepository(db.DB)
	partnerRepo := persistence.NewGormPartnerRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Initialize application services
	defaultRate, err := decimal.NewFromString(cfg.Commission.DefaultRate)
	if err != nil {
		log.Fatal("Invalid default commission rate",
			zap.String("rate", cfg.Commission.DefaultRate), zap.Error(err))
	}

	codeDirectory := appreferral.NewCodeDirectory(appreferral.CodeDirectoryConfig{
		CodeRepo:    codeRepo,
		PartnerRepo: partnerRepo,
		Logger:      log,
	})
	correlationService := appreferral.NewCorrelationService(appreferral.CorrelationServiceConfig{
		Scope:    scope,
		EventBus: eventBus,
		Logger:   log,
	})
	commissionService := appbilling.NewCommissionService(appbilling.CommissionServiceConfig{
		Scope:       scope,
		DefaultRate: defaultRate,
		EventBus:    eventBus,
		Logger:      log,
	})
	webhookService := appbilling.NewStripeWebhookService(appbilling.StripeWebhookServiceConfig{
		Config:             stripeCfg,
		CorrelationService: correlationService,
		CommissionService:  commissionService,
		IdempotencyStore:   idempotencyStore,
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     cfg.Commission.IdempotencyTTL,
			Enabled: true,
		},
		Logger: log,
	})
	ledgerService := appbilling.NewLedgerQueryService(appbilling.LedgerQueryServiceConfig{
		Scope:  scope,
		Logger: log,
	})

	// Initialize HTTP handlers
	webhookHandler := handler.NewStripeWebhookHandler(handler.StripeWebhookHandlerConfig{
		WebhookService:    webhookService,
		MaxBodyBytes:      stripeCfg.BodyLimit(),
		ProcessingTimeout: cfg.HTTP.ProcessingTimeout,
		Logger:            log,
	})
	referralCodeHandler := handler.NewReferralCodeHandler(codeDirectory)
	partnerHandler := handler.NewPartnerHandler(ledgerService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so recovery and request logs
	// carry it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Register API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(webhookHandler).
		Register(referralCodeHandler).
		Register(partnerHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown. In-flight webhook deliveries get to finish;
	// anything cut off is redelivered by the sender.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
