package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	customerapp "github.com/custdesk/backend/internal/application/customer"
	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/custdesk/backend/internal/infrastructure/config"
	"github.com/custdesk/backend/internal/infrastructure/enrichment"
	"github.com/custdesk/backend/internal/infrastructure/event"
	"github.com/custdesk/backend/internal/infrastructure/logger"
	"github.com/custdesk/backend/internal/infrastructure/persistence"
	"github.com/custdesk/backend/internal/infrastructure/telemetry"
	"github.com/custdesk/backend/internal/interfaces/http/handler"
	"github.com/custdesk/backend/internal/interfaces/http/middleware"
	"github.com/custdesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Customer Desk API
//	@version		1.0
//	@description	Customer records with a draft form that verifies PAN numbers and looks up postcodes
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.DefaultConfig()
	if cfg.App.Env == "production" {
		logCfg = logger.ProductionConfig()
	}
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = logsProvider.Bridge(log, level)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Customer Desk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(cfg.Metrics.Namespace)
	}

	// Store and event wiring
	bus := event.NewInMemoryEventBus(log)
	store := persistence.NewMemoryCustomerStore(bus)
	bus.Subscribe(telemetry.NewStoreMetricsHandler(metrics, store))
	bus.Subscribe(event.NewHandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
		log.Info("Customer store changed",
			zap.String("event_type", e.EventType()),
			zap.String("tax_id", e.AggregateID()),
		)
		return nil
	}))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	enrichmentCfg := enrichment.Config{
		PANVerifyURL: cfg.Enrichment.PANVerifyURL,
		PostcodeURL:  cfg.Enrichment.PostcodeURL,
		Timeout:      cfg.Enrichment.Timeout,
	}
	panClient, err := enrichment.NewPANClient(enrichmentCfg)
	if err != nil {
		log.Fatal("Failed to create PAN client", zap.Error(err))
	}
	postcodeClient, err := enrichment.NewPostcodeClient(enrichmentCfg)
	if err != nil {
		log.Fatal("Failed to create postcode client", zap.Error(err))
	}

	policy := customerapp.StaleApply
	if cfg.Enrichment.DiscardStale {
		policy = customerapp.StaleDiscard
	}

	// Application services
	list := customerapp.NewListPresenter(store)
	sessions := customerapp.NewFormSessions(func(id uuid.UUID) *customerapp.FormController {
		return customerapp.NewFormController(store, panClient, postcodeClient, customerapp.FormOptions{
			DebounceWindow: cfg.Enrichment.DebounceWindow,
			StalePolicy:    policy,
			Metrics:        metrics,
			Logger:         log.With(zap.String("form_id", id.String())),
		})
	}, customerapp.SessionConfig{
		TTL:             cfg.Form.SessionTTL,
		MaxSessions:     cfg.Form.MaxSessions,
		CleanupInterval: cfg.Form.CleanupInterval,
	}, metrics, log)
	sessions.Start()

	// Handlers
	customerHandler := handler.NewCustomerHandler(list)
	formHandler := handler.NewFormHandler(sessions, list)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version).
		Track("customers", store.Count).
		Track("open_forms", sessions.Count)
	streamHandler := handler.NewCustomerStreamHandler(list, bus,
		handler.WithSSELogger(log),
		handler.WithSSEHeartbeat(cfg.SSE.HeartbeatInterval),
		handler.WithSSEClientBuffer(cfg.SSE.ClientBuffer),
	)
	if err := streamHandler.Start(); err != nil {
		log.Fatal("Failed to start customer stream", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Server span, before the logger so logs carry trace IDs
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Security, CORS, BodyLimit
	// 6. RateLimit - Per client IP (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanAnnotator())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(metrics.GinMiddleware())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var perForm gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		ipLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer ipLimiter.Stop()
		engine.Use(middleware.RateLimit(ipLimiter))

		formLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer formLimiter.Stop()
		perForm = middleware.RateLimitByKey(formLimiter, middleware.FormSessionKey)

		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.GET("/health", systemHandler.Health)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.SystemRoutes(systemHandler)).
		Register(router.CustomerRoutes(customerHandler, streamHandler)).
		Register(router.FormRoutes(formHandler, perForm)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// SSE clients hold their connections open; stop the stream first so
	// Shutdown does not wait on them.
	streamHandler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sessions.Stop()
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus stop failed", zap.Error(err))
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Log export shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
