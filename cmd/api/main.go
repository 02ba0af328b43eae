package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waduh12345/hrbalife-sub001/internal/di"
	"github.com/waduh12345/hrbalife-sub001/internal/handlers"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/auth"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/config"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/observability"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/redisstore"
	redisrepo "github.com/waduh12345/hrbalife-sub001/internal/repositories/redis"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	redis.SetLogger(observability.NewPrintfAdapter(logger.Named("redis")))
	redisClient, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	registry, err := redisrepo.NewRegistry(redisClient, redisrepo.Options{
		CartTTL:         cfg.Cart.TTL,
		GuestContactTTL: cfg.Cart.GuestContactTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, serviceLogger(logger.Named("services")))
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	sessionManager, err := auth.NewSessionManager(cfg.Session.JWTSecret, cfg.Session.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		auth.SessionKeyMiddleware(cfg.Session.Header),
		auth.OptionalSession(sessionManager),
		observability.RequestLoggerMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfoFromEnv(startedAt)),
		handlers.WithHealthChecker(registry.Health()),
	)

	cartHandlers := handlers.NewCartHandlers(container.Services.Cart, container.Services.Resolver,
		handlers.WithCartAlerts(container.Services.Notifier),
	)
	productHandlers := handlers.NewProductHandlers(container.Services.Resolver)
	voucherHandlers := handlers.NewVoucherHandlers(container.Services.Vouchers,
		handlers.WithVoucherRateLimiter(handlers.NewFixedWindowLimiter(cfg.RateLimits.SearchPerMinute, time.Minute, time.Now)),
	)
	shippingHandlers := handlers.NewShippingHandlers(container.Services.Shipping)
	checkoutHandlers := handlers.NewCheckoutHandlers(container.Services.Checkout,
		handlers.WithCheckoutRateLimiter(handlers.NewFixedWindowLimiter(cfg.RateLimits.CheckoutPerMinute, time.Minute, time.Now)),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithVoucherRoutes(voucherHandlers.Routes),
		handlers.WithShippingRoutes(shippingHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func serviceLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}

func buildInfoFromEnv(started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
