// Package app wires the checkout service together: configuration, database,
// domain services, HTTP transport, health probes, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/pricing"
	"github.com/schndra/storefront-api/internal/handler"
	"github.com/schndra/storefront-api/internal/repository"
	"github.com/schndra/storefront-api/pkg/health"
	"github.com/schndra/storefront-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	uow := repository.NewUnitOfWork(pool)

	// Domain services.
	calc, err := buildCalculator(cfg.Pricing)
	if err != nil {
		return errors.Wrap(err, "build pricing calculator")
	}
	orderService := order.NewService(uow, cartRepo, orderRepo, calc, order.TimestampNumbers{})

	// HTTP handlers.
	h := handler.NewHandler(orderService, cartRepo, addressRepo, productRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	instrumented := otelhttp.NewHandler(mux, "checkout-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-User-ID", "Idempotency-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildCalculator translates the pricing configuration into a Calculator.
// The config values were validated at load time.
func buildCalculator(cfg PricingConfig) (*pricing.Calculator, error) {
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, errors.Wrap(err, "tax rate")
	}

	var policy pricing.ShippingPolicy
	switch cfg.ShippingPolicy {
	case "by_method":
		express, err := decimal.NewFromString(cfg.ExpressFee)
		if err != nil {
			return nil, errors.Wrap(err, "express fee")
		}
		overnight, err := decimal.NewFromString(cfg.OvernightFee)
		if err != nil {
			return nil, errors.Wrap(err, "overnight fee")
		}
		policy = pricing.MethodTable{Express: express, Overnight: overnight}
	default:
		fee, err := decimal.NewFromString(cfg.ShippingFee)
		if err != nil {
			return nil, errors.Wrap(err, "shipping fee")
		}
		threshold, err := decimal.NewFromString(cfg.FreeShippingOver)
		if err != nil {
			return nil, errors.Wrap(err, "free shipping threshold")
		}
		policy = pricing.FreeOverThreshold{FlatFee: fee, Threshold: threshold}
	}

	return pricing.NewCalculator(taxRate, policy), nil
}
