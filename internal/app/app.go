package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/broadcast"
	"github.com/attarco/checkout/internal/domain/coupon"
	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/notification"
	"github.com/attarco/checkout/internal/domain/order"
	"github.com/attarco/checkout/internal/domain/payment"
	"github.com/attarco/checkout/internal/gateway"
	"github.com/attarco/checkout/internal/handler"
	"github.com/attarco/checkout/internal/mailer"
	"github.com/attarco/checkout/internal/repository"
	"github.com/attarco/checkout/pkg/health"
	"github.com/attarco/checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config) error {
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

	// Real-time broadcast channel for admin dashboards.
	redis, err := broadcast.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = redis.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Outbound adapters.
	gatewayClient := gateway.NewClient(cfg.Gateway)
	smtp := mailer.NewSMTP(cfg.SMTP)

	// Notification fan-out worker. Its lifetime is decoupled from the app
	// context: shutdown cancels ctx while the HTTP server is still draining
	// in-flight requests, and a payment confirmed during that drain must
	// still fan out. The worker is stopped only after server.Shutdown
	// returns.
	dispatcher := notification.NewDispatcher(notificationRepo, userRepo, redis, smtp, cfg.AdminEmail)
	dispatchCtx, stopDispatcher := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatcher()
	dispatcher.Start(dispatchCtx)

	// Domain services.
	orderService := order.NewService(catalogRepo, coupon.NewResolver(couponRepo), orderRepo, gatewayClient)
	paymentService := payment.NewService(orderRepo, dispatcher, []byte(cfg.Gateway.KeySecret))
	authResolver := identity.NewResolver(userRepo, []byte(cfg.APIKeyPepper))

	// HTTP handlers.
	h := handler.New(orderService, paymentService, notificationRepo, authResolver)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api", m.TracerProvider(), m.MeterProvider()),
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
		// All in-flight requests are done; no more confirmations can be
		// enqueued, so the dispatcher may now drain and exit.
		stopDispatcher()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone

	// Drain queued notifications before exiting.
	if err := dispatcher.Wait(); err != nil {
		lg.Error("Notification dispatcher stopped with error", zap.Error(err))
	}
	return nil
}
