package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	availabilityHandler "stylo/internal/availability/handler"
	bookingHandler "stylo/internal/bookings/handler"
	"stylo/internal/notifications"
	sessions "stylo/internal/sessions/service"
	"stylo/pkg/clock"
	"stylo/pkg/config"
	"stylo/pkg/contracts"
	"stylo/pkg/metrics"
	"stylo/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Application struct {
	cfg      *config.Config
	clock    clock.Clock
	registry *prometheus.Registry
	metrics  *metrics.BookingMetrics

	services         *services
	sweeper          *sessions.Sweeper
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter

	handler http.Handler
	server  *http.Server
}

type Option func(*Application)

// WithClock replaces the wall clock, e.g. with clock.NewFake in tests.
func WithClock(clk clock.Clock) Option {
	return func(a *Application) { a.clock = clk }
}

// NewApplication wires the booking stack for cfg.StoreBackend. Mongo and
// Redis clients must already be set on cfg for the mongo backend.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{
		cfg:      cfg,
		clock:    clock.Real{},
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewBookingMetrics(a.registry)

	svcs, err := buildServices(cfg, a.clock, a.metrics)
	if err != nil {
		return nil, err
	}
	a.services = svcs
	a.sweeper = sessions.NewSweeper(svcs.sessions, cfg.SweepInterval, cfg.Log.Component("session_sweeper"))

	a.setAppHandler(
		bookingHandler.NewBookingHandler(svcs.booking, cfg.Log),
		availabilityHandler.NewAvailabilityHandler(svcs.availability, cfg.Log),
	)
	a.setAppServer()
	return a, nil
}

// Handler is the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.handler
}

func (a *Application) newIdempotencyStore() middleware.IdempotencyStore {
	if a.cfg.Client.Redis != nil {
		return middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
	}
	return middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
}

func (a *Application) healthHandler() http.Handler {
	healthRouter := httprouter.New()
	NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Client.Redis, a.cfg.Log).RegisterRoutes(healthRouter)

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(a.cfg.Log, nil)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	return h
}

func (a *Application) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// webhookHandler carries the delivery status callbacks. They are signed by
// Meta instead of going through the client rate limit.
func (a *Application) webhookHandler() http.Handler {
	webhookRouter := httprouter.New()
	notifications.NewWebhookHandler(a.metrics, a.cfg.Log).RegisterRoutes(webhookRouter)

	var h http.Handler = webhookRouter
	if a.cfg.WhatsAppAppSecret != "" {
		h = middleware.WhatsAppSignatureVerification(a.cfg.WhatsAppAppSecret, a.cfg.Log)(h)
		a.cfg.Log.Info("WhatsApp signature verification enabled")
	} else {
		a.cfg.Log.Warn("WhatsApp app secret not set; webhook payloads are not verified")
	}
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(a.cfg.Log, a.metrics)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	return h
}

func (a *Application) setAppHandler(appHandlers ...contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(appRouter)
	}

	a.idempotencyStore = a.newIdempotencyStore()
	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		a.cfg.RateLimitBurst,
		a.cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = middleware.ClientRateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log, a.metrics)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)

	health := a.healthHandler()
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/ready", health)
	mux.Handle("/metrics", a.metricsHandler())
	mux.Handle("/webhooks/", a.webhookHandler())
	mux.Handle("/", appHttpHandler)
	a.handler = mux

	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	a.sweeper.Start()
	a.cfg.Log.Info("Session sweeper started", "interval", a.cfg.SweepInterval)

	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.stopBackground()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.stopBackground()
	a.cfg.Log.Info("Server stopped gracefully")
}

// Close stops the background workers without touching the HTTP server.
func (a *Application) Close() {
	a.stopBackground()
}

func (a *Application) stopBackground() {
	a.cfg.Log.Info("Stopping background workers...")
	a.sweeper.Stop()
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	a.services.dispatcher.Stop()

	if err := a.services.publisher.Close(); err != nil {
		a.cfg.Log.Error("Failed to close event publisher", "error", err)
	}
	if err := a.services.reminders.Close(); err != nil {
		a.cfg.Log.Error("Failed to close reminder scheduler", "error", err)
	}
	a.cfg.Log.Info("Background workers stopped")
}
