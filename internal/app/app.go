package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"petrodash/internal/config"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/fetch"
	"petrodash/internal/infrastructure"
	"petrodash/internal/middleware"
	"petrodash/internal/preferences"
	"petrodash/internal/refresher"
	"petrodash/internal/services"
	handlers "petrodash/internal/transport/http"
	"petrodash/internal/upstream"
	ws "petrodash/internal/websocket"
)

// maxJSONBody bounds JSON request bodies outside of uploads
const maxJSONBody = 1 << 20

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Build         services.BuildInfo
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	WebSocketHub  *ws.Hub
	Refresher     *refresher.Refresher
	Services      *ServiceContainer

	prefCloser io.Closer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard   *services.DashboardService
	Preferences *services.PreferenceService
	Ingest      *services.IngestService
	Health      *services.HealthService
}

// Options override what NewApplication would otherwise load itself
type Options struct {
	// Config is used as is instead of config.Load
	Config *config.Config
	// BaseDir anchors relative paths; empty means the executable's directory
	BaseDir string
	// Logger replaces the process-wide file logger
	Logger *slog.Logger
	// OTel replaces infrastructure.DefaultOTelConfig
	OTel  *infrastructure.OTelConfig
	Build services.BuildInfo
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	build := opts.Build
	if build.Version == "" {
		build.Version = config.AppVersion
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", build.Version),
		slog.String("build_id", build.BuildID))

	paths, err := config.ResolvePaths(cfg, opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelCfg := opts.OTel
	if otelCfg == nil {
		otelCfg = infrastructure.DefaultOTelConfig()
		otelCfg.ServiceVersion = build.Version
	}
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Build:         build,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	client, err := upstream.NewClient(upstream.Config{
		BaseURL:   a.Config.Upstream.BaseURL,
		Timeout:   a.Config.Upstream.Timeout,
		RPS:       a.Config.Upstream.RPS,
		Burst:     a.Config.Upstream.Burst,
		UserAgent: a.Config.Upstream.UserAgent,
		MaxUpload: a.Config.Upstream.MaxUpload,
	}, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	store, closer, err := preferences.Open(a.Config.Preferences, a.Paths.PreferencesDB, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open preferences store: %w", err)
	}
	a.prefCloser = closer
	prefs := preferences.NewInstrumented(store, a.Logger, a.Metrics)

	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)

	registry := fetch.NewRegistry(a.Logger, a.Metrics)
	dashboard := services.NewDashboardService(
		services.NewCatalog(services.DefaultViews()),
		client,
		prefs,
		registry,
		a.Logger,
		a.Metrics,
	)

	a.Services = &ServiceContainer{
		Dashboard:   dashboard,
		Preferences: services.NewPreferenceService(prefs, a.WebSocketHub, a.Logger),
		Ingest:      services.NewIngestService(client, a.Config.Upstream.MaxUpload, a.Logger),
		Health: services.NewHealthService(a.Build, *a.Paths, a.Config.Preferences.Backend,
			a.WebSocketHub, a.Logger),
	}

	if a.Config.Refresh.Enabled {
		a.Refresher, err = refresher.New(a.Config.Refresh, dashboard, a.WebSocketHub, a.Logger, a.Metrics)
		if err != nil {
			return err
		}
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	eh := a.ErrorHandler

	// Order: RequestID → RealIP → Recovery → identity, then per-group middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(eh))
	r.Use(middleware.StripSlashes)
	r.Use(middleware.UserIdentity(eh))
	r.NotFound(eh.NotFound)
	r.MethodNotAllowed(eh.MethodNotAllowed)

	cors := a.corsConfig()
	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.WebSocketHub)

	// The upgrade must see the raw ResponseWriter, so no compression or
	// response-wrapping middleware here
	r.With(middleware.WebSocketTrace(a.Logger)).
		Handle("/ws", handlers.NewWebSocketHandler(a.WebSocketHub, cors, a.Logger))
	r.Get("/metrics", metricsHandler.Prometheus)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.DefaultSecureHeaders(a.Config.Logging.Development).Handler)
		r.Use(middleware.CORS(cors))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				eh,
				a.Logger,
			).Handler)
		}
		r.Use(middleware.Compress(5))
		r.Use(middleware.AuditLog(a.Logger))

		a.setupAPIRoutes(r, metricsHandler)
		a.setupHTMLRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, metricsHandler *handlers.MetricsHandler) {
	eh := a.ErrorHandler
	jsonBody := middleware.NewValidationMiddleware(a.Logger, eh, maxJSONBody)
	jsonOnly := middleware.ContentTypeValidator(eh, "application/json")

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(chimw.Timeout(a.Config.Server.RequestTimeout))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Get("/metrics", metricsHandler.Summary)

		viewHandler := handlers.NewViewHandler(a.Services.Dashboard, a.Logger, eh)
		r.Mount("/views", viewHandler.Routes())
		r.Get("/overview", viewHandler.Overview)

		ingestHandler := handlers.NewIngestHandler(a.Services.Ingest, a.Config.Upstream.MaxUpload, a.Logger, eh)
		r.With(middleware.ContentTypeValidator(eh, "multipart/form-data")).
			Mount("/ingest", ingestHandler.Routes())

		prefHandler := handlers.NewPreferenceHandler(a.Services.Preferences, a.Logger, eh)
		r.With(middleware.RequireUser(eh), jsonOnly, jsonBody.ValidateRequest).
			Mount("/preferences", prefHandler.Routes())

		r.With(jsonOnly, jsonBody.ValidateRequest).
			Post("/logs", handlers.NewClientLogHandler(a.Logger, eh).Handle)
	})
}

// setupHTMLRoutes serves the dashboard page and its assets
func (a *Application) setupHTMLRoutes(r chi.Router) {
	r.Get("/", handlers.ServeDashboard(a.Paths.WebDir, a.Build.Version, a.Logger))
	r.Handle("/static/*", handlers.StaticFiles(a.Paths.WebDir))
}

// corsConfig returns the CORS configuration. With CORS disabled only the
// server's own origin is allowed.
func (a *Application) corsConfig() middleware.CORSConfig {
	cors := middleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			config.UserIDHeader,
		},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Security.EnableCORS {
		cors.AllowedOrigins = a.Config.Security.AllowedOrigins
	} else {
		cors.AllowedOrigins = []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
	}
	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cors.AllowedOrigins))
	return cors
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts background services and the HTTP server. A listener failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", a.Build.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()
	if a.Refresher != nil {
		a.Refresher.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.Refresher != nil {
		a.Refresher.Stop()
	}
	a.WebSocketHub.Stop()

	if a.prefCloser != nil {
		if err := a.prefCloser.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing preferences store", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	// ctx is already cancelled; shutdown gets a fresh one
	return a.Stop(context.Background())
}

// performStartupHealthCheck reports resources that would make the server
// unready. Problems are warnings; the server keeps running.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var problems []error
	readiness := a.Services.Health.ReadinessCheck(ctx)
	for name, svc := range readiness.Services {
		if sh, ok := svc.(services.ServiceHealth); ok && sh.Status != "ready" {
			problems = append(problems, fmt.Errorf("%s: %s", name, sh.Message))
		}
	}
	if !config.FileExists(a.Paths.WebDir) {
		problems = append(problems, fmt.Errorf("web directory %s is missing", a.Paths.WebDir))
	}
	return errors.Join(problems...)
}
