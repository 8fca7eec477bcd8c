// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/fleet-garden/internal/admin"
	adminpostgres "github.com/bissquit/fleet-garden/internal/admin/postgres"
	"github.com/bissquit/fleet-garden/internal/config"
	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/drivers"
	driverspostgres "github.com/bissquit/fleet-garden/internal/drivers/postgres"
	"github.com/bissquit/fleet-garden/internal/identity"
	"github.com/bissquit/fleet-garden/internal/identity/jwt"
	identitypostgres "github.com/bissquit/fleet-garden/internal/identity/postgres"
	"github.com/bissquit/fleet-garden/internal/ingest"
	ingestpostgres "github.com/bissquit/fleet-garden/internal/ingest/postgres"
	"github.com/bissquit/fleet-garden/internal/notifications/email"
	"github.com/bissquit/fleet-garden/internal/passwordreset"
	resetpostgres "github.com/bissquit/fleet-garden/internal/passwordreset/postgres"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/bissquit/fleet-garden/internal/pkg/metrics"
	"github.com/bissquit/fleet-garden/internal/pkg/postgres"
	"github.com/bissquit/fleet-garden/internal/vehicles"
	vehiclespostgres "github.com/bissquit/fleet-garden/internal/vehicles/postgres"
	"github.com/bissquit/fleet-garden/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	bgCancel      context.CancelFunc
	bgStop        chan struct{}
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())

	app := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		bgCancel: bgCancel,
		bgStop:   make(chan struct{}),
	}

	go app.collectDBMetrics(bgCtx)

	router, err := app.setupRouter()
	if err != nil {
		db.Close()
		bgCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.bgCancel()
	close(a.bgStop)

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Fleet Garden API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	mailSender, err := email.NewSender(email.Config{
		Enabled:      a.config.SMTP.Enabled,
		SMTPHost:     a.config.SMTP.Host,
		SMTPPort:     a.config.SMTP.Port,
		SMTPUser:     a.config.SMTP.User,
		SMTPPassword: a.config.SMTP.Password,
		FromAddress:  a.config.SMTP.FromAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create email sender: %w", err)
	}
	if !a.config.SMTP.Enabled {
		slog.Warn("email sender is disabled: password reset emails will not be sent")
	}

	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		SecretKey:     a.config.JWT.SecretKey,
		TokenLifetime: a.config.JWT.TokenLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("create token authenticator: %w", err)
	}

	identityRepo := identitypostgres.NewRepository(a.db)
	identityService := identity.NewService(identityRepo, jwtAuth)
	identityHandler := identity.NewHandler(identityService)

	resetRepo := resetpostgres.NewRepository(a.db)
	resetService := passwordreset.NewService(resetRepo, identityRepo, mailSender, passwordreset.Config{
		ResetURL: a.config.Reset.ResetURL,
		TokenTTL: a.config.Reset.TokenTTL,
	})
	resetHandler := passwordreset.NewHandler(resetService)

	driversRepo := driverspostgres.NewRepository(a.db)
	driversService := drivers.NewService(driversRepo)
	driversHandler := drivers.NewHandler(driversService)

	vehiclesRepo := vehiclespostgres.NewRepository(a.db)
	vehiclesService := vehicles.NewService(vehiclesRepo, driversRepo)
	vehiclesHandler := vehicles.NewHandler(vehiclesService)

	adminRepo := adminpostgres.NewRepository(a.db)
	adminService := admin.NewService(adminRepo)
	adminHandler := admin.NewHandler(adminService)

	ingestRepo := ingestpostgres.NewRepository(a.db)
	ingestService := ingest.NewService(ingestRepo)
	ingestHandler := ingest.NewHandler(ingestService)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth endpoints, throttled per client IP.
		r.Group(func(r chi.Router) {
			if a.config.RateLimit.Enabled {
				limiter := httputil.NewRateLimiter(a.config.RateLimit.RPS, a.config.RateLimit.Burst, a.bgStop)
				r.Use(limiter.Middleware)
			}

			identityHandler.RegisterRoutes(r)
			resetHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin, domain.RoleOwner, domain.RoleDriver))
				vehiclesHandler.RegisterRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleDriver))
				driversHandler.RegisterDriverRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAPIClient, domain.RoleAdmin))
				ingestHandler.RegisterAPIClientRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				driversHandler.RegisterAdminRoutes(r)
				adminHandler.RegisterRoutes(r)
				ingestHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
