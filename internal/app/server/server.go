package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/leave"
	"leavehub/internal/domain/notifications"
	"leavehub/internal/platform/config"
	cryptoutil "leavehub/internal/platform/crypto"
	"leavehub/internal/platform/db"
	"leavehub/internal/platform/email"
	"leavehub/internal/platform/jobs"
	"leavehub/internal/platform/metrics"
	"leavehub/internal/transport/http/api"
	audithandler "leavehub/internal/transport/http/handlers/audit"
	authhandler "leavehub/internal/transport/http/handlers/auth"
	directoryhandler "leavehub/internal/transport/http/handlers/directory"
	leavehandler "leavehub/internal/transport/http/handlers/leave"
	notificationshandler "leavehub/internal/transport/http/handlers/notifications"
	reportshandler "leavehub/internal/transport/http/handlers/reports"
	"leavehub/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

// New connects, migrates/seeds per config, and wires the router. The caller
// owns the listener; tests mount Router on an httptest server.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, locateMigrations()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	jobService := jobs.New(pool)
	jobService.Start(ctx)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	authStore := auth.NewStore(pool)
	auditService := audit.New(pool)
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailEnabled, cfg.EmailFrom)
	leaveService := leave.NewService(leave.NewStore(pool))
	directoryService := directory.NewService(directory.NewStore(pool, crypto))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))
	if collector != nil {
		router.Use(middleware.Metrics(collector))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, cfg.JWTSecret, crypto, auditService).RegisterRoutes(r)
		directoryhandler.NewHandler(directoryService, leaveService, authStore, auditService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, authStore, notifyService, auditService, jobService).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		reportshandler.NewHandler(pool, leaveService, authStore, auditService).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore).RegisterRoutes(r)

		if collector != nil {
			r.With(middleware.RequirePermission(auth.PermSystemAdmin, authStore)).Get("/admin/metrics", func(w http.ResponseWriter, req *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(req.Context()))
			})
		}
	})

	return &App{Config: cfg, DB: pool, Router: router}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

func Run() {
	cfg := config.Load()

	app, err := New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// locateMigrations walks up from the working directory so the server also
// starts from within a subpackage, which is where test binaries run.
func locateMigrations() string {
	dir := "migrations"
	for i := 0; i < 6; i++ {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		dir = filepath.Join("..", dir)
	}
	return "migrations"
}
