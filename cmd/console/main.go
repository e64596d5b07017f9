package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/geocoder89/safeguard/internal/admin"
	"github.com/geocoder89/safeguard/internal/auth"
	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/config"
	"github.com/geocoder89/safeguard/internal/db"
	httpx "github.com/geocoder89/safeguard/internal/http"
	"github.com/geocoder89/safeguard/internal/notifications"
	"github.com/geocoder89/safeguard/internal/observability"
	"github.com/geocoder89/safeguard/internal/redisclient"
	"github.com/geocoder89/safeguard/internal/session"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "safeguard-console",
			Version:     cfg.Version,
			Environment: cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	sessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		log.Error("session storage unavailable", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer sessions.Close()

	client := backend.New(backend.Options{
		BaseURL:   cfg.BackendURL,
		HealthURL: cfg.BackendHealthURL,
		Timeout:   cfg.BackendTimeout,
		Prom:      prom,
	})

	deps := httpx.Deps{
		Config:    cfg,
		Log:       log,
		Prom:      prom,
		Gatherer:  reg,
		Sessions:  sessions,
		Backend:   client,
		Directory: admin.NewDirectory(client, 30*time.Second),
		DBAccess:  admin.NewDBAccess(dbAccessNotifier(cfg, log), log),
	}
	if cfg.EdgeJWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.EdgeJWTSecret)
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// no write timeout: /api/session/events streams for as long as the tab is open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openSessions(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Backend, error) {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory session storage; sessions are lost on restart")
		return session.NewMemoryBackend(cfg.StorageTTL), nil

	case "redis":
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return session.NewRedisBackend(rc, cfg.StorageTTL), nil

	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL, 0)
		if err != nil {
			return nil, err
		}
		pb := session.NewPostgresBackend(pool, cfg.StorageTTL)

		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pb.EnsureSchema(sctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		return pb, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// dbAccessNotifier falls back to logging the request when no webhook is
// configured, which is what local development wants.
func dbAccessNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	if cfg.DBAccessWebhookURL == "" {
		return notifications.NewLogNotifier(log)
	}

	webhook := notifications.NewWebhookNotifier(cfg.DBAccessWebhookURL, cfg.DBAccessWebhookToken, nil)
	return notifications.NewProtectedNotifier(webhook, notifications.ProtectedNotifierConfig{})
}
