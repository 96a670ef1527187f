package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vetdesk/internal/directory"
	jwttoken "vetdesk/internal/jwt_token"
	"vetdesk/internal/platform/config"
	"vetdesk/internal/platform/httpserver"
	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/platform/redis"
	"vetdesk/internal/registration"
	"vetdesk/internal/registration/handler"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/observability"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	"vetdesk/pkg/platform/circuit"
	"vetdesk/pkg/platform/httputil"
	authmw "vetdesk/pkg/platform/middleware/auth"
	"vetdesk/pkg/platform/middleware/metadata"
)

// ownerTokenAudience is the audience of owner tokens presented by front-desk clients.
const ownerTokenAudience = "vetdesk-api"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("vetdesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := directory.New(cfg.Directory.BaseURL,
		directory.WithHTTPClient(&http.Client{Timeout: cfg.Directory.Timeout}),
		directory.WithTokens(jwttoken.NewJWTService(cfg.Directory.SigningKey, cfg.Directory.Issuer, directory.Audience)),
		directory.WithBreaker(circuit.New("directory",
			circuit.WithFailureThreshold(cfg.Directory.FailureThreshold),
			circuit.WithCooldown(cfg.Directory.BreakerCooldown),
		)),
		directory.WithMetrics(m),
		directory.WithLogger(log),
	)
	if err != nil {
		return err
	}

	loader, closeCache, err := buildSpeciesLoader(ctx, cfg, client, m, log)
	if err != nil {
		return err
	}
	defer closeCache()

	reporter := observability.NewLogReporter(log)
	newEngine := func(mode models.Mode, owner id.OwnerID, opts ...registration.Option) (*registration.Engine, error) {
		base := []registration.Option{
			registration.WithLogger(log),
			registration.WithMetrics(m),
			registration.WithReporter(reporter),
			registration.WithDebounceDelay(cfg.Registration.DebounceDelay),
			registration.WithSpeciesLoader(loader),
		}
		return registration.New(client, mode, owner, append(base, opts...)...)
	}
	sessions := handler.NewInMemorySessionStore(m)
	h := handler.New(newEngine, sessions, client, loader, log)

	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		if cfg.Server.OwnerTokenKey != "" {
			owners := jwttoken.NewJWTService(cfg.Server.OwnerTokenKey, cfg.Directory.Issuer, ownerTokenAudience)
			r.Use(authmw.ActingOwner(jwttoken.NewJWTServiceAdapter(owners), log))
		}
		h.Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting vetdesk", "addr", cfg.Server.Addr, "directory", cfg.Directory.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "open_sessions", sessions.Len())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		sessions.CloseAll()
		return err
	})
	return g.Wait()
}

// buildSpeciesLoader picks the species cache named by the configuration. The
// returned func releases the cache backend.
func buildSpeciesLoader(ctx context.Context, cfg config.Config, client *directory.Client, m *metrics.Metrics, log *slog.Logger) (*species.Loader, func(), error) {
	opts := []species.Option{species.WithMetrics(m), species.WithLogger(log)}
	closeCache := func() {}

	switch cfg.Registration.SpeciesCache {
	case "memory":
		opts = append(opts, species.WithCache(species.NewMemoryCache(cfg.Registration.SpeciesCacheTTL)))
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := redis.New(pingCtx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, species.WithCache(species.NewRedisCache(rc.Client, cfg.Registration.SpeciesCacheTTL)))
		closeCache = func() {
			if err := rc.Close(); err != nil {
				log.Warn("failed to close redis", "error", err)
			}
		}
	}

	loader, err := species.New(client, opts...)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return loader, closeCache, nil
}
