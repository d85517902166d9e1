package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/avstrong/tripwatch/internal/config"
	"github.com/avstrong/tripwatch/internal/idgen/random"
	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/migration"
	"github.com/avstrong/tripwatch/internal/obs"
	"github.com/avstrong/tripwatch/internal/provider/amadeus"
	"github.com/avstrong/tripwatch/internal/provider/cache"
	"github.com/avstrong/tripwatch/internal/provider/memory"
	"github.com/avstrong/tripwatch/internal/session"
	"github.com/avstrong/tripwatch/internal/transport/web"
	"github.com/avstrong/tripwatch/internal/travel"
)

const shutdownTimeout = 4 * time.Second

func newProvider(
	ctx context.Context,
	cfg *config.Config,
	l *logger.Logger,
	metrics *obs.Metrics,
) (travel.CompositeProvider, error) {
	if cfg.Provider == config.ProviderAmadeus {
		amadeusConf, err := amadeus.ConfigFromEnv(amadeus.DefaultPrefix)
		if err != nil {
			return nil, fmt.Errorf("load amadeus config: %w", err)
		}

		client := amadeus.NewClient(
			amadeusConf,
			l.With("provider", "amadeus"),
			amadeus.WithMetrics(metrics),
			amadeus.WithTracer(otel.Tracer("github.com/avstrong/tripwatch/internal/provider/amadeus")),
		)

		l.LogInfo("Using Amadeus provider at %s", amadeusConf.Hostname)

		return amadeus.New(client, l), nil
	}

	storage := memory.New(memory.Config{L: l})
	if err := migration.Up(ctx, l, storage, time.Now()); err != nil {
		return nil, fmt.Errorf("up demo migration: %w", err)
	}

	l.LogInfo("Demo migration has been applied")

	return storage, nil
}

//nolint:funlen
func Run(cfg *config.Config, l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct
	)

	metrics := obs.NewMetrics(registry)

	provider, err := newProvider(ctx, cfg, l, metrics)
	if err != nil {
		return err
	}

	if cfg.SearchCacheTTL > 0 {
		provider = cache.New(provider, cfg.SearchCacheTTL, metrics)
	}

	agent := travel.NewAgent(l, provider, metrics)

	sessions := session.New(ctx, session.Conf{
		L:           l,
		IDGen:       random.New(),
		Metrics:     metrics,
		MaxSessions: cfg.MonitorMaxSessions,
	})

	webConf := web.Conf{
		L:                      l,
		ServerLogger:           l.StdLogger(),
		Metrics:                metrics,
		Host:                   cfg.HTTPHost,
		Port:                   cfg.HTTPPort,
		ReadHeaderTimeout:      cfg.HTTPReadHeaderTimeout,
		LivenessEndpoint:       "/liveness",
		MetricsEndpoint:        "/metrics",
		DefaultMonitorInterval: cfg.MonitorInterval,
		MinMonitorInterval:     cfg.MonitorMinInterval,
	}

	srv, err := web.New(ctx, webConf, agent, sessions)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	stopped := make(chan struct{})

	//nolint:contextcheck
	go func() {
		defer close(stopped)

		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}

		if err := sessions.Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop monitor sessions: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	serveErr := srv.Srv().ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	if serveErr != nil {
		cancel()
	}

	<-stopped

	if serveErr != nil {
		return fmt.Errorf("run http server: %w", serveErr)
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
