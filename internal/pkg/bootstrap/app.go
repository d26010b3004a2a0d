package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"

	"storefront/internal/pkg/logger"
	"storefront/internal/tracing"
)

// AppCtx is handed to each service so it can register its own routes.
type AppCtx struct {
	Mux    *http.ServeMux
	Config *Config
}

// AppInfo carries everything needed to start one service process.
type AppInfo struct {
	ServiceName      string
	Port             int
	ConfigPath       string
	RegisterHandlers func(appCtx AppCtx)
}

// StartService wraps the common startup and graceful-shutdown sequence
// shared by every service: config, logging, tracing, HTTP server, signals.
func StartService(info AppInfo) {
	cfg, err := LoadConfig(info.ConfigPath)
	if err != nil {
		panic(err)
	}

	logger.Init(info.ServiceName, cfg.App.LogLevel)

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg})
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("%s listening on %s", info.ServiceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msgf("shutting down service %s", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Flush buffered spans before the process exits.
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msgf("service %s exited with error", info.ServiceName)
	}
	log.Info().Msgf("service %s gracefully shut down", info.ServiceName)
}
