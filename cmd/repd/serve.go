package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"rep-protocol/internal/api"
	"rep-protocol/internal/config"
	"rep-protocol/internal/events"
	"rep-protocol/internal/logger"
	"rep-protocol/internal/market"
	"rep-protocol/internal/observability"
	"rep-protocol/internal/replay"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Replay the journal and serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-addr", Usage: "HTTP API listen address"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Prometheus metrics listen address"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Development, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(observability.DefaultNamespace, reg)

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	hub := events.NewHub(nil, log, metrics)
	fanout := events.NewFanout(func(name string, err error) {
		metrics.RecordSinkFailure(name)
		log.Warn("event sink failed", "sink", name, "error", err)
	})
	fanout.Add("projection", events.NewProjection(stores.projection))
	fanout.Add("websocket", hub)

	m, err := newMarket(cfg, stores, fanout, metrics, log)
	if err != nil {
		return err
	}

	res, err := replay.NewRunner(stores.journal, log).Run(ctx, replay.MarketEngine(m))
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	log.Info("market state restored", "txs", res.Applied, "next_seq", res.NextSeq, "tokens", len(m.Tokens()))

	srv := api.NewServer(m, hub, api.Config{
		Addr:            cfg.APIAddr,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, log, metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return serveMetrics(gctx, cfg, reg, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func newMarket(cfg *config.Config, stores *allStores, sink events.Sink, metrics *observability.Metrics, log *logger.Logger) (*market.Market, error) {
	params, err := cfg.FactoryParams()
	if err != nil {
		return nil, err
	}
	m, err := market.New(market.Options{
		Params:  params,
		Journal: stores.journal,
		Sink:    sink,
		Metrics: metrics,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("create market: %w", err)
	}
	return m, nil
}

// serveMetrics exposes /metrics on its own listener.
func serveMetrics(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, log *logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting metrics server", "address", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
