package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"topup/internal/account/handler"
	"topup/internal/catalog"
	httpapi "topup/internal/http"
	"topup/internal/platform/config"
	"topup/internal/platform/httpserver"
	"topup/internal/platform/logger"
	"topup/internal/platform/metrics"
	ratelimitmw "topup/internal/ratelimit/middleware"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Account logic lives in internal/account.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	products := catalog.Defaults()
	if cfg.CatalogFile != "" {
		products, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return err
		}
	}
	log.InfoContext(ctx, "catalog loaded", "products", len(products), "file", cfg.CatalogFile)

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	accounts, err := handler.New(catalog.NewInMemory(products...), st.Provider,
		handler.WithLogger(log),
		handler.WithMetrics(m),
		handler.WithSlotTTL(cfg.Account.SlotTTL),
		handler.WithHistoryTTL(cfg.Account.HistoryTTL),
		handler.WithHistoryCapacity(cfg.Account.HistoryCapacity),
	)
	if err != nil {
		return fmt.Errorf("build account handler: %w", err)
	}

	limiter := ratelimitmw.New(st.Buckets, cfg.RateLimit.Requests, cfg.RateLimit.Window, log,
		ratelimitmw.WithMetrics(m),
	)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:    log,
		Gatherer:  reg,
		Device:    st.Device,
		Health:    st.Health,
		RateLimit: limiter.RateLimit,
		Routes:    []httpapi.Routes{accounts},
	})
	srv := httpserver.New(cfg.Addr, router)

	log.InfoContext(ctx, "starting storefront account service",
		"addr", cfg.Addr,
		"storage", cfg.Storage,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv)
	})
	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
