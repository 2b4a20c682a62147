// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/newsgate/rpc"
	"github.com/newsgate/rpc/ad"
	"github.com/newsgate/rpc/bootstrap"
	"github.com/newsgate/rpc/config"
	"github.com/newsgate/rpc/fraud"
	"github.com/newsgate/rpc/logging"
	"github.com/newsgate/rpc/moderation"
	"github.com/newsgate/rpc/segmentation"
	"github.com/newsgate/rpc/stat"
	"github.com/newsgate/rpc/transport"
)

const (
	// statFlushInterval is how often recorded statistics are summarized.
	statFlushInterval = time.Minute
	// limitSweepInterval is how often expired fraud limit keys are dropped.
	limitSweepInterval = 10 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the entity services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.Setup(cfg.Logging)

	var extra []transport.Registrar
	var modLog *moderation.Log
	if cfg.Moderation.Path != "" {
		l, err := moderation.Open(moderation.LogConfig{
			Path:     cfg.Moderation.Path,
			PoolSize: cfg.Moderation.PoolSize,
			Logger:   log.With().Str("component", "moderation").Logger(),
		})
		if err != nil {
			return err
		}
		defer l.Close()
		modLog = l
		extra = append(extra, moderation.Register)
	}

	registry, err := bootstrap.InitializeTransportRegistry(extra...)
	if err != nil {
		return fmt.Errorf("transport registry: %w", err)
	}
	log.Info().Int("types", registry.Len()).Msg("transport registry initialized")

	metrics := rpc.NewMetrics()
	server, err := rpc.Listen(cfg.Server.Addr, registry,
		rpc.WithServerTransport(cfg.Server.Transport),
		rpc.WithServerLogger(log),
		rpc.WithServerMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer server.Close()

	recorder := &stat.Recorder{}
	checker := fraud.NewChecker()
	ads := ad.NewService(nil)
	segmenter := segmentation.NewService(segmentation.LoadChain(cfg.Segmentation, log))

	handlers := map[string]rpc.Handler{
		"fraud.check":    checker.Handle,
		"ad.select":      ads.Handle,
		"ad.update":      ads.Update,
		"stat.record":    recorder.Handle,
		"search.segment": segmenter.Handle,
	}
	if modLog != nil {
		handlers["moderation.log"] = moderation.NewService(modLog).Handle
	}
	for method, handler := range handlers {
		if err := server.Register(method, handler); err != nil {
			return err
		}
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	go flushStats(ctx, recorder, log)
	go sweepLimits(ctx, checker, log)

	log.Info().
		Str("addr", server.Addr()).
		Str("transport", cfg.Server.Transport).
		Msg("serving")

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	select {
	case err := <-done:
		return err
	case <-time.After(cfg.Server.ShutdownTimeout):
		return errors.New("shutdown timed out")
	}
}

func flushStats(ctx context.Context, recorder *stat.Recorder, log zerolog.Logger) {
	ticker := time.NewTicker(statFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requests, impressions, clicks := recorder.Drain()
			if len(requests)+len(impressions)+len(clicks) == 0 {
				continue
			}
			log.Info().
				Int("requests", len(requests)).
				Int("impressions", len(impressions)).
				Int("clicks", len(clicks)).
				Msg("statistics flushed")
		}
	}
}

func sweepLimits(ctx context.Context, checker *fraud.Checker, log zerolog.Logger) {
	ticker := time.NewTicker(limitSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := checker.Sweep(now); removed > 0 {
				log.Debug().
					Int("removed", removed).
					Int("tracked", checker.Len()).
					Msg("fraud limits swept")
			}
		}
	}
}
