// SPDX-License-Identifier: AGPL-3.0-or-later
// relaybus - a distributed peer-to-peer service bus
// Copyright (C) 2023-2026 relaybus contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/relaybus/relaybus>

// Package cmd wires the peer directory, dispatcher, and admin HTTP
// server into a single process, following the shape of DMRHub's own
// cmd/root.go: load config from the cobra command's context, bring up
// logging and tracing, start background services, then hand control to
// the OS signal handler until shutdown.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/relaybus/relaybus/internal/bus/directory"
	"github.com/relaybus/relaybus/internal/bus/dispatcher"
	"github.com/relaybus/relaybus/internal/bus/matcher"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/relaybus/relaybus/internal/bus/transport"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/relaybus/relaybus/internal/db"
	"github.com/relaybus/relaybus/internal/http"
	"github.com/relaybus/relaybus/internal/kv"
	"github.com/relaybus/relaybus/internal/metrics"
	"github.com/relaybus/relaybus/internal/pprof"
	"github.com/relaybus/relaybus/internal/pubsub"
	"github.com/USA-RedDragon/configulator"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewCommand returns the relaybusd root command.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relaybusd",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("relaybusd - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}()

	startBackgroundServices(cfg)

	database, err := db.MakeDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}

	pubsubClient, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	repo := repository.NewGorm(database)
	types := peer.NewTypeRegistry()
	dynMatcher := matcher.New()
	selfID := uuid.NewString()
	met := metrics.NewMetrics(prometheus.DefaultRegisterer)

	dirServer := directory.NewServer(cfg, selfID, repo, dynMatcher, types, pubsubClient, kvStore, met)
	defer func() {
		if err := dirServer.Close(); err != nil {
			slog.Error("failed to close directory server", "error", err)
		}
	}()

	dispatch := dispatcher.New(cfg, types, met)
	defer dispatch.Close()

	net := transport.NewMemoryNetwork()
	socket := transport.NewMemorySocket(net, "")
	endpoint, err := socket.Bind()
	if err != nil {
		return fmt.Errorf("failed to bind transport socket: %w", err)
	}
	defer func() {
		if err := socket.Unbind(); err != nil {
			slog.Error("failed to unbind transport socket", "error", err)
		}
	}()
	slog.Info("transport socket bound", "endpoint", endpoint)

	if _, err := scheduler.NewJob(
		gocron.DurationJob(cfg.Directory.LivenessSweepInterval),
		gocron.NewTask(func() {
			dirServer.LivenessSweep(ctx, cfg.Directory.LivenessTimeout)
		}),
	); err != nil {
		return fmt.Errorf("failed to schedule liveness sweep: %w", err)
	}
	scheduler.Start()

	httpServer := http.New(cfg, dirServer, repo)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrClosed) {
			slog.Error("http server exited", "error", err)
		}
	}()

	setupShutdownHandlers(ctx, scheduler, httpServer, pubsubClient, kvStore, cleanup)

	return nil
}

// loadConfig loads the configuration from the cobra command's context.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger.
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// setupTracing returns a no-op cleanup when no OTLP endpoint is
// configured, otherwise it wires the global tracer provider.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Metrics.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Metrics.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "relaybusd"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build tracing resource: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)

	return exporter.Shutdown, nil
}

// startBackgroundServices launches the metrics and pprof servers; both
// are no-ops unless enabled in config.
func startBackgroundServices(cfg *config.Config) {
	go metrics.CreateMetricsServer(cfg)
	go func() {
		if err := pprof.CreatePProfServer(cfg); err != nil {
			slog.Error("pprof server exited", "error", err)
		}
	}()
}

// setupShutdownHandlers registers a ztrue/shutdown handler that tears
// every subsystem down in parallel with a bounded timeout, then blocks
// listening for a termination signal, mirroring the teacher's own
// shutdown.AddWithParam/shutdown.Listen pairing.
func setupShutdownHandlers(
	ctx context.Context,
	scheduler gocron.Scheduler,
	httpServer *http.Server,
	pubsubClient pubsub.PubSub,
	kvStore kv.KV,
	cleanup func(context.Context) error,
) {
	const shutdownTimeout = 10 * time.Second

	stop := func(sig os.Signal) {
		slog.Error("shutting down due to signal", "signal", sig)

		wg := new(sync.WaitGroup)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("failed to stop scheduler", "error", err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			httpServer.Stop()
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			tracerCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := cleanup(tracerCtx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()

		select {
		case <-done:
			if err := pubsubClient.Close(); err != nil {
				slog.Error("failed to close pubsub", "error", err)
			}
			if err := kvStore.Close(); err != nil {
				slog.Error("failed to close kv", "error", err)
			}
			slog.Info("shutdown complete")
			os.Exit(0)
		case <-time.After(shutdownTimeout):
			slog.Error("shutdown timed out")
			os.Exit(1)
		}
	}

	shutdown.AddWithParam(stop)
	shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}
