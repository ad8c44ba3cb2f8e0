package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fd1az/flashloan-arb/business/execution"
	"github.com/fd1az/flashloan-arb/business/execution/app"
	execDI "github.com/fd1az/flashloan-arb/business/execution/di"
	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/business/execution/infra"
	"github.com/fd1az/flashloan-arb/business/ledger"
	"github.com/fd1az/flashloan-arb/business/venue"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/metrics"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// container is the subset of the monolith the commands drive.
type container interface {
	monolith.Monolith
	RegisterModules(modules ...monolith.Module) error
	StartModules(ctx context.Context, modules ...monolith.Module) error
	Close() error
}

// runtime is a started application for one command.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	mono     container
	service  *app.ExecutionService
	reporter app.Reporter

	buy, sell domain.Leg

	closers []func()
}

func start(ctx context.Context, opts *rootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = opts.tui

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var out io.Writer = os.Stderr
	if opts.tui {
		out = io.Discard
	}
	log := logger.New(out, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting flasharb",
		"version", version,
		"environment", cfg.App.Environment,
		"ledger_mode", cfg.Ledger.Mode,
		"chain_id", cfg.Ethereum.ChainID,
	)

	rt := &runtime{cfg: cfg, log: log}

	if cfg.Telemetry.Enabled {
		if err := rt.startTelemetry(ctx); err != nil {
			rt.close()
			return nil, err
		}
	}

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to create monolith: %w", err)
	}
	rt.mono = mono
	rt.closers = append(rt.closers, func() { _ = mono.Close() })

	// Dependency order: the ledger forks venue state, execution drives both
	modules := []monolith.Module{
		&venue.Module{},
		&ledger.Module{},
		&execution.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to start modules: %w", err)
	}

	rt.service = execDI.GetExecutionService(mono.Services())
	rt.reporter = execDI.GetReporter(mono.Services())
	rt.closers = append(rt.closers, func() { _ = rt.reporter.Stop() })

	rt.startHealth(ctx)

	rt.buy, rt.sell, err = execution.LegsFromConfig(ctx, cfg, mono.AssetRegistry(), execDI.GetStateReader(mono.Services()))
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) startTelemetry(ctx context.Context) error {
	tp, err := apm.NewTraceProvider(ctx, rt.log, apm.Provider(rt.cfg.Telemetry.TraceProvider), apm.Options{
		ServiceName: rt.cfg.Telemetry.ServiceName,
		Endpoint:    rt.cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = tp.Stop() })

	mp, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(rt.cfg.Telemetry.ServiceName),
		metrics.WithPrometheus(),
	)
	if err != nil {
		return fmt.Errorf("failed to start metrics: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = mp.Shutdown(context.Background()) })

	port := rt.cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	prom := metrics.ServePrometheusMetrics(ctx, port, rt.log)
	rt.closers = append(rt.closers, func() { _ = prom.Stop(context.Background()) })
	return nil
}

func (rt *runtime) startHealth(ctx context.Context) {
	srv := health.NewServer(rt.cfg.Health.Port, version, rt.log)

	srv.RegisterCheck("ledger_rpc", func(ctx context.Context) (bool, string) {
		n, err := rt.mono.EthClient().BlockNumber(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("block %d", n)
	})
	srv.RegisterCheck("reconciliation", func(context.Context) (bool, string) {
		pending := rt.service.PendingReconciliations()
		if len(pending) == 0 {
			return true, ""
		}
		return false, fmt.Sprintf("%d abandoned attempts hold pools, oldest %s since %s",
			len(pending), pending[0].AttemptID, pending[0].Since.Format(time.RFC3339))
	})

	srv.Start(ctx)
	rt.closers = append(rt.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(sctx)
	})
}

// services returns the DI registry.
func (rt *runtime) services() di.ServiceRegistry {
	return rt.mono.Services()
}

// wait keeps the TUI on screen until the user quits or ctx ends.
func (rt *runtime) wait(ctx context.Context) {
	tui, ok := rt.reporter.(*infra.TUIReporter)
	if !ok {
		return
	}
	select {
	case <-tui.Done():
	case <-ctx.Done():
	}
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
