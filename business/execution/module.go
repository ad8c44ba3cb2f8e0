// Package execution implements the execution bounded context: pricing both
// legs, wrapping them in a flash loan and running the cycle atomically.
package execution

import (
	"context"
	"fmt"

	"github.com/fd1az/flashloan-arb/business/execution/app"
	execDI "github.com/fd1az/flashloan-arb/business/execution/di"
	"github.com/fd1az/flashloan-arb/business/execution/infra"
	ledgerDI "github.com/fd1az/flashloan-arb/business/ledger/di"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/simulated"
	venueDI "github.com/fd1az/flashloan-arb/business/venue/di"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, execDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIReporter(cfg.App.Name)
		}
		return infra.NewConsoleReporter(cfg.App.LogLevel == "debug")
	})

	// Simulated mode prices against the fork so quotes match what executes
	di.RegisterToken(c, execDI.StateReader, func(sr di.ServiceRegistry) app.VenueStateReader {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		venue := venueDI.GetVenueService(sr)
		if cfg.Ledger.Mode == config.LedgerModeSimulated {
			return simulated.NewStateReader(ledgerDI.GetSimulatedLedger(sr), venue)
		}
		return venue
	})

	di.RegisterToken(c, execDI.PoolModel, func(sr di.ServiceRegistry) *app.PoolModel {
		return app.NewPoolModel(di.GetToken(sr, execDI.StateReader))
	})

	di.RegisterToken(c, execDI.Planner, func(sr di.ServiceRegistry) *app.Planner {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		return app.NewPlanner(di.GetToken(sr, execDI.PoolModel), app.PlannerConfig{
			ProviderFeeBps: cfg.FlashLoan.ProviderFeeBps,
			MinMarginBps:   cfg.Execution.MinMarginBps,
		})
	})

	di.RegisterToken(c, execDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		return app.NewOrchestrator(app.OrchestratorConfig{
			Provider:             cfg.FlashLoan.ProviderAddress(),
			ProviderFeeBps:       cfg.FlashLoan.ProviderFeeBps,
			MinMarginBps:         cfg.Execution.MinMarginBps,
			SlippageToleranceBps: cfg.Execution.SlippageToleranceBps,
		})
	})

	di.RegisterToken(c, execDI.Locks, func(sr di.ServiceRegistry) *app.LockRegistry {
		return app.NewLockRegistry()
	})

	di.RegisterToken(c, execDI.Coordinator, func(sr di.ServiceRegistry) *app.Coordinator {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		coord, err := app.NewCoordinator(
			ledgerDI.GetSubmitter(sr),
			di.GetToken(sr, execDI.Orchestrator),
			di.GetToken(sr, execDI.Locks),
			di.GetToken(sr, execDI.Reporter),
			app.CoordinatorConfig{
				Deadline:     cfg.Execution.Deadline,
				LockTimeout:  cfg.Execution.LockTimeout,
				MinMarginBps: cfg.Execution.MinMarginBps,
			},
			log,
		)
		if err != nil {
			panic("failed to create coordinator: " + err.Error())
		}
		return coord
	})

	di.RegisterToken(c, execDI.Harness, func(sr di.ServiceRegistry) *app.Harness {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		return app.NewHarness(
			di.GetToken(sr, execDI.PoolModel),
			di.GetToken(sr, execDI.Orchestrator),
			ledgerDI.GetSubmitter(sr),
			di.GetToken(sr, execDI.Locks),
			cfg.Execution.Deadline,
			di.GetToken(sr, execDI.Reporter),
			log,
		)
	})

	di.RegisterToken(c, execDI.ExecutionService, func(sr di.ServiceRegistry) *app.ExecutionService {
		return app.NewExecutionService(
			di.GetToken(sr, execDI.PoolModel),
			di.GetToken(sr, execDI.Planner),
			di.GetToken(sr, execDI.Orchestrator),
			di.GetToken(sr, execDI.Coordinator),
			di.GetToken(sr, execDI.Harness),
			di.GetToken(sr, execDI.Reporter),
		)
	})

	return nil
}

// Startup initializes the execution module and starts the reporter.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	_ = execDI.GetExecutionService(mono.Services())
	if err := execDI.GetReporter(mono.Services()).Start(ctx); err != nil {
		return fmt.Errorf("execution: start reporter: %w", err)
	}

	mono.Logger().Info(ctx, "execution module started",
		"provider", cfg.FlashLoan.Provider,
		"provider_fee_bps", cfg.FlashLoan.ProviderFeeBps,
		"min_margin_bps", cfg.Execution.MinMarginBps,
		"slippage_tolerance_bps", cfg.Execution.SlippageToleranceBps,
		"deadline", cfg.Execution.Deadline,
	)
	return nil
}
