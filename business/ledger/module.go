// Package ledger implements the ledger bounded context: atomic submission of
// flash-loan units of work, either to a deployed executor contract or to an
// in-memory fork of the configured pools.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/business/ledger/app"
	ledgerDI "github.com/fd1az/flashloan-arb/business/ledger/di"
	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/ethereum"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/simulated"
	venueDI "github.com/fd1az/flashloan-arb/business/venue/di"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// SimulatedExecutor holds balances in the simulated ledger when no executor
// contract is configured.
var SimulatedExecutor = common.HexToAddress("0x000000000000000000000000000000000000f1a5")

// lenderDepth is how many principals the simulated lender can cover.
const lenderDepth = 1000

// Module implements the ledger bounded context.
type Module struct{}

// RegisterServices registers all ledger services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, ledgerDI.SimulatedLedger, func(sr di.ServiceRegistry) *simulated.Ledger {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		if cfg.Ledger.Mode != config.LedgerModeSimulated {
			return nil
		}
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		executor := SimulatedExecutor
		if common.IsHexAddress(cfg.Execution.ExecutorAddress) {
			executor = common.HexToAddress(cfg.Execution.ExecutorAddress)
		}
		return simulated.NewLedger(executor, log)
	})

	di.RegisterToken(c, ledgerDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		gasCfg := ethereum.DefaultGasOracleConfig()
		if cfg.Ledger.GasCacheTTL > 0 {
			gasCfg.CacheTTL = cfg.Ledger.GasCacheTTL
		}
		if cfg.Ledger.MaxGasPriceGwei > 0 {
			gasCfg.MaxFeeCap = domain.GweiToWei(cfg.Ledger.MaxGasPriceGwei)
		}
		if cfg.Ledger.GasLimit > 0 {
			gasCfg.DefaultGas = cfg.Ledger.GasLimit
		}

		g, err := ethereum.NewGasOracle(client, gasCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return g
	})

	di.RegisterToken(c, ledgerDI.ReceiptWatcher, func(sr di.ServiceRegistry) *ethereum.ReceiptWatcher {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		// A nil *ethclient.Client must not become a non-nil interface
		var heads ethereum.HeadSubscriber
		if ws, _ := sr.Get(monolith.ServiceEthWSClient).(*ethclient.Client); ws != nil {
			heads = ws
		}

		w, err := ethereum.NewReceiptWatcher(client, heads, ethereum.ReceiptWatcherConfig{
			PollInterval: cfg.Ethereum.ReceiptPollInterval,
		}, log)
		if err != nil {
			panic("failed to create receipt watcher: " + err.Error())
		}
		return w
	})

	di.RegisterToken(c, ledgerDI.Submitter, func(sr di.ServiceRegistry) app.Submitter {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		if cfg.Ledger.Mode == config.LedgerModeSimulated {
			return di.GetToken(sr, ledgerDI.SimulatedLedger)
		}

		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		key, err := ethereum.ParsePrivateKey(cfg.Ledger.PrivateKey)
		if err != nil {
			panic("failed to load signer: " + err.Error())
		}

		s, err := ethereum.NewSubmitter(client,
			di.GetToken(sr, ledgerDI.GasOracle),
			di.GetToken(sr, ledgerDI.ReceiptWatcher),
			key,
			ethereum.SubmitterConfig{
				ChainID:  new(big.Int).SetUint64(cfg.Ethereum.ChainID),
				Executor: common.HexToAddress(cfg.Execution.ExecutorAddress),
				GasLimit: cfg.Ledger.GasLimit,
			}, log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return s
	})

	return nil
}

// Startup initializes the ledger module. In simulated mode it forks the
// configured legs from live venue state and funds the lender.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	if cfg.Ledger.Mode != config.LedgerModeSimulated {
		s := ledgerDI.GetSubmitter(mono.Services()).(*ethereum.Submitter)
		mono.Logger().Info(ctx, "ledger module started",
			"mode", cfg.Ledger.Mode,
			"executor", cfg.Execution.ExecutorAddress,
			"signer", s.From().Hex(),
		)
		return nil
	}

	l := ledgerDI.GetSimulatedLedger(mono.Services())
	specs, borrow, err := forkSpecs(cfg, mono.AssetRegistry())
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := l.Fork(ctx, venueDI.GetVenueService(mono.Services()), specs); err != nil {
		return fmt.Errorf("ledger: fork: %w", err)
	}

	principal, err := cfg.Execution.PrincipalDecimal()
	if err != nil {
		return fmt.Errorf("ledger: principal: %w", err)
	}
	depth, err := asset.ParseDecimal(borrow, principal)
	if err != nil {
		return fmt.Errorf("ledger: principal: %w", err)
	}
	liquidity := new(big.Int).Mul(depth.Raw(), big.NewInt(lenderDepth))
	l.Fund(cfg.FlashLoan.ProviderAddress(), borrow.Address(), liquidity)

	mono.Logger().Info(ctx, "ledger module started",
		"mode", cfg.Ledger.Mode,
		"executor", l.Executor().Hex(),
		"lender_liquidity", asset.NewAmount(borrow, liquidity).String(),
		"state", l.Digest(),
	)
	return nil
}

// forkSpecs maps the configured legs to pools to mirror. It also returns
// the borrowed asset, the buy leg's input.
func forkSpecs(cfg *config.Config, registry *asset.Registry) ([]simulated.ForkSpec, *asset.Asset, error) {
	var (
		specs  []simulated.ForkSpec
		borrow *asset.Asset
	)
	for i, leg := range []config.LegConfig{cfg.Execution.Buy, cfg.Execution.Sell} {
		in, err := registry.Resolve(cfg.Ethereum.ChainID, leg.TokenIn)
		if err != nil {
			return nil, nil, err
		}
		out, err := registry.Resolve(cfg.Ethereum.ChainID, leg.TokenOut)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			borrow = in
		}

		kind := domain.SwapConstantProduct
		if leg.Variant == config.VariantV3 {
			kind = domain.SwapConcentrated
		}
		var pool common.Address
		if leg.Pool != "" {
			pool = common.HexToAddress(leg.Pool)
		}
		specs = append(specs, simulated.ForkSpec{
			Kind:   kind,
			Pool:   pool,
			TokenA: in.Address(),
			TokenB: out.Address(),
			Fee:    leg.Fee,
		})
	}
	return specs, borrow, nil
}
