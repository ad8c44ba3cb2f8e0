package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	ledger "github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// OrchestratorConfig holds configuration for the orchestrator.
type OrchestratorConfig struct {
	Provider             common.Address // flash loan provider
	ProviderFeeBps       uint32
	MinMarginBps         uint32
	SlippageToleranceBps uint32
}

// Orchestrator turns flash loan requests into ledger units of work.
type Orchestrator struct {
	config OrchestratorConfig
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{config: cfg}
}

// WrapWithLoan borrows principal for plan at the configured provider fee.
func (o *Orchestrator) WrapWithLoan(plan *domain.ExecutionPlan, principal asset.Amount) (*domain.FlashLoanRequest, error) {
	return domain.WrapWithLoan(plan, principal, o.config.ProviderFeeBps)
}

// BuildUnit builds the unit of work for one attempt. The callback advances
// tracker through both legs and the guard.
func (o *Orchestrator) BuildUnit(attemptID string, req *domain.FlashLoanRequest, tracker *domain.Tracker) (*ledger.UnitOfWork, error) {
	if req == nil || req.Plan == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "flash loan request is required")
	}
	plan := req.Plan
	if !plan.Buy.HasPool() || !plan.Sell.HasPool() {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "plan legs must be bound to pools; quote the plan first")
	}

	var buyMin, sellMin *big.Int
	if buyOut, sellOut, ok := plan.Expected(); ok {
		buyMin = o.minOut(buyOut.Raw())
		sellMin = o.minOut(sellOut.Raw())
	}

	buy, err := toSwap(plan.Buy, buyMin)
	if err != nil {
		return nil, err
	}
	sell, err := toSwap(plan.Sell, sellMin)
	if err != nil {
		return nil, err
	}

	due := req.RepaymentDue()
	required := domain.RequiredMinimum(due, o.config.MinMarginBps)

	return &ledger.UnitOfWork{
		ID: attemptID,
		Borrow: &ledger.Borrow{
			Provider:     o.config.Provider,
			Asset:        req.Asset.Address(),
			Principal:    req.Principal.Raw(),
			RepaymentDue: due.Raw(),
		},
		Swaps:       []ledger.Swap{buy, sell},
		MinProceeds: required.Raw(),
		Callback: &cycleCallback{
			buy:          buy,
			sell:         sell,
			borrowAsset:  req.Asset,
			repaymentDue: due,
			minMarginBps: o.config.MinMarginBps,
			tracker:      tracker,
		},
	}, nil
}

// SingleLegUnit builds an unfunded-by-loan unit swapping amountIn on leg.
func (o *Orchestrator) SingleLegUnit(id string, leg domain.Leg, amountIn asset.Amount, expectedOut *big.Int) (*ledger.UnitOfWork, error) {
	var minOut *big.Int
	if expectedOut != nil {
		minOut = o.minOut(expectedOut)
	}
	swap, err := toSwap(leg, minOut)
	if err != nil {
		return nil, err
	}
	return &ledger.UnitOfWork{
		ID:       id,
		AmountIn: amountIn.Raw(),
		Swaps:    []ledger.Swap{swap},
	}, nil
}

// minOut is expected less the slippage tolerance, floored.
func (o *Orchestrator) minOut(expected *big.Int) *big.Int {
	tol := o.config.SlippageToleranceBps
	if tol >= 10000 {
		return new(big.Int)
	}
	return asset.FloorBps(expected, 10000-tol)
}

func toSwap(leg domain.Leg, minOut *big.Int) (ledger.Swap, error) {
	s := ledger.Swap{
		Router:       leg.Router,
		Pool:         leg.Pool,
		TokenIn:      leg.TokenIn.Address(),
		TokenOut:     leg.TokenOut.Address(),
		MinAmountOut: minOut,
	}
	switch v := leg.Variant.(type) {
	case domain.ConstantProduct:
		s.Kind, s.Fee = ledger.SwapConstantProduct, v.FeeBps
	case domain.ConcentratedLiquidity:
		s.Kind, s.Fee = ledger.SwapConcentrated, v.FeeTier
	default:
		return ledger.Swap{}, domain.ValidateVariant(leg.Variant)
	}
	return s, nil
}

// cycleCallback runs inside the loan: buy with the principal, sell the
// buy output, then check the gross before the ledger repays.
type cycleCallback struct {
	buy, sell    ledger.Swap
	borrowAsset  *asset.Asset
	repaymentDue asset.Amount
	minMarginBps uint32
	tracker      *domain.Tracker
}

func (c *cycleCallback) OnLoan(ctx context.Context, ex ledger.Executor, principal *big.Int) (*big.Int, error) {
	bought, err := ex.Swap(ctx, c.buy, principal)
	if err != nil {
		return nil, err
	}
	if err := c.tracker.Advance(domain.StateLeg1Executed); err != nil {
		return nil, err
	}

	gross, err := ex.Swap(ctx, c.sell, bought)
	if err != nil {
		return nil, err
	}
	if err := c.tracker.Advance(domain.StateLeg2Executed); err != nil {
		return nil, err
	}

	if _, err := domain.CheckProfitable(asset.NewAmount(c.borrowAsset, gross), c.repaymentDue, c.minMarginBps); err != nil {
		return nil, err
	}
	if err := c.tracker.Advance(domain.StateProfitabilityChecked); err != nil {
		return nil, err
	}
	return gross, nil
}
