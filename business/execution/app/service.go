package app

import (
	"context"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// ExecutionService is the public surface of the execution context.
type ExecutionService struct {
	model        *PoolModel
	planner      *Planner
	orchestrator *Orchestrator
	coordinator  *Coordinator
	harness      *Harness
	reporter     Reporter
}

// NewExecutionService creates a new ExecutionService. reporter may be nil.
func NewExecutionService(model *PoolModel, planner *Planner, orchestrator *Orchestrator, coordinator *Coordinator, harness *Harness, reporter Reporter) *ExecutionService {
	return &ExecutionService{
		model:        model,
		planner:      planner,
		orchestrator: orchestrator,
		coordinator:  coordinator,
		harness:      harness,
		reporter:     reporter,
	}
}

// BuildPlan composes two legs into a plan.
func (s *ExecutionService) BuildPlan(buy, sell domain.Leg) (*domain.ExecutionPlan, error) {
	return s.planner.BuildPlan(buy, sell)
}

// QuotePlan previews plan at current prices and reports the preview.
func (s *ExecutionService) QuotePlan(ctx context.Context, plan *domain.ExecutionPlan, principal asset.Amount) (*Preview, error) {
	preview, err := s.planner.QuotePlan(ctx, plan, principal)
	if err != nil {
		return nil, err
	}
	if s.reporter != nil {
		s.reporter.Preview(preview)
	}
	return preview, nil
}

// QuoteLeg prices a single leg.
func (s *ExecutionService) QuoteLeg(ctx context.Context, leg domain.Leg, amountIn asset.Amount) (*LegQuote, error) {
	return s.model.QuoteLeg(ctx, leg, amountIn)
}

// WrapWithLoan borrows principal for plan.
func (s *ExecutionService) WrapWithLoan(plan *domain.ExecutionPlan, principal asset.Amount) (*domain.FlashLoanRequest, error) {
	return s.orchestrator.WrapWithLoan(plan, principal)
}

// Execute runs req as one atomic cycle.
func (s *ExecutionService) Execute(ctx context.Context, req *domain.FlashLoanRequest) (*domain.ExecutionOutcome, error) {
	return s.coordinator.Execute(ctx, req)
}

// ExecuteSingleLeg runs one leg without a loan.
func (s *ExecutionService) ExecuteSingleLeg(ctx context.Context, leg domain.Leg, amountIn asset.Amount) (*LegResult, error) {
	return s.harness.ExecuteSingleLeg(ctx, leg, amountIn)
}

// Reconcile releases the pools of an abandoned attempt.
func (s *ExecutionService) Reconcile(ctx context.Context, attemptID string) error {
	return s.coordinator.Reconcile(ctx, attemptID)
}

// PendingReconciliations lists abandoned attempts.
func (s *ExecutionService) PendingReconciliations() []PendingReconciliation {
	return s.coordinator.PendingReconciliations()
}

// RunCycle builds, quotes, wraps and executes one cycle. A preview the
// guard rejects is not submitted unless force is set; the outcome is then
// nil. The preview is returned even when execution fails.
func (s *ExecutionService) RunCycle(ctx context.Context, buy, sell domain.Leg, principal asset.Amount, force bool) (*Preview, *domain.ExecutionOutcome, error) {
	plan, err := s.BuildPlan(buy, sell)
	if err != nil {
		return nil, nil, err
	}
	preview, err := s.QuotePlan(ctx, plan, principal)
	if err != nil {
		return nil, nil, err
	}
	if !preview.Profitable() && !force {
		return preview, nil, nil
	}
	req, err := s.WrapWithLoan(preview.Plan, principal)
	if err != nil {
		return preview, nil, err
	}
	outcome, err := s.Execute(ctx, req)
	return preview, outcome, err
}
