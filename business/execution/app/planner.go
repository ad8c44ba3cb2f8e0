package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Preview is a dry evaluation of one cycle at current prices.
type Preview struct {
	Plan      *domain.ExecutionPlan // carries the expected leg outputs
	Principal asset.Amount
	Buy       *LegQuote
	Sell      *LegQuote

	RepaymentDue asset.Amount
	Verdict      domain.Verdict

	// Reason is set when the guard would reject the cycle.
	Reason string
}

// Profitable reports whether the guard would accept the quoted gross.
func (p *Preview) Profitable() bool {
	return p.Verdict.Ok
}

// PlannerConfig holds configuration for the planner.
type PlannerConfig struct {
	ProviderFeeBps uint32
	MinMarginBps   uint32
}

// Planner builds and quotes plans. It never writes to the ledger.
type Planner struct {
	model  *PoolModel
	config PlannerConfig
	tracer trace.Tracer
}

// NewPlanner creates a planner over model.
func NewPlanner(model *PoolModel, cfg PlannerConfig) *Planner {
	return &Planner{
		model:  model,
		config: cfg,
		tracer: otel.Tracer(tracerName),
	}
}

// BuildPlan composes two legs into a plan.
func (p *Planner) BuildPlan(buy, sell domain.Leg) (*domain.ExecutionPlan, error) {
	return domain.BuildPlan(buy, sell)
}

// QuotePlan quotes the buy leg with principal and the sell leg with the
// buy output. A cycle the guard would reject is not an error: the preview
// carries the verdict and reason.
func (p *Planner) QuotePlan(ctx context.Context, plan *domain.ExecutionPlan, principal asset.Amount) (*Preview, error) {
	ctx, span := p.tracer.Start(ctx, "execution.quote_plan",
		trace.WithAttributes(attribute.String("principal", principal.String())),
	)
	defer span.End()

	if plan == nil {
		err := apperror.Validation(apperror.CodeInvalidInput, "plan is required")
		apm.Fail(span, err)
		return nil, err
	}
	if principal.IsZero() {
		err := apperror.Validation(apperror.CodePrincipalZero, "principal must be positive")
		apm.Fail(span, err)
		return nil, err
	}

	buy, err := p.model.QuoteLeg(ctx, plan.Buy, principal)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}
	sell, err := p.model.QuoteLeg(ctx, plan.Sell, buy.AmountOut)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	// Quoting resolves pool addresses; rebuild so the plan carries them.
	quoted, err := domain.BuildPlan(buy.Leg, sell.Leg)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}
	quoted = quoted.WithExpected(buy.AmountOut, sell.AmountOut)

	due := principal.MustAdd(principal.CeilBps(p.config.ProviderFeeBps))
	preview := &Preview{
		Plan:         quoted,
		Principal:    principal,
		Buy:          buy,
		Sell:         sell,
		RepaymentDue: due,
	}

	verdict, err := domain.CheckProfitable(sell.AmountOut, due, p.config.MinMarginBps)
	preview.Verdict = verdict
	switch {
	case apperror.HasCode(err, apperror.CodeProfitabilityRejected):
		preview.Reason = apperror.Reason(err)
	case err != nil:
		apm.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("expected_gross", sell.AmountOut.Raw().String()),
		attribute.Bool("profitable", verdict.Ok),
	)
	apm.Succeed(span)
	return preview, nil
}
