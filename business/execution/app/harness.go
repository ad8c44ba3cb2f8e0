package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	ledgerApp "github.com/fd1az/flashloan-arb/business/ledger/app"
	ledger "github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// LegResult is the outcome of a single committed leg.
type LegResult struct {
	Leg       domain.Leg
	AmountIn  asset.Amount
	AmountOut asset.Amount
	Quoted    *LegQuote

	// DeviationBps is (actual-quoted)*10000/quoted; negative means the
	// leg returned less than quoted.
	DeviationBps int64
	TxHash       common.Hash
	Receipt      *ledger.Receipt
}

// Harness runs one leg on its own, with the executor's own funds and no
// loan. It moves real balances.
type Harness struct {
	model        *PoolModel
	orchestrator *Orchestrator
	submitter    ledgerApp.Submitter
	locks        *LockRegistry
	deadline     time.Duration
	reporter     Reporter
	logger       logger.LoggerInterface
	tracer       trace.Tracer
}

// NewHarness creates a single-leg harness. reporter may be nil.
func NewHarness(
	model *PoolModel,
	orchestrator *Orchestrator,
	submitter ledgerApp.Submitter,
	locks *LockRegistry,
	deadline time.Duration,
	reporter Reporter,
	log logger.LoggerInterface,
) *Harness {
	return &Harness{
		model:        model,
		orchestrator: orchestrator,
		submitter:    submitter,
		locks:        locks,
		deadline:     deadline,
		reporter:     reporter,
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}
}

// ExecuteSingleLeg quotes leg, swaps amountIn on it and compares the
// result with the quote.
func (h *Harness) ExecuteSingleLeg(ctx context.Context, leg domain.Leg, amountIn asset.Amount) (*LegResult, error) {
	ctx, span := h.tracer.Start(ctx, "execution.single_leg",
		trace.WithAttributes(
			attribute.String("leg", leg.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	if !amountIn.IsPositive() {
		err := apperror.Validation(apperror.CodeInvalidInput, "amount in must be positive")
		apm.Fail(span, err)
		return nil, err
	}

	if h.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deadline)
		defer cancel()
	}

	quote, err := h.model.QuoteLeg(ctx, leg, amountIn)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}
	leg = quote.Leg

	id := uuid.NewString()
	unit, err := h.orchestrator.SingleLegUnit(id, leg, amountIn, quote.AmountOut.Raw())
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	release, err := h.locks.Acquire(ctx, []string{leg.PoolKey()}, 0)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}
	defer release()

	h.logger.Info(ctx, "executing single leg",
		"id", id, "leg", leg.String(), "amount_in", amountIn.String(), "quoted_out", quote.AmountOut.String())

	sub, err := h.submitter.SubmitAtomic(ctx, unit)
	if err != nil {
		if ctx.Err() != nil {
			err = apperror.New(apperror.CodeAbandoned, apperror.WithCause(err), apperror.WithContext("deadline reached during submission"))
		}
		apm.Fail(span, err)
		return nil, err
	}

	switch sub.Status {
	case ledger.StatusReverted:
		err := apperror.New(apperror.CodeLedgerReverted, apperror.WithCause(sub.Cause), apperror.WithContext(sub.Reason))
		apm.Fail(span, err)
		return nil, err
	case ledger.StatusAbandoned:
		err := apperror.New(apperror.CodeAbandoned, apperror.WithCause(sub.Cause),
			apperror.WithContext(fmt.Sprintf("leg %s unresolved at deadline", sub.TxHash.Hex())))
		apm.Fail(span, err)
		return nil, err
	}

	actual := sub.GrossProceeds
	if actual == nil && len(sub.LegOutputs) > 0 {
		actual = sub.LegOutputs[len(sub.LegOutputs)-1]
	}
	if actual == nil {
		err := apperror.Internal(apperror.CodeInvalidState, "committed leg reported no output", nil)
		apm.Fail(span, err)
		return nil, err
	}

	res := &LegResult{
		Leg:          leg,
		AmountIn:     amountIn,
		AmountOut:    asset.NewAmount(leg.TokenOut, actual),
		Quoted:       quote,
		DeviationBps: domain.DeviationBps(quote.AmountOut.Raw(), actual),
		TxHash:       sub.TxHash,
		Receipt:      sub.Receipt,
	}

	span.SetAttributes(
		attribute.String("amount_out", actual.String()),
		attribute.Int64("deviation_bps", res.DeviationBps),
	)
	apm.Succeed(span)

	h.logger.Info(ctx, "single leg committed",
		"id", id, "amount_out", res.AmountOut.String(), "deviation_bps", res.DeviationBps)
	if h.reporter != nil {
		h.reporter.LegResult(res)
	}
	return res, nil
}
