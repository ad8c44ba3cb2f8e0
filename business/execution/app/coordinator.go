package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	ledgerApp "github.com/fd1az/flashloan-arb/business/ledger/app"
	ledger "github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const meterName = "execution.coordinator"

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	Deadline     time.Duration // whole attempt, including the wait for the receipt
	LockTimeout  time.Duration
	MinMarginBps uint32
}

// PendingReconciliation is an abandoned attempt still holding its pools.
type PendingReconciliation struct {
	AttemptID string
	TxHash    common.Hash
	PoolKeys  []string
	Since     time.Time

	release func()
}

type coordinatorMetrics struct {
	attempts  metric.Int64Counter
	outcomes  metric.Int64Counter
	duration  metric.Float64Histogram
	netProfit metric.Float64Histogram
	pending   metric.Int64UpDownCounter
}

// Coordinator runs one flash loan cycle per Execute call.
type Coordinator struct {
	config       CoordinatorConfig
	submitter    ledgerApp.Submitter
	orchestrator *Orchestrator
	locks        *LockRegistry
	reporter     Reporter
	logger       logger.LoggerInterface

	mu      sync.Mutex
	pending map[string]*PendingReconciliation

	tracer  trace.Tracer
	metrics *coordinatorMetrics
}

// NewCoordinator creates a coordinator. reporter may be nil.
func NewCoordinator(
	submitter ledgerApp.Submitter,
	orchestrator *Orchestrator,
	locks *LockRegistry,
	reporter Reporter,
	cfg CoordinatorConfig,
	log logger.LoggerInterface,
) (*Coordinator, error) {
	c := &Coordinator{
		config:       cfg,
		submitter:    submitter,
		orchestrator: orchestrator,
		locks:        locks,
		reporter:     reporter,
		logger:       log,
		pending:      make(map[string]*PendingReconciliation),
		tracer:       otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *Coordinator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &coordinatorMetrics{}

	c.metrics.attempts, err = meter.Int64Counter(
		"execution_attempts_total",
		metric.WithDescription("Flash loan cycles started"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.outcomes, err = meter.Int64Counter(
		"execution_outcomes_total",
		metric.WithDescription("Flash loan cycles by terminal state"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.duration, err = meter.Float64Histogram(
		"execution_duration_ms",
		metric.WithDescription("Time from lock acquisition to terminal state"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.netProfit, err = meter.Float64Histogram(
		"execution_net_profit",
		metric.WithDescription("Net profit of committed cycles in human units"),
	)
	if err != nil {
		return err
	}

	c.metrics.pending, err = meter.Int64UpDownCounter(
		"execution_pending_reconciliations",
		metric.WithDescription("Abandoned attempts awaiting reconciliation"),
		metric.WithUnit("{attempt}"),
	)
	return err
}

// Execute runs req as one atomic cycle. Plan and request errors are
// returned before anything is submitted; everything after submission is
// reported through the outcome. A request can be executed once.
func (c *Coordinator) Execute(ctx context.Context, req *domain.FlashLoanRequest) (*domain.ExecutionOutcome, error) {
	if req == nil || req.Plan == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "flash loan request is required")
	}

	attemptID := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("attempt.id", attemptID),
			attribute.String("principal", req.Principal.String()),
			attribute.String("buy", req.Plan.Buy.String()),
			attribute.String("sell", req.Plan.Sell.String()),
		),
	)
	defer span.End()

	tracker := domain.NewTracker(func(from, to domain.State) {
		span.AddEvent(to.String())
		c.logger.Debug(ctx, "attempt transition", "attempt_id", attemptID, "from", from.String(), "to", to.String())
		if c.reporter != nil {
			c.reporter.Transition(attemptID, from, to)
		}
	})

	unit, err := c.orchestrator.BuildUnit(attemptID, req, tracker)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}
	if err := req.Consume(); err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	c.metrics.attempts.Add(ctx, 1)

	if c.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Deadline)
		defer cancel()
	}

	due := req.RepaymentDue()
	out := &domain.ExecutionOutcome{
		AttemptID:    attemptID,
		RepaymentDue: due.Raw(),
	}

	keys := req.Plan.PoolKeys()
	release, err := c.locks.Acquire(ctx, keys, c.config.LockTimeout)
	if err != nil {
		c.abandonUnsubmitted(out, tracker, err)
		return c.finish(ctx, span, out, start), nil
	}

	if err := tracker.Advance(domain.StateLoanRequested); err != nil {
		release()
		apm.Fail(span, err)
		return nil, err
	}

	c.logger.Info(ctx, "submitting cycle",
		"attempt_id", attemptID,
		"principal", req.Principal.String(),
		"repayment_due", due.String(),
		"pools", keys,
	)

	sub, err := c.submitter.SubmitAtomic(ctx, unit)
	if err != nil {
		if ctx.Err() != nil {
			// The unit may have reached the ledger before the deadline.
			err = apperror.New(apperror.CodeAbandoned,
				apperror.WithCause(err),
				apperror.WithContext("deadline reached during submission"))
			c.advance(tracker, domain.StateAbandoned)
			out.State = domain.StateAbandoned
			out.Submitted = true
			out.RevertCode = apperror.CodeAbandoned
			out.RevertReason = apperror.Reason(err)
			out.Err = err
			c.hold(ctx, attemptID, common.Hash{}, keys, release)
		} else {
			release()
			c.revert(out, tracker, apperror.GetCode(err), apperror.Reason(err))
			out.Err = err
		}
		return c.finish(ctx, span, out, start), nil
	}

	out.Submitted = true
	out.Receipt = sub.Receipt

	switch sub.Status {
	case ledger.StatusCommitted:
		release()
		c.commit(ctx, out, tracker, req, sub)

	case ledger.StatusReverted:
		release()
		c.revert(out, tracker, revertCode(sub.Cause), sub.Reason)
		out.Err = sub.Cause
		if sub.GrossProceeds != nil {
			out.GrossProceeds = sub.GrossProceeds
			out.NetProfit = new(big.Int).Sub(sub.GrossProceeds, due.Raw())
		}

	case ledger.StatusAbandoned:
		c.advance(tracker, domain.StateAbandoned)
		out.State = domain.StateAbandoned
		out.RevertCode = apperror.CodeAbandoned
		out.RevertReason = sub.Reason
		out.Err = sub.Cause
		c.hold(ctx, attemptID, sub.TxHash, keys, release)

	default:
		release()
		err := apperror.Internal(apperror.CodeInvalidState, fmt.Sprintf("unknown submission status %d", sub.Status), nil)
		apm.Fail(span, err)
		return nil, err
	}

	return c.finish(ctx, span, out, start), nil
}

func (c *Coordinator) commit(ctx context.Context, out *domain.ExecutionOutcome, tracker *domain.Tracker, req *domain.FlashLoanRequest, sub *ledger.Submission) {
	// Remote executors run the legs on chain; replay what the receipt proves.
	for _, s := range []domain.State{domain.StateLeg1Executed, domain.StateLeg2Executed, domain.StateProfitabilityChecked} {
		if tracker.State() < s {
			c.advance(tracker, s)
		}
	}
	c.advance(tracker, domain.StateCommitted)
	out.State = domain.StateCommitted
	out.Committed = true

	if sub.GrossProceeds == nil {
		c.logger.Warn(ctx, "committed without reported proceeds", "attempt_id", out.AttemptID, "tx", sub.TxHash.Hex())
		return
	}

	out.GrossProceeds = new(big.Int).Set(sub.GrossProceeds)
	out.NetProfit = new(big.Int).Sub(sub.GrossProceeds, out.RepaymentDue)

	gross := asset.NewAmount(req.Asset, sub.GrossProceeds)
	if _, err := domain.CheckProfitable(gross, req.RepaymentDue(), c.config.MinMarginBps); err != nil {
		c.logger.Error(ctx, "committed cycle violates the profit margin",
			"attempt_id", out.AttemptID,
			"gross", gross.String(),
			"error", err,
		)
	}

	net := asset.NewAmount(req.Asset, new(big.Int).Abs(out.NetProfit)).ToDecimal()
	if out.NetProfit.Sign() < 0 {
		net = net.Neg()
	}
	c.metrics.netProfit.Record(ctx, net.InexactFloat64(),
		metric.WithAttributes(attribute.String("asset", req.Asset.Symbol())))
}

func (c *Coordinator) revert(out *domain.ExecutionOutcome, tracker *domain.Tracker, code apperror.Code, reason string) {
	c.advance(tracker, domain.StateReverted)
	out.State = domain.StateReverted
	out.RevertCode = code
	out.RevertReason = reason
}

func (c *Coordinator) abandonUnsubmitted(out *domain.ExecutionOutcome, tracker *domain.Tracker, err error) {
	c.advance(tracker, domain.StateAbandoned)
	out.State = domain.StateAbandoned
	out.RevertCode = apperror.GetCode(err)
	out.RevertReason = apperror.Reason(err)
	out.Err = err
}

// advance applies a transition the coordinator itself decided on. The
// table allows every one of them, so a failure is logged, not returned.
func (c *Coordinator) advance(tracker *domain.Tracker, to domain.State) {
	if err := tracker.Advance(to); err != nil {
		c.logger.Error(context.Background(), "illegal attempt transition", "error", err)
	}
}

func (c *Coordinator) finish(ctx context.Context, span trace.Span, out *domain.ExecutionOutcome, start time.Time) *domain.ExecutionOutcome {
	out.Duration = time.Since(start)

	attrs := metric.WithAttributes(attribute.String("state", out.State.String()))
	c.metrics.outcomes.Add(ctx, 1, attrs)
	c.metrics.duration.Record(ctx, float64(out.Duration.Milliseconds()), attrs)

	span.SetAttributes(
		attribute.String("state", out.State.String()),
		attribute.Bool("submitted", out.Submitted),
	)
	if out.Committed {
		apm.Succeed(span)
	} else if out.Err != nil {
		apm.Fail(span, out.Err)
	}

	c.logger.Info(ctx, "cycle finished",
		"attempt_id", out.AttemptID,
		"state", out.State.String(),
		"submitted", out.Submitted,
		"net_profit", out.NetProfit,
		"revert_code", out.RevertCode,
		"reason", out.RevertReason,
		"duration", out.Duration,
	)

	if c.reporter != nil {
		c.reporter.Report(out)
	}
	return out
}

func (c *Coordinator) hold(ctx context.Context, attemptID string, tx common.Hash, keys []string, release func()) {
	c.mu.Lock()
	c.pending[attemptID] = &PendingReconciliation{
		AttemptID: attemptID,
		TxHash:    tx,
		PoolKeys:  keys,
		Since:     time.Now(),
		release:   release,
	}
	c.mu.Unlock()

	c.metrics.pending.Add(ctx, 1)
	c.logger.Warn(ctx, "attempt abandoned, pools held until reconciled",
		"attempt_id", attemptID, "tx", tx.Hex(), "pools", keys)
}

// Reconcile releases the pools of an abandoned attempt once its outcome
// has been settled out of band.
func (c *Coordinator) Reconcile(ctx context.Context, attemptID string) error {
	c.mu.Lock()
	p, ok := c.pending[attemptID]
	delete(c.pending, attemptID)
	c.mu.Unlock()

	if !ok {
		return apperror.Validation(apperror.CodeNotFound, fmt.Sprintf("no pending attempt %s", attemptID))
	}

	p.release()
	c.metrics.pending.Add(ctx, -1)
	c.logger.Info(ctx, "attempt reconciled", "attempt_id", attemptID, "held_for", time.Since(p.Since))
	return nil
}

// PendingReconciliations lists abandoned attempts, oldest first.
func (c *Coordinator) PendingReconciliations() []PendingReconciliation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PendingReconciliation, 0, len(c.pending))
	for _, p := range c.pending {
		cp := *p
		cp.release = nil
		cp.PoolKeys = append([]string(nil), p.PoolKeys...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// revertCode narrows a ledger cause to the codes a revert reports.
func revertCode(cause error) apperror.Code {
	switch {
	case apperror.HasCode(cause, apperror.CodeInsufficientLiquidity):
		return apperror.CodeInsufficientLiquidity
	case apperror.HasCode(cause, apperror.CodeProfitabilityRejected):
		return apperror.CodeProfitabilityRejected
	}
	return apperror.CodeLedgerReverted
}
