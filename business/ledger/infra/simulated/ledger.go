package simulated

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/ledger/infra/simulated"
	meterName  = "ledger.simulated"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithSubmitDelay holds every submission for d before it runs. A context
// that ends during the delay leaves the unit abandoned and unexecuted.
func WithSubmitDelay(d time.Duration) Option {
	return func(l *Ledger) { l.submitDelay = d }
}

// Ledger is an in-memory ledger with one executor account and a set of
// flash loan lenders. Units run one at a time.
type Ledger struct {
	mu          sync.Mutex
	executor    common.Address
	balances    map[common.Address]map[common.Address]*big.Int
	pools       map[common.Address]Pool
	faults      map[common.Address]string
	block       uint64
	submitDelay time.Duration
	log         logger.LoggerInterface

	tracer         trace.Tracer
	submitCounter  metric.Int64Counter
	revertCounter  metric.Int64Counter
	submitDuration metric.Float64Histogram
}

// NewLedger creates an empty ledger for executor.
func NewLedger(executor common.Address, log logger.LoggerInterface, opts ...Option) *Ledger {
	l := &Ledger{
		executor: executor,
		balances: make(map[common.Address]map[common.Address]*big.Int),
		pools:    make(map[common.Address]Pool),
		faults:   make(map[common.Address]string),
		block:    1,
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.initMetrics()
	return l
}

func (l *Ledger) initMetrics() {
	meter := otel.Meter(meterName)

	var err error
	l.submitCounter, err = meter.Int64Counter(
		"ledger_submissions_total",
		metric.WithDescription("Units of work submitted to the simulated ledger"),
	)
	if err != nil {
		l.log.Warn(context.Background(), "failed to create submit counter", "error", err)
	}

	l.revertCounter, err = meter.Int64Counter(
		"ledger_reverts_total",
		metric.WithDescription("Units of work rolled back"),
	)
	if err != nil {
		l.log.Warn(context.Background(), "failed to create revert counter", "error", err)
	}

	l.submitDuration, err = meter.Float64Histogram(
		"ledger_submit_duration_ms",
		metric.WithDescription("Time to execute a unit of work"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		l.log.Warn(context.Background(), "failed to create submit histogram", "error", err)
	}
}

// Executor returns the account units run as.
func (l *Ledger) Executor() common.Address {
	return l.executor
}

// AddPool registers a pool, replacing any pool at the same address.
func (l *Ledger) AddPool(p Pool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pools[p.Address()] = p
}

// Pool returns the pool at addr.
func (l *Ledger) Pool(addr common.Address) (Pool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pools[addr]
	return p, ok
}

// Fund credits amount of token to holder.
func (l *Ledger) Fund(holder, token common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(holder, token, amount)
}

// BalanceOf returns holder's balance of token.
func (l *Ledger) BalanceOf(holder, token common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(holder, token))
}

// FailNextSwap makes the next swap through pool revert with reason.
func (l *Ledger) FailNextSwap(pool common.Address, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[pool] = reason
}

// Digest returns a hash of every balance and reserve. Equal digests mean
// no tracked state changed.
func (l *Ledger) Digest() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lines []string
	for holder, tokens := range l.balances {
		for token, v := range tokens {
			if v.Sign() != 0 {
				lines = append(lines, fmt.Sprintf("b %s %s %s", holder.Hex(), token.Hex(), v))
			}
		}
	}
	for addr, p := range l.pools {
		if cp, ok := p.(*ConstantProductPool); ok {
			r0, r1 := cp.Reserves()
			lines = append(lines, fmt.Sprintf("r %s %s %s", addr.Hex(), r0, r1))
		}
	}
	sort.Strings(lines)

	return crypto.Keccak256Hash([]byte(strings.Join(lines, "\n"))).Hex()[:18]
}

// SubmitAtomic runs unit against a snapshot of the ledger. On any failure
// the snapshot is restored and the submission is reported as reverted.
func (l *Ledger) SubmitAtomic(ctx context.Context, unit *domain.UnitOfWork) (*domain.Submission, error) {
	if unit == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "unit of work is required")
	}

	ctx, span := l.tracer.Start(ctx, "simulated.SubmitAtomic",
		trace.WithAttributes(attribute.String("unit.id", unit.ID)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if l.submitDuration != nil {
			l.submitDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
		}
	}()
	if l.submitCounter != nil {
		l.submitCounter.Add(ctx, 1)
	}

	txHash := crypto.Keccak256Hash([]byte(unit.ID))

	if l.submitDelay > 0 {
		timer := time.NewTimer(l.submitDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			apm.Fail(span, ctx.Err())
			return &domain.Submission{Status: domain.StatusAbandoned, TxHash: txHash, Reason: ctx.Err().Error()}, nil
		case <-timer.C:
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		apm.Fail(span, err)
		return &domain.Submission{Status: domain.StatusAbandoned, TxHash: txHash, Reason: err.Error()}, nil
	}

	snap := l.snapshot()
	run := &execution{ledger: l}

	gross, err := run.execute(ctx, unit)
	if err != nil {
		l.restore(snap)
		if l.revertCounter != nil {
			l.revertCounter.Add(ctx, 1)
		}
		apm.Fail(span, err)
		l.log.Info(ctx, "unit reverted", "unit_id", unit.ID, "reason", apperror.Reason(err))

		return &domain.Submission{
			Status:     domain.StatusReverted,
			TxHash:     txHash,
			Reason:     apperror.Reason(err),
			Cause:      err,
			LegOutputs: run.outputs,
		}, nil
	}

	l.block++
	apm.Succeed(span)
	l.log.Debug(ctx, "unit committed", "unit_id", unit.ID, "block", l.block, "gross", gross)

	return &domain.Submission{
		Status: domain.StatusCommitted,
		TxHash: txHash,
		Receipt: &domain.Receipt{
			TxHash:      txHash,
			BlockNumber: l.block,
			Succeeded:   true,
		},
		GrossProceeds: gross,
		LegOutputs:    run.outputs,
	}, nil
}

type snapshot struct {
	balances map[common.Address]map[common.Address]*big.Int
	pools    map[common.Address]Pool
}

func (l *Ledger) snapshot() snapshot {
	s := snapshot{
		balances: make(map[common.Address]map[common.Address]*big.Int, len(l.balances)),
		pools:    make(map[common.Address]Pool, len(l.pools)),
	}
	for holder, tokens := range l.balances {
		m := make(map[common.Address]*big.Int, len(tokens))
		for token, v := range tokens {
			m[token] = new(big.Int).Set(v)
		}
		s.balances[holder] = m
	}
	for addr, p := range l.pools {
		s.pools[addr] = p.clone()
	}
	return s
}

// restore rolls pools back in place, so handles held by callers see the
// pre-unit state too. Consumed faults stay consumed.
func (l *Ledger) restore(s snapshot) {
	l.balances = s.balances
	for addr, p := range l.pools {
		if saved, ok := s.pools[addr]; ok {
			p.reset(saved)
		}
	}
}

func (l *Ledger) balance(holder, token common.Address) *big.Int {
	if v, ok := l.balances[holder][token]; ok {
		return v
	}
	return new(big.Int)
}

func (l *Ledger) credit(holder, token common.Address, amount *big.Int) {
	m, ok := l.balances[holder]
	if !ok {
		m = make(map[common.Address]*big.Int)
		l.balances[holder] = m
	}
	v, ok := m[token]
	if !ok {
		v = new(big.Int)
		m[token] = v
	}
	v.Add(v, amount)
}

func (l *Ledger) debit(holder, token common.Address, amount *big.Int, reason string) error {
	if amount.Sign() == 0 {
		return nil
	}
	v := l.balance(holder, token)
	if v.Cmp(amount) < 0 {
		return apperror.Validation(apperror.CodeLedgerReverted, reason)
	}
	l.balances[holder][token].Sub(v, amount)
	return nil
}
