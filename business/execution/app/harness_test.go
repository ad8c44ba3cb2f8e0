package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

func newTestHarness(f *simFixture, deadline time.Duration) (*Harness, *LockRegistry, *recordingReporter) {
	locks := NewLockRegistry()
	rep := &recordingReporter{}
	orch := NewOrchestrator(OrchestratorConfig{Provider: lender, ProviderFeeBps: 9, SlippageToleranceBps: 50})
	return NewHarness(f.model, orch, f.ledger, locks, deadline, rep, logger.NewNop()), locks, rep
}

func TestHarness_ExecuteSingleLeg(t *testing.T) {
	f := newSimFixture(t)
	f.ledger.Fund(executor, addrA, big.NewInt(50_000))
	h, locks, rep := newTestHarness(f, time.Second)

	res, err := h.ExecuteSingleLeg(context.Background(), f.buy, amountA(50_000))
	if err != nil {
		t.Fatalf("ExecuteSingleLeg() error = %v", err)
	}

	if res.AmountOut.Raw().Int64() != 94_965 {
		t.Errorf("AmountOut = %s, want 94965", res.AmountOut.Raw())
	}
	if res.Quoted == nil || res.Quoted.AmountOut.Raw().Int64() != 94_965 {
		t.Errorf("Quoted = %+v", res.Quoted)
	}
	if res.DeviationBps != 0 {
		t.Errorf("DeviationBps = %d, want 0", res.DeviationBps)
	}
	if got := f.ledger.BalanceOf(executor, addrB).Int64(); got != 94_965 {
		t.Errorf("executor B balance = %d, want 94965", got)
	}
	if got := f.ledger.BalanceOf(executor, addrA).Sign(); got != 0 {
		t.Errorf("executor A balance not spent")
	}
	if len(rep.legs) != 1 {
		t.Errorf("reported %d leg results, want 1", len(rep.legs))
	}
	if locks.Held(pairAB.Hex()) {
		t.Error("pool still locked")
	}
}

func TestHarness_Failures(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		setup      func(f *simFixture, locks *LockRegistry) func()
		wantCode   apperror.Code
		wantReason string
	}{
		{
			name:     "zero amount",
			amount:   0,
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name:   "venue reverts",
			amount: 50_000,
			setup: func(f *simFixture, _ *LockRegistry) func() {
				f.ledger.FailNextSwap(pairAB, "UniswapV2: K")
				return func() {}
			},
			wantCode:   apperror.CodeLedgerReverted,
			wantReason: "UniswapV2: K",
		},
		{
			name:     "unfunded executor",
			amount:   60_000,
			wantCode: apperror.CodeLedgerReverted,
		},
		{
			name:   "pool busy past deadline",
			amount: 50_000,
			setup: func(_ *simFixture, locks *LockRegistry) func() {
				release, err := locks.Acquire(context.Background(), []string{pairAB.Hex()}, 0)
				if err != nil {
					panic(err)
				}
				return release
			},
			wantCode: apperror.CodeAbandoned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSimFixture(t)
			f.ledger.Fund(executor, addrA, big.NewInt(50_000))
			h, locks, rep := newTestHarness(f, 30*time.Millisecond)
			if tt.setup != nil {
				defer tt.setup(f, locks)()
			}
			before := f.ledger.Digest()

			_, err := h.ExecuteSingleLeg(context.Background(), f.buy, amountA(tt.amount))
			if !apperror.HasCode(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
			if tt.wantReason != "" && apperror.Reason(err) != tt.wantReason {
				t.Errorf("reason = %q, want %q", apperror.Reason(err), tt.wantReason)
			}
			if f.ledger.Digest() != before {
				t.Error("failed leg changed the ledger")
			}
			if len(rep.legs) != 0 {
				t.Error("failed leg was reported")
			}
		})
	}
}
