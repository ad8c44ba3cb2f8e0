package simulated

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	executorAddr = common.HexToAddress("0x00000000000000000000000000000000000e0e00")
	lenderAddr   = common.HexToAddress("0x000000000000000000000000000000000000aa7e")
	tokenA       = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB       = common.HexToAddress("0x000000000000000000000000000000000000000b")
	pairAB       = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	poolBA       = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

// newTestLedger builds an A/B pair priced 1:2 and a B/A pair priced 2:1.2,
// so A -> B -> A is profitable.
func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	l := NewLedger(executorAddr, logger.NewNop(), opts...)
	l.AddPool(NewConstantProductPool(pairAB, tokenA, tokenB, big.NewInt(1_000_000), big.NewInt(2_000_000), 30))
	l.AddPool(NewConstantProductPool(poolBA, tokenB, tokenA, big.NewInt(2_000_000), big.NewInt(1_200_000), 30))
	l.Fund(lenderAddr, tokenA, big.NewInt(10_000_000))
	return l
}

func loanUnit(principal, due int64) *domain.UnitOfWork {
	return &domain.UnitOfWork{
		ID: "unit-1",
		Borrow: &domain.Borrow{
			Provider:     lenderAddr,
			Asset:        tokenA,
			Principal:    big.NewInt(principal),
			RepaymentDue: big.NewInt(due),
		},
		Swaps: []domain.Swap{
			{Pool: pairAB, Kind: domain.SwapConstantProduct, TokenIn: tokenA, TokenOut: tokenB, Fee: 30},
			{Pool: poolBA, Kind: domain.SwapConstantProduct, TokenIn: tokenB, TokenOut: tokenA, Fee: 30},
		},
	}
}

func TestConstantProductPool_Swap(t *testing.T) {
	p := NewConstantProductPool(pairAB, tokenA, tokenB, big.NewInt(1_000_000), big.NewInt(2_000_000), 30)

	out, err := p.Swap(context.Background(), tokenA, big.NewInt(50_000))
	if err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if out.Int64() != 94_965 {
		t.Errorf("Swap() = %s, want 94965", out)
	}

	r0, r1 := p.Reserves()
	if r0.Int64() != 1_050_000 || r1.Int64() != 2_000_000-94_965 {
		t.Errorf("reserves = %s/%s after swap", r0, r1)
	}

	if _, err := p.Swap(context.Background(), common.HexToAddress("0xdead"), big.NewInt(1)); err == nil {
		t.Error("Swap() with foreign token should fail")
	}
}

func TestConstantProductPool_SortsTokens(t *testing.T) {
	p := NewConstantProductPool(poolBA, tokenB, tokenA, big.NewInt(7), big.NewInt(3), 30)
	t0, t1 := p.Tokens()
	r0, r1 := p.Reserves()
	if t0 != tokenA || t1 != tokenB || r0.Int64() != 3 || r1.Int64() != 7 {
		t.Errorf("tokens %s/%s reserves %s/%s, want sorted with reserves following", t0.Hex(), t1.Hex(), r0, r1)
	}
}

func TestLedger_CommitChainedSwaps(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	unit := loanUnit(50_000, 50_045)
	sub, err := l.SubmitAtomic(ctx, unit)
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if !sub.Committed() {
		t.Fatalf("status = %s reason %q, want committed", sub.Status, sub.Reason)
	}
	if len(sub.LegOutputs) != 2 || sub.LegOutputs[0].Int64() != 94_965 {
		t.Errorf("LegOutputs = %v", sub.LegOutputs)
	}

	profit := new(big.Int).Sub(sub.GrossProceeds, big.NewInt(50_045))
	if got := l.BalanceOf(executorAddr, tokenA); got.Cmp(profit) != 0 {
		t.Errorf("executor balance = %s, want %s", got, profit)
	}
	if got := l.BalanceOf(lenderAddr, tokenA); got.Int64() != 10_000_045 {
		t.Errorf("lender balance = %s, want 10000045", got)
	}
	if sub.Receipt == nil || !sub.Receipt.Succeeded {
		t.Errorf("Receipt = %+v", sub.Receipt)
	}
}

func TestLedger_RevertLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(l *Ledger, u *domain.UnitOfWork)
		wantReason string
		wantCode   apperror.Code
	}{
		{
			name:       "second_leg_fault",
			prepare:    func(l *Ledger, _ *domain.UnitOfWork) { l.FailNextSwap(poolBA, "Too little received") },
			wantReason: "Too little received",
			wantCode:   apperror.CodeLedgerReverted,
		},
		{
			name: "second_leg_min_out",
			prepare: func(_ *Ledger, u *domain.UnitOfWork) {
				u.Swaps[1].Kind = domain.SwapConcentrated
				u.Swaps[1].MinAmountOut = big.NewInt(1_000_000)
			},
			wantReason: "Too little received",
			wantCode:   apperror.CodeLedgerReverted,
		},
		{
			name:       "below_min_proceeds",
			prepare:    func(_ *Ledger, u *domain.UnitOfWork) { u.MinProceeds = big.NewInt(10_000_000) },
			wantReason: "proceeds",
			wantCode:   apperror.CodeProfitabilityRejected,
		},
		{
			name:       "cannot_repay",
			prepare:    func(_ *Ledger, u *domain.UnitOfWork) { u.Borrow.RepaymentDue = big.NewInt(9_000_000) },
			wantReason: "flash loan not repaid",
			wantCode:   apperror.CodeLedgerReverted,
		},
		{
			name:       "lender_dry",
			prepare:    func(_ *Ledger, u *domain.UnitOfWork) { u.Borrow.Principal = big.NewInt(20_000_000) },
			wantReason: "insufficient lender liquidity",
			wantCode:   apperror.CodeLedgerReverted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			unit := loanUnit(50_000, 50_045)
			tt.prepare(l, unit)

			before := l.Digest()
			sub, err := l.SubmitAtomic(context.Background(), unit)
			if err != nil {
				t.Fatalf("SubmitAtomic() error = %v", err)
			}
			if sub.Status != domain.StatusReverted {
				t.Fatalf("status = %s, want reverted", sub.Status)
			}
			if after := l.Digest(); after != before {
				t.Errorf("digest changed %s -> %s", before, after)
			}
			if !containsFold(sub.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to mention %q", sub.Reason, tt.wantReason)
			}
			if !apperror.HasCode(sub.Cause, tt.wantCode) {
				t.Errorf("Cause = %v, want code %s", sub.Cause, tt.wantCode)
			}
		})
	}
}

type scriptedCallback struct {
	fn func(ctx context.Context, ex domain.Executor, principal *big.Int) (*big.Int, error)
}

func (c scriptedCallback) OnLoan(ctx context.Context, ex domain.Executor, principal *big.Int) (*big.Int, error) {
	return c.fn(ctx, ex, principal)
}

func TestLedger_CallbackRevertRestoresFirstLeg(t *testing.T) {
	l := newTestLedger(t)
	before := l.Digest()

	unit := loanUnit(50_000, 50_045)
	unit.Callback = scriptedCallback{fn: func(ctx context.Context, ex domain.Executor, principal *big.Int) (*big.Int, error) {
		if _, err := ex.Swap(ctx, unit.Swaps[0], principal); err != nil {
			return nil, err
		}
		return nil, apperror.Validation(apperror.CodeProfitabilityRejected, "gross below required")
	}}

	sub, err := l.SubmitAtomic(context.Background(), unit)
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusReverted || sub.Reason != "gross below required" {
		t.Errorf("submission = %s %q", sub.Status, sub.Reason)
	}
	if l.Digest() != before {
		t.Error("first leg effects survived the revert")
	}

	p, _ := l.Pool(pairAB)
	r0, _ := p.(*ConstantProductPool).Reserves()
	if r0.Int64() != 1_000_000 {
		t.Errorf("reserve0 = %s, want restored 1000000", r0)
	}
}

func TestLedger_RevertRestoresCallerPoolHandles(t *testing.T) {
	l := NewLedger(executorAddr, logger.NewNop())
	ab := NewConstantProductPool(pairAB, tokenA, tokenB, big.NewInt(1_000_000), big.NewInt(2_000_000), 30)
	ba := NewConstantProductPool(poolBA, tokenB, tokenA, big.NewInt(2_000_000), big.NewInt(1_200_000), 30)
	l.AddPool(ab)
	l.AddPool(ba)
	l.Fund(lenderAddr, tokenA, big.NewInt(10_000_000))
	l.FailNextSwap(poolBA, "Too little received")

	sub, err := l.SubmitAtomic(context.Background(), loanUnit(50_000, 50_045))
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusReverted {
		t.Fatalf("status = %s, want reverted", sub.Status)
	}

	r0, r1 := ab.Reserves()
	if r0.Int64() != 1_000_000 || r1.Int64() != 2_000_000 {
		t.Errorf("caller handle reserves = %s/%s, want 1000000/2000000", r0, r1)
	}
	if p, _ := l.Pool(pairAB); p != Pool(ab) {
		t.Error("ledger replaced the registered pool")
	}

	// The restored pool still trades from the original state.
	sub, err = l.SubmitAtomic(context.Background(), loanUnit(50_000, 50_045))
	if err != nil || !sub.Committed() {
		t.Fatalf("retry = %v %v, want committed", sub, err)
	}
	if sub.LegOutputs[0].Int64() != 94_965 {
		t.Errorf("first leg output = %s, want 94965", sub.LegOutputs[0])
	}
	if r0, _ := ab.Reserves(); r0.Int64() != 1_050_000 {
		t.Errorf("committed reserve0 = %s, want 1050000", r0)
	}
}

func TestLedger_SingleLegWithoutLoan(t *testing.T) {
	l := newTestLedger(t)
	l.Fund(executorAddr, tokenA, big.NewInt(50_000))

	sub, err := l.SubmitAtomic(context.Background(), &domain.UnitOfWork{
		ID:       "leg",
		AmountIn: big.NewInt(50_000),
		Swaps:    []domain.Swap{{Pool: pairAB, Kind: domain.SwapConstantProduct, TokenIn: tokenA, TokenOut: tokenB}},
	})
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if !sub.Committed() || sub.GrossProceeds.Int64() != 94_965 {
		t.Fatalf("submission = %s gross %v", sub.Status, sub.GrossProceeds)
	}
	if got := l.BalanceOf(executorAddr, tokenB); got.Int64() != 94_965 {
		t.Errorf("tokenB balance = %s, want 94965", got)
	}
	if got := l.BalanceOf(executorAddr, tokenA); got.Sign() != 0 {
		t.Errorf("tokenA balance = %s, want 0", got)
	}
}

func TestLedger_UnfundedSwapReverts(t *testing.T) {
	l := newTestLedger(t)

	sub, err := l.SubmitAtomic(context.Background(), &domain.UnitOfWork{
		ID:       "leg",
		AmountIn: big.NewInt(50_000),
		Swaps:    []domain.Swap{{Pool: pairAB, Kind: domain.SwapConstantProduct, TokenIn: tokenA, TokenOut: tokenB}},
	})
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusReverted || sub.Reason != "STF" {
		t.Errorf("submission = %s %q, want reverted STF", sub.Status, sub.Reason)
	}
}

func TestLedger_DeadlineAbandons(t *testing.T) {
	l := newTestLedger(t, WithSubmitDelay(time.Second))
	before := l.Digest()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sub, err := l.SubmitAtomic(ctx, loanUnit(50_000, 50_045))
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusAbandoned {
		t.Errorf("status = %s, want abandoned", sub.Status)
	}
	if l.Digest() != before {
		t.Error("abandoned unit changed state")
	}
}

func TestLedger_NilUnit(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.SubmitAtomic(context.Background(), nil); !apperror.HasCode(err, apperror.CodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestQuotedPool(t *testing.T) {
	quoteErr := errors.New("quoter down")
	tests := []struct {
		name    string
		quote   QuoteFunc
		want    int64
		wantErr bool
	}{
		{
			name: "fills_at_quote",
			quote: func(_ context.Context, _, _ common.Address, in *big.Int) (*big.Int, error) {
				return new(big.Int).Mul(in, big.NewInt(2)), nil
			},
			want: 20,
		},
		{
			name: "quote_error",
			quote: func(context.Context, common.Address, common.Address, *big.Int) (*big.Int, error) {
				return nil, quoteErr
			},
			wantErr: true,
		},
		{
			name: "exhausted",
			quote: func(context.Context, common.Address, common.Address, *big.Int) (*big.Int, error) {
				return big.NewInt(0), nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewQuotedPool(poolBA, tokenB, tokenA, tt.quote)
			out, err := p.Swap(context.Background(), tokenA, big.NewInt(10))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Swap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out.Int64() != tt.want {
				t.Errorf("Swap() = %s, want %d", out, tt.want)
			}
		})
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
