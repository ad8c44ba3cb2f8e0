package simulated

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

type fakeVenue struct {
	reserves map[common.Address]*venueDomain.Reserves
	resolved common.Address
	rate     int64
	quotes   int
}

func (f *fakeVenue) GetReserves(_ context.Context, pair common.Address) (*venueDomain.Reserves, error) {
	r, ok := f.reserves[pair]
	if !ok {
		return nil, apperror.Validation(apperror.CodePoolNotFound, "unknown pair")
	}
	return r, nil
}

func (f *fakeVenue) GetLiquidityState(_ context.Context, pool common.Address) (*venueDomain.LiquidityState, error) {
	return &venueDomain.LiquidityState{Pool: pool, Liquidity: big.NewInt(1)}, nil
}

func (f *fakeVenue) QuoteExactInputSingle(_ context.Context, req venueDomain.QuoteRequest) (*venueDomain.Quote, error) {
	f.quotes++
	return &venueDomain.Quote{AmountOut: new(big.Int).Mul(req.AmountIn, big.NewInt(f.rate))}, nil
}

func (f *fakeVenue) ResolvePool(context.Context, venueDomain.PoolRef) (common.Address, error) {
	return f.resolved, nil
}

func TestLedger_Fork(t *testing.T) {
	live := &fakeVenue{
		reserves: map[common.Address]*venueDomain.Reserves{
			pairAB: {Pair: pairAB, Token0: tokenA, Token1: tokenB, Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(2_000_000)},
		},
		resolved: poolBA,
		rate:     3,
	}

	l := NewLedger(executorAddr, logger.NewNop())
	err := l.Fork(context.Background(), live, []ForkSpec{
		{Kind: domain.SwapConstantProduct, Pool: pairAB, TokenA: tokenA, TokenB: tokenB, Fee: 30},
		{Kind: domain.SwapConcentrated, TokenA: tokenB, TokenB: tokenA, Fee: 3000},
	})
	if err != nil {
		t.Fatalf("Fork() error = %v", err)
	}

	reader := NewStateReader(l, live)
	res, err := reader.GetReserves(context.Background(), pairAB)
	if err != nil {
		t.Fatalf("GetReserves() error = %v", err)
	}
	if res.Reserve1.Int64() != 2_000_000 {
		t.Errorf("Reserve1 = %s, want 2000000", res.Reserve1)
	}

	addr, err := reader.ResolvePool(context.Background(), venueDomain.PoolRef{
		Kind: venueDomain.PoolKindConcentrated, TokenA: tokenA, TokenB: tokenB, Fee: 3000,
	})
	if err != nil || addr != poolBA {
		t.Errorf("ResolvePool() = %s, %v; want %s", addr.Hex(), err, poolBA.Hex())
	}

	l.Fund(executorAddr, tokenB, big.NewInt(10))
	sub, err := l.SubmitAtomic(context.Background(), &domain.UnitOfWork{
		ID:       "v3",
		AmountIn: big.NewInt(10),
		Swaps:    []domain.Swap{{Pool: poolBA, Kind: domain.SwapConcentrated, TokenIn: tokenB, TokenOut: tokenA, Fee: 3000}},
	})
	if err != nil || !sub.Committed() {
		t.Fatalf("SubmitAtomic() = %+v, %v", sub, err)
	}
	if sub.GrossProceeds.Int64() != 30 || live.quotes != 1 {
		t.Errorf("gross = %s quotes = %d, want 30 and 1", sub.GrossProceeds, live.quotes)
	}
}

func TestStateReader_ReflectsCommittedSwaps(t *testing.T) {
	l := newTestLedger(t)
	reader := NewStateReader(l, nil)
	l.Fund(executorAddr, tokenA, big.NewInt(50_000))

	if _, err := l.SubmitAtomic(context.Background(), &domain.UnitOfWork{
		ID:       "move",
		AmountIn: big.NewInt(50_000),
		Swaps:    []domain.Swap{{Pool: pairAB, Kind: domain.SwapConstantProduct, TokenIn: tokenA, TokenOut: tokenB}},
	}); err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}

	res, err := reader.GetReserves(context.Background(), pairAB)
	if err != nil {
		t.Fatalf("GetReserves() error = %v", err)
	}
	if res.Reserve0.Int64() != 1_050_000 {
		t.Errorf("Reserve0 = %s, want 1050000", res.Reserve0)
	}
}

func TestStateReader_Offline(t *testing.T) {
	reader := NewStateReader(NewLedger(executorAddr, logger.NewNop()), nil)
	ctx := context.Background()

	if _, err := reader.GetReserves(ctx, pairAB); !apperror.HasCode(err, apperror.CodePoolNotFound) {
		t.Errorf("GetReserves() error = %v, want POOL_NOT_FOUND", err)
	}
	if _, err := reader.QuoteExactInputSingle(ctx, venueDomain.QuoteRequest{}); !apperror.HasCode(err, apperror.CodeQuoteFailed) {
		t.Errorf("QuoteExactInputSingle() error = %v, want QUOTE_FAILED", err)
	}
}
