// Package app contains application services and port definitions for the venue context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/venue/domain"
)

// PairReader reads constant-product pairs.
type PairReader interface {
	GetReserves(ctx context.Context, pair common.Address) (*domain.Reserves, error)
	ResolvePair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)
}

// PoolReader reads concentrated-liquidity pools.
type PoolReader interface {
	GetLiquidityState(ctx context.Context, pool common.Address) (*domain.LiquidityState, error)
	ResolvePool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
}

// Quoter simulates exact-input swaps against concentrated pools.
type Quoter interface {
	QuoteExactInputSingle(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error)
}
