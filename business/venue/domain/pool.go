// Package domain contains the core domain types for the venue context:
// on-chain pool state as read from constant-product pairs and
// concentrated-liquidity pools.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// PoolKind distinguishes the two venue families.
type PoolKind int

const (
	PoolKindConstantProduct PoolKind = iota + 1
	PoolKindConcentrated
)

// String returns the kind name.
func (k PoolKind) String() string {
	switch k {
	case PoolKindConstantProduct:
		return "v2"
	case PoolKindConcentrated:
		return "v3"
	}
	return "unknown"
}

// PoolRef identifies a pool by its pair of tokens. Fee is ignored for
// constant-product pairs, which have one pool per pair.
type PoolRef struct {
	Kind   PoolKind
	TokenA common.Address
	TokenB common.Address
	Fee    uint32
}

// Reserves is a snapshot of a constant-product pair.
type Reserves struct {
	Pair           common.Address
	Token0         common.Address
	Token1         common.Address
	Reserve0       *big.Int
	Reserve1       *big.Int
	BlockTimestamp uint32
}

// Oriented returns (reserveIn, reserveOut) for a swap selling tokenIn.
func (r *Reserves) Oriented(tokenIn common.Address) (*big.Int, *big.Int, error) {
	switch tokenIn {
	case r.Token0:
		return new(big.Int).Set(r.Reserve0), new(big.Int).Set(r.Reserve1), nil
	case r.Token1:
		return new(big.Int).Set(r.Reserve1), new(big.Int).Set(r.Reserve0), nil
	}
	return nil, nil, apperror.New(apperror.CodeInvalidPoolState,
		apperror.WithContext(fmt.Sprintf("token %s not in pair %s", tokenIn.Hex(), r.Pair.Hex())))
}

// LiquidityState is slot0 plus active liquidity of a concentrated pool.
type LiquidityState struct {
	Pool         common.Address
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// HasLiquidity reports whether the pool has any active liquidity.
func (s *LiquidityState) HasLiquidity() bool {
	return s.Liquidity != nil && s.Liquidity.Sign() > 0
}

// ZeroForOne reports whether selling tokenIn moves the price down.
func (s *LiquidityState) ZeroForOne(tokenIn common.Address) (bool, error) {
	switch tokenIn {
	case s.Token0:
		return true, nil
	case s.Token1:
		return false, nil
	}
	return false, apperror.New(apperror.CodeInvalidPoolState,
		apperror.WithContext(fmt.Sprintf("token %s not in pool %s", tokenIn.Hex(), s.Pool.Hex())))
}

// QuoteRequest is an exact-input single-pool quote request.
type QuoteRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	Fee      uint32
	AmountIn *big.Int
}

// Quote is the venue's answer to a QuoteRequest.
type Quote struct {
	AmountOut               *big.Int
	SqrtPriceX96After       *big.Int
	InitializedTicksCrossed uint32
	GasEstimate             uint64
}
