// Package simulated is an in-memory ledger. Every unit of work runs against
// a snapshot and is either committed whole or rolled back.
package simulated

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	execDomain "github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// Pool is liquidity a simulated swap executes against.
type Pool interface {
	Address() common.Address
	Tokens() (token0, token1 common.Address)
	// Swap sells amountIn of tokenIn and returns the output. It mutates
	// pool state; the ledger restores it on revert.
	Swap(ctx context.Context, tokenIn common.Address, amountIn *big.Int) (*big.Int, error)
	clone() Pool
	// reset copies state from a clone of the same pool back into p.
	reset(from Pool)
}

// ConstantProductPool is an x*y=k pair with the fee taken from the input.
type ConstantProductPool struct {
	address  common.Address
	token0   common.Address
	token1   common.Address
	reserve0 *big.Int
	reserve1 *big.Int
	feeBps   uint32
}

// NewConstantProductPool creates a pair. Tokens are sorted like the venue's.
func NewConstantProductPool(address, tokenA, tokenB common.Address, reserveA, reserveB *big.Int, feeBps uint32) *ConstantProductPool {
	p := &ConstantProductPool{
		address:  address,
		token0:   tokenA,
		token1:   tokenB,
		reserve0: new(big.Int).Set(reserveA),
		reserve1: new(big.Int).Set(reserveB),
		feeBps:   feeBps,
	}
	if tokenB.Cmp(tokenA) < 0 {
		p.token0, p.token1 = tokenB, tokenA
		p.reserve0, p.reserve1 = p.reserve1, p.reserve0
	}
	return p
}

func (p *ConstantProductPool) Address() common.Address { return p.address }

func (p *ConstantProductPool) Tokens() (common.Address, common.Address) { return p.token0, p.token1 }

// Reserves returns copies of both reserves in token order.
func (p *ConstantProductPool) Reserves() (*big.Int, *big.Int) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1)
}

func (p *ConstantProductPool) Swap(_ context.Context, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case p.token0:
		reserveIn, reserveOut = p.reserve0, p.reserve1
	case p.token1:
		reserveIn, reserveOut = p.reserve1, p.reserve0
	default:
		return nil, apperror.Validation(apperror.CodeLedgerReverted, "UniswapV2: INVALID_TO")
	}

	out, err := execDomain.QuoteConstantProduct(reserveIn, reserveOut, amountIn, p.feeBps)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 {
		return nil, apperror.Validation(apperror.CodeInsufficientLiquidity, "UniswapV2: INSUFFICIENT_OUTPUT_AMOUNT")
	}

	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, out)
	return out, nil
}

func (p *ConstantProductPool) clone() Pool {
	cp := *p
	cp.reserve0 = new(big.Int).Set(p.reserve0)
	cp.reserve1 = new(big.Int).Set(p.reserve1)
	return &cp
}

func (p *ConstantProductPool) reset(from Pool) {
	src, ok := from.(*ConstantProductPool)
	if !ok {
		return
	}
	p.reserve0.Set(src.reserve0)
	p.reserve1.Set(src.reserve1)
}

func (p *ConstantProductPool) String() string {
	return fmt.Sprintf("cp[%s %s/%s]", p.address.Hex(), p.reserve0, p.reserve1)
}

// QuoteFunc prices an exact-input swap.
type QuoteFunc func(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)

// QuotedPool fills swaps at whatever an external quote returns. It stands in
// for concentrated pools whose tick math lives in the venue. Its state does
// not move between swaps.
type QuotedPool struct {
	address common.Address
	token0  common.Address
	token1  common.Address
	quote   QuoteFunc
}

// NewQuotedPool creates a pool filled by quote.
func NewQuotedPool(address, tokenA, tokenB common.Address, quote QuoteFunc) *QuotedPool {
	if tokenB.Cmp(tokenA) < 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	return &QuotedPool{address: address, token0: tokenA, token1: tokenB, quote: quote}
}

func (p *QuotedPool) Address() common.Address { return p.address }

func (p *QuotedPool) Tokens() (common.Address, common.Address) { return p.token0, p.token1 }

func (p *QuotedPool) Swap(ctx context.Context, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	var tokenOut common.Address
	switch tokenIn {
	case p.token0:
		tokenOut = p.token1
	case p.token1:
		tokenOut = p.token0
	default:
		return nil, apperror.Validation(apperror.CodeLedgerReverted, "SPL")
	}

	out, err := p.quote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Sign() == 0 {
		return nil, apperror.Validation(apperror.CodeInsufficientLiquidity, "pool liquidity exhausted")
	}
	return new(big.Int).Set(out), nil
}

func (p *QuotedPool) clone() Pool {
	cp := *p
	return &cp
}

func (p *QuotedPool) reset(Pool) {}
