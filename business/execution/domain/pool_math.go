package domain

import (
	"math"
	"math/big"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

var (
	bpsDenominator = big.NewInt(10_000)
	q192           = new(big.Int).Lsh(big.NewInt(1), 192)
)

// QuoteConstantProduct returns the exact output of a constant-product swap:
//
//	afterFee  = amountIn*(10000-feeBps)/10000
//	amountOut = reserveOut*afterFee/(reserveIn+afterFee)
//
// Both divisions floor.
func QuoteConstantProduct(reserveIn, reserveOut, amountIn *big.Int, feeBps uint32) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInsufficientLiquidity, "pool has no reserves")
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amount in must be non-negative")
	}
	if feeBps >= 10_000 {
		return nil, apperror.Validation(apperror.CodeInvalidPoolVariant, "fee must be below 10000 bps")
	}

	afterFee := new(big.Int).Mul(amountIn, big.NewInt(int64(10_000-feeBps)))
	afterFee.Quo(afterFee, bpsDenominator)

	num := new(big.Int).Mul(reserveOut, afterFee)
	den := new(big.Int).Add(reserveIn, afterFee)
	return num.Quo(num, den), nil
}

// SpotOutput returns amountIn at the marginal price, before fee and impact.
func SpotOutput(reserveIn, reserveOut, amountIn *big.Int) *big.Int {
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || amountIn == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amountIn, reserveOut)
	return out.Quo(out, reserveIn)
}

// SpotOutputFromSqrtPrice prices amountIn at a concentrated pool's current
// sqrtPriceX96. price(token1 per token0) = sqrtP^2 / 2^192.
func SpotOutputFromSqrtPrice(sqrtPriceX96, amountIn *big.Int, zeroForOne bool) *big.Int {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 || amountIn == nil {
		return new(big.Int)
	}
	priceX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	out := new(big.Int)
	if zeroForOne {
		out.Mul(amountIn, priceX192)
		return out.Quo(out, q192)
	}
	out.Mul(amountIn, q192)
	return out.Quo(out, priceX192)
}

// SlippageBps returns (spot-out)*10000/spot, floored. Zero when spot is zero
// or out is at or above spot.
func SlippageBps(spot, out *big.Int) uint32 {
	if spot == nil || out == nil || spot.Sign() <= 0 || out.Cmp(spot) >= 0 {
		return 0
	}
	d := new(big.Int).Sub(spot, out)
	d.Mul(d, bpsDenominator)
	d.Quo(d, spot)
	return uint32(d.Uint64())
}

// DeviationBps returns (actual-quoted)*10000/quoted, signed and clamped to
// the int64 range.
func DeviationBps(quoted, actual *big.Int) int64 {
	if quoted == nil || actual == nil || quoted.Sign() == 0 {
		return 0
	}
	d := new(big.Int).Sub(actual, quoted)
	d.Mul(d, bpsDenominator)
	d.Quo(d, quoted)
	if !d.IsInt64() {
		if d.Sign() > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return d.Int64()
}
