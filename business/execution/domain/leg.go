package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Leg is one exact-input swap on one venue. It is an immutable value.
//
// Pool is the pair address for constant-product legs. For concentrated legs
// it may be zero until resolved from the venue factory by fee tier.
type Leg struct {
	Router   common.Address
	Pool     common.Address
	Variant  PoolVariant
	TokenIn  *asset.Asset
	TokenOut *asset.Asset
}

// NewLeg validates and builds a leg.
func NewLeg(router, pool common.Address, variant PoolVariant, tokenIn, tokenOut *asset.Asset) (Leg, error) {
	if tokenIn == nil || tokenOut == nil {
		return Leg{}, apperror.Validation(apperror.CodeInvalidInput, "leg tokens are required")
	}
	if tokenIn.Equals(tokenOut) {
		return Leg{}, apperror.Validation(apperror.CodeDegenerateLeg,
			fmt.Sprintf("leg swaps %s for itself", tokenIn.Symbol()))
	}
	if err := ValidateVariant(variant); err != nil {
		return Leg{}, err
	}
	if _, ok := variant.(ConstantProduct); ok && pool == (common.Address{}) {
		return Leg{}, apperror.Validation(apperror.CodeInvalidInput, "constant-product leg needs a pair address")
	}

	return Leg{
		Router:   router,
		Pool:     pool,
		Variant:  variant,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
	}, nil
}

// WithPool returns a copy of the leg bound to pool.
func (l Leg) WithPool(pool common.Address) Leg {
	l.Pool = pool
	return l
}

// HasPool reports whether the pool address is known.
func (l Leg) HasPool() bool {
	return l.Pool != (common.Address{})
}

// PoolKey identifies the liquidity a leg touches, for locking. Unresolved
// concentrated legs fall back to pair plus fee tier.
func (l Leg) PoolKey() string {
	if l.HasPool() {
		return l.Pool.Hex()
	}
	a, b := l.TokenIn.Address(), l.TokenOut.Address()
	if b.Cmp(a) < 0 {
		a, b = b, a
	}
	return fmt.Sprintf("%s/%s/%s", a.Hex(), b.Hex(), l.Variant)
}

func (l Leg) String() string {
	return fmt.Sprintf("%s %s->%s", l.Variant, l.TokenIn.Symbol(), l.TokenOut.Symbol())
}
