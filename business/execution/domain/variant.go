// Package domain contains the core domain types for the execution context:
// pool variants, legs, plans, flash loan requests and the attempt state machine.
package domain

import (
	"fmt"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// PoolVariant is a sealed union of the pool families a leg can trade on.
// The only implementations are ConstantProduct and ConcentratedLiquidity.
type PoolVariant interface {
	fmt.Stringer
	isPoolVariant()
}

// ConstantProduct is a V2-style x*y=k pool. The fee is taken from the input.
type ConstantProduct struct {
	FeeBps uint32
}

// ConcentratedLiquidity is a V3-style pool. FeeTier is in hundredths of a
// bip and selects one of several pools for the same pair.
type ConcentratedLiquidity struct {
	FeeTier uint32
}

func (ConstantProduct) isPoolVariant()       {}
func (ConcentratedLiquidity) isPoolVariant() {}

func (v ConstantProduct) String() string {
	return fmt.Sprintf("v2(%dbps)", v.FeeBps)
}

func (v ConcentratedLiquidity) String() string {
	return fmt.Sprintf("v3(%d)", v.FeeTier)
}

var (
	constantProductFees = map[uint32]bool{5: true, 10: true, 20: true, 25: true, 30: true, 100: true}
	concentratedTiers   = map[uint32]bool{100: true, 500: true, 3000: true, 10000: true}
)

// NewConstantProduct returns a constant-product variant for a known fee.
func NewConstantProduct(feeBps uint32) (ConstantProduct, error) {
	if !constantProductFees[feeBps] {
		return ConstantProduct{}, apperror.Validation(apperror.CodeInvalidPoolVariant,
			fmt.Sprintf("unknown constant-product fee %d bps", feeBps))
	}
	return ConstantProduct{FeeBps: feeBps}, nil
}

// NewConcentratedLiquidity returns a concentrated-liquidity variant for a known tier.
func NewConcentratedLiquidity(feeTier uint32) (ConcentratedLiquidity, error) {
	if !concentratedTiers[feeTier] {
		return ConcentratedLiquidity{}, apperror.Validation(apperror.CodeInvalidPoolVariant,
			fmt.Sprintf("unknown fee tier %d", feeTier))
	}
	return ConcentratedLiquidity{FeeTier: feeTier}, nil
}

// ValidateVariant checks v against the known fee sets.
func ValidateVariant(v PoolVariant) error {
	switch v := v.(type) {
	case ConstantProduct:
		_, err := NewConstantProduct(v.FeeBps)
		return err
	case ConcentratedLiquidity:
		_, err := NewConcentratedLiquidity(v.FeeTier)
		return err
	default:
		return apperror.Validation(apperror.CodeInvalidPoolVariant, fmt.Sprintf("unsupported pool variant %T", v))
	}
}
