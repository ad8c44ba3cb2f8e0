package asset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is an observed exchange rate: how many quote units one base unit buys.
// It is derived from a realised or quoted swap and used for display only.
type Price struct {
	rate  decimal.Decimal
	base  *Asset
	quote *Asset
}

// PriceFromSwap derives the execution price of a swap, adjusted for decimals.
// A zero input yields a zero price.
func PriceFromSwap(in, out Amount) Price {
	p := Price{base: in.Asset(), quote: out.Asset()}
	if in.IsZero() {
		return p
	}
	p.rate = out.ToDecimal().Div(in.ToDecimal())
	return p
}

// Rate returns the price rate.
func (p Price) Rate() decimal.Decimal {
	return p.rate
}

// Base returns the base asset.
func (p Price) Base() *Asset {
	return p.base
}

// Quote returns the quote asset.
func (p Price) Quote() *Asset {
	return p.quote
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate.IsZero()
}

// Invert returns the inverse price (WMATIC/MANA -> MANA/WMATIC).
func (p Price) Invert() Price {
	inv := Price{base: p.quote, quote: p.base}
	if !p.rate.IsZero() {
		inv.rate = decimal.NewFromInt(1).DivRound(p.rate, 18)
	}
	return inv
}

// Pair returns the trading pair symbol (e.g., "WMATIC/MANA").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// String returns a human-readable representation.
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.rate.StringFixed(6), p.Pair())
}
