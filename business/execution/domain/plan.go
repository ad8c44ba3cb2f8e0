package domain

import (
	"fmt"
	"sort"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// ExecutionPlan is the ordered (buy, sell) pair of one arbitrage attempt.
// The buy output feeds the sell input and the sell output returns to the
// borrowed asset.
type ExecutionPlan struct {
	Buy  Leg
	Sell Leg

	expectedBuyOut  *asset.Amount
	expectedSellOut *asset.Amount
}

// BuildPlan checks both legs and the token flow between them.
func BuildPlan(buy, sell Leg) (*ExecutionPlan, error) {
	for _, l := range []Leg{buy, sell} {
		if l.TokenIn == nil || l.TokenOut == nil {
			return nil, apperror.Validation(apperror.CodeInvalidInput, "leg tokens are required")
		}
		if l.TokenIn.Equals(l.TokenOut) {
			return nil, apperror.Validation(apperror.CodeDegenerateLeg,
				fmt.Sprintf("leg swaps %s for itself", l.TokenIn.Symbol()))
		}
	}
	if !buy.TokenOut.Equals(sell.TokenIn) {
		return nil, apperror.Validation(apperror.CodeDiscontinuousLegs,
			fmt.Sprintf("buy leg yields %s but sell leg spends %s", buy.TokenOut.Symbol(), sell.TokenIn.Symbol()))
	}
	if !buy.TokenIn.Equals(sell.TokenOut) {
		return nil, apperror.Validation(apperror.CodeDiscontinuousLegs,
			fmt.Sprintf("cycle starts in %s but ends in %s", buy.TokenIn.Symbol(), sell.TokenOut.Symbol()))
	}

	return &ExecutionPlan{Buy: buy, Sell: sell}, nil
}

// BorrowAsset returns the asset the cycle starts and ends in.
func (p *ExecutionPlan) BorrowAsset() *asset.Asset {
	return p.Buy.TokenIn
}

// WithExpected returns a copy of the plan carrying quoted leg outputs.
func (p *ExecutionPlan) WithExpected(buyOut, sellOut asset.Amount) *ExecutionPlan {
	cp := *p
	cp.expectedBuyOut = &buyOut
	cp.expectedSellOut = &sellOut
	return &cp
}

// Expected returns the quoted outputs, if the plan was quoted.
func (p *ExecutionPlan) Expected() (buyOut, sellOut asset.Amount, ok bool) {
	if p.expectedBuyOut == nil || p.expectedSellOut == nil {
		return asset.Amount{}, asset.Amount{}, false
	}
	return *p.expectedBuyOut, *p.expectedSellOut, true
}

// PoolKeys returns the sorted, deduplicated lock keys of both legs.
func (p *ExecutionPlan) PoolKeys() []string {
	keys := []string{p.Buy.PoolKey()}
	if k := p.Sell.PoolKey(); k != keys[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
