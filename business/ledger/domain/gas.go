package domain

import (
	"math/big"
	"time"
)

var weiPerGwei = big.NewFloat(1e9)

// GasPrice is an EIP-1559 fee bid.
type GasPrice struct {
	BaseFee   *big.Int
	TipCap    *big.Int
	FeeCap    *big.Int
	Timestamp time.Time
}

// NewGasPrice builds a bid paying tip on top of twice the base fee,
// capped at maxFeeCap when it is non-nil.
func NewGasPrice(baseFee, tip, maxFeeCap *big.Int) *GasPrice {
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	if maxFeeCap != nil && feeCap.Cmp(maxFeeCap) > 0 {
		feeCap = new(big.Int).Set(maxFeeCap)
	}
	if tip.Cmp(feeCap) > 0 {
		tip = new(big.Int).Set(feeCap)
	}

	return &GasPrice{
		BaseFee:   new(big.Int).Set(baseFee),
		TipCap:    new(big.Int).Set(tip),
		FeeCap:    feeCap,
		Timestamp: time.Now(),
	}
}

// FeeCapGwei returns the fee cap in gwei, for display.
func (g *GasPrice) FeeCapGwei() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(g.FeeCap), weiPerGwei).Float64()
	return f
}

// GweiToWei converts a gwei amount to wei.
func GweiToWei(gwei float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), weiPerGwei).Int(nil)
	return wei
}

// GasEstimate is a gas limit plus the bid it will be paid at.
type GasEstimate struct {
	GasLimit uint64
	Price    *GasPrice
}

// MaxCostWei returns the worst-case fee: gasLimit * feeCap.
func (e *GasEstimate) MaxCostWei() *big.Int {
	return new(big.Int).Mul(e.Price.FeeCap, new(big.Int).SetUint64(e.GasLimit))
}
