// Package domain contains the core domain types for the ledger context:
// atomic units of work, their submissions and gas pricing.
package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapKind selects the router interface a swap is executed through.
type SwapKind int

const (
	SwapConstantProduct SwapKind = iota + 1
	SwapConcentrated
)

// String returns the kind name.
func (k SwapKind) String() string {
	switch k {
	case SwapConstantProduct:
		return "v2"
	case SwapConcentrated:
		return "v3"
	}
	return "unknown"
}

// Swap is one exact-input swap. Fee is bps for constant-product swaps and
// hundredths of a bip for concentrated ones.
type Swap struct {
	Router       common.Address
	Pool         common.Address
	Kind         SwapKind
	TokenIn      common.Address
	TokenOut     common.Address
	Fee          uint32
	MinAmountOut *big.Int
}

// Borrow is the flash loan opening a unit of work.
type Borrow struct {
	Provider     common.Address
	Asset        common.Address
	Principal    *big.Int
	RepaymentDue *big.Int
}

// Executor performs swaps on behalf of a running unit of work.
type Executor interface {
	Swap(ctx context.Context, swap Swap, amountIn *big.Int) (*big.Int, error)
}

// Callback runs inside the loan. It receives the borrowed principal and
// returns the gross proceeds in the borrowed asset. Any error reverts the unit.
type Callback interface {
	OnLoan(ctx context.Context, ex Executor, principal *big.Int) (*big.Int, error)
}

// UnitOfWork is everything submitted as one indivisible ledger execution.
//
// With a Borrow, the principal is credited before Callback runs and
// RepaymentDue is debited after it; proceeds below MinProceeds revert.
// Without a Borrow, AmountIn is drawn from the executor's own balance.
// A nil Callback makes the ledger run Swaps in order, chaining outputs.
type UnitOfWork struct {
	ID          string
	Borrow      *Borrow
	AmountIn    *big.Int
	Swaps       []Swap
	MinProceeds *big.Int
	Callback    Callback
}

// InputAsset returns the asset the unit starts with.
func (u *UnitOfWork) InputAsset() common.Address {
	if u.Borrow != nil {
		return u.Borrow.Asset
	}
	if len(u.Swaps) > 0 {
		return u.Swaps[0].TokenIn
	}
	return common.Address{}
}

// InputAmount returns the principal or the funded input amount.
func (u *UnitOfWork) InputAmount() *big.Int {
	if u.Borrow != nil {
		return u.Borrow.Principal
	}
	return u.AmountIn
}
