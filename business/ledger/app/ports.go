// Package app contains application services and port definitions for the ledger context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
)

// Submitter executes a unit of work atomically.
//
// A returned error means the unit could not be submitted at all and nothing
// happened. Once submitted, the result is always a Submission: committed,
// reverted with no balance change, or abandoned at the deadline.
type Submitter interface {
	SubmitAtomic(ctx context.Context, unit *domain.UnitOfWork) (*domain.Submission, error)
}

// GasOracle prices transactions.
type GasOracle interface {
	// SuggestGasPrice returns the current EIP-1559 bid.
	SuggestGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed to send data to to from from.
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
}

// ReceiptWatcher waits for a transaction to be mined.
type ReceiptWatcher interface {
	// WaitMined blocks until the receipt is available or ctx is done.
	WaitMined(ctx context.Context, tx common.Hash) (*domain.Receipt, error)
}
