package domain

import (
	"math/big"
	"time"

	ledger "github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// ExecutionOutcome is the terminal report of one attempt.
type ExecutionOutcome struct {
	AttemptID string
	State     State
	Committed bool

	// Submitted is false when the attempt provably ended before reaching
	// the ledger.
	Submitted bool

	GrossProceeds *big.Int
	RepaymentDue  *big.Int
	NetProfit     *big.Int // signed; nil when gross is unknown

	RevertCode   apperror.Code
	RevertReason string
	Receipt      *ledger.Receipt
	Err          error
	Duration     time.Duration
}

// Reverted reports whether the attempt reverted.
func (o *ExecutionOutcome) Reverted() bool {
	return o.State == StateReverted
}

// Abandoned reports whether the attempt was abandoned.
func (o *ExecutionOutcome) Abandoned() bool {
	return o.State == StateAbandoned
}
