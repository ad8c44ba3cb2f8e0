package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the final disposition of a submitted unit.
type Status int

const (
	StatusCommitted Status = iota + 1
	StatusReverted
	StatusAbandoned
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusReverted:
		return "reverted"
	case StatusAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Receipt identifies where a unit landed.
type Receipt struct {
	TxHash            common.Hash
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Succeeded         bool
}

// Submission is what the ledger reports back for a unit.
//
// Reverted submissions never change balances. Reason is the provider's
// revert string; Cause carries a classified error when one is known.
// Abandoned means the outcome was not learned before the deadline.
type Submission struct {
	Status        Status
	Receipt       *Receipt
	TxHash        common.Hash
	Reason        string
	Cause         error
	GrossProceeds *big.Int
	LegOutputs    []*big.Int
}

// Committed reports whether the unit committed.
func (s *Submission) Committed() bool {
	return s != nil && s.Status == StatusCommitted
}
