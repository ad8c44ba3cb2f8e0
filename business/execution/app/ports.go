// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
)

// VenueStateReader reads pool state and quotes. It is served by the venue
// context live, or by the simulated ledger for its forked pools.
type VenueStateReader interface {
	GetReserves(ctx context.Context, pair common.Address) (*venueDomain.Reserves, error)
	GetLiquidityState(ctx context.Context, pool common.Address) (*venueDomain.LiquidityState, error)
	QuoteExactInputSingle(ctx context.Context, req venueDomain.QuoteRequest) (*venueDomain.Quote, error)
	ResolvePool(ctx context.Context, ref venueDomain.PoolRef) (common.Address, error)
}

// Reporter defines the interface for reporting execution progress.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Transition is called on every state change of an attempt. It runs
	// inside the submission and must not block.
	Transition(attemptID string, from, to domain.State)

	// Preview shows a quoted plan.
	Preview(p *Preview)

	// Report shows the terminal outcome of an attempt.
	Report(outcome *domain.ExecutionOutcome)

	// LegResult shows the result of a single-leg run.
	LegResult(r *LegResult)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
