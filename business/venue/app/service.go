package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// VenueService is the single read facade over both venue families.
type VenueService struct {
	pairs  PairReader
	pools  PoolReader
	quoter Quoter
}

// NewVenueService creates a new VenueService.
func NewVenueService(pairs PairReader, pools PoolReader, quoter Quoter) *VenueService {
	return &VenueService{
		pairs:  pairs,
		pools:  pools,
		quoter: quoter,
	}
}

// GetReserves reads a constant-product pair.
func (s *VenueService) GetReserves(ctx context.Context, pair common.Address) (*domain.Reserves, error) {
	return s.pairs.GetReserves(ctx, pair)
}

// GetLiquidityState reads a concentrated pool.
func (s *VenueService) GetLiquidityState(ctx context.Context, pool common.Address) (*domain.LiquidityState, error) {
	return s.pools.GetLiquidityState(ctx, pool)
}

// QuoteExactInputSingle quotes a concentrated-pool swap.
func (s *VenueService) QuoteExactInputSingle(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amountIn must be positive")
	}
	return s.quoter.QuoteExactInputSingle(ctx, req)
}

// ResolvePool finds the pool address for ref through the matching factory.
func (s *VenueService) ResolvePool(ctx context.Context, ref domain.PoolRef) (common.Address, error) {
	switch ref.Kind {
	case domain.PoolKindConstantProduct:
		return s.pairs.ResolvePair(ctx, ref.TokenA, ref.TokenB)
	case domain.PoolKindConcentrated:
		return s.pools.ResolvePool(ctx, ref.TokenA, ref.TokenB, ref.Fee)
	default:
		return common.Address{}, apperror.New(apperror.CodeInvalidPoolVariant,
			apperror.WithContext(fmt.Sprintf("pool kind %d", ref.Kind)))
	}
}
