package simulated

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// VenueReader is the live venue surface a forked ledger mirrors.
type VenueReader interface {
	GetReserves(ctx context.Context, pair common.Address) (*venueDomain.Reserves, error)
	GetLiquidityState(ctx context.Context, pool common.Address) (*venueDomain.LiquidityState, error)
	QuoteExactInputSingle(ctx context.Context, req venueDomain.QuoteRequest) (*venueDomain.Quote, error)
	ResolvePool(ctx context.Context, ref venueDomain.PoolRef) (common.Address, error)
}

// StateReader answers venue reads from the ledger's own pools and falls
// back to live for everything else. live may be nil.
type StateReader struct {
	ledger *Ledger
	live   VenueReader
}

// NewStateReader creates a reader over l.
func NewStateReader(l *Ledger, live VenueReader) *StateReader {
	return &StateReader{ledger: l, live: live}
}

// GetReserves returns the ledger's reserves for a constant-product pool.
func (r *StateReader) GetReserves(ctx context.Context, pair common.Address) (*venueDomain.Reserves, error) {
	if p, ok := r.ledger.Pool(pair); ok {
		cp, ok := p.(*ConstantProductPool)
		if !ok {
			return nil, apperror.Validation(apperror.CodeInvalidPoolVariant,
				fmt.Sprintf("pool %s is not constant-product", pair.Hex()))
		}
		r.ledger.mu.Lock()
		r0, r1 := cp.Reserves()
		r.ledger.mu.Unlock()

		t0, t1 := cp.Tokens()
		return &venueDomain.Reserves{Pair: pair, Token0: t0, Token1: t1, Reserve0: r0, Reserve1: r1}, nil
	}
	if r.live == nil {
		return nil, apperror.Validation(apperror.CodePoolNotFound, fmt.Sprintf("no pool at %s", pair.Hex()))
	}
	return r.live.GetReserves(ctx, pair)
}

func (r *StateReader) GetLiquidityState(ctx context.Context, pool common.Address) (*venueDomain.LiquidityState, error) {
	if r.live == nil {
		return nil, apperror.Validation(apperror.CodePoolNotFound, fmt.Sprintf("no pool at %s", pool.Hex()))
	}
	return r.live.GetLiquidityState(ctx, pool)
}

func (r *StateReader) QuoteExactInputSingle(ctx context.Context, req venueDomain.QuoteRequest) (*venueDomain.Quote, error) {
	if r.live == nil {
		return nil, apperror.Validation(apperror.CodeQuoteFailed, "no quoter in offline mode")
	}
	return r.live.QuoteExactInputSingle(ctx, req)
}

// ResolvePool finds a ledger pool holding the pair, then asks live.
func (r *StateReader) ResolvePool(ctx context.Context, ref venueDomain.PoolRef) (common.Address, error) {
	r.ledger.mu.Lock()
	for addr, p := range r.ledger.pools {
		if !kindMatches(p, ref.Kind) {
			continue
		}
		t0, t1 := p.Tokens()
		if (t0 == ref.TokenA && t1 == ref.TokenB) || (t0 == ref.TokenB && t1 == ref.TokenA) {
			r.ledger.mu.Unlock()
			return addr, nil
		}
	}
	r.ledger.mu.Unlock()

	if r.live == nil {
		return common.Address{}, apperror.Validation(apperror.CodePoolNotFound, "pool not found")
	}
	return r.live.ResolvePool(ctx, ref)
}

func kindMatches(p Pool, kind venueDomain.PoolKind) bool {
	switch p.(type) {
	case *ConstantProductPool:
		return kind == venueDomain.PoolKindConstantProduct
	case *QuotedPool:
		return kind == venueDomain.PoolKindConcentrated
	}
	return false
}

// ForkSpec names a live pool to mirror into the ledger.
type ForkSpec struct {
	Kind   domain.SwapKind
	Pool   common.Address
	TokenA common.Address
	TokenB common.Address
	Fee    uint32
}

// Fork copies live constant-product reserves into the ledger and backs
// concentrated pools with the live quoter. Specs without a pool address are
// resolved through live first.
func (l *Ledger) Fork(ctx context.Context, live VenueReader, specs []ForkSpec) error {
	for _, spec := range specs {
		addr := spec.Pool
		if addr == (common.Address{}) {
			kind := venueDomain.PoolKindConstantProduct
			if spec.Kind == domain.SwapConcentrated {
				kind = venueDomain.PoolKindConcentrated
			}
			var err error
			addr, err = live.ResolvePool(ctx, venueDomain.PoolRef{
				Kind:   kind,
				TokenA: spec.TokenA,
				TokenB: spec.TokenB,
				Fee:    spec.Fee,
			})
			if err != nil {
				return err
			}
		}

		switch spec.Kind {
		case domain.SwapConstantProduct:
			res, err := live.GetReserves(ctx, addr)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeExternalServiceError, "fork constant-product pool")
			}
			l.AddPool(NewConstantProductPool(addr, res.Token0, res.Token1, res.Reserve0, res.Reserve1, spec.Fee))

		case domain.SwapConcentrated:
			fee := spec.Fee
			l.AddPool(NewQuotedPool(addr, spec.TokenA, spec.TokenB,
				func(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
					q, err := live.QuoteExactInputSingle(ctx, venueDomain.QuoteRequest{
						TokenIn:  tokenIn,
						TokenOut: tokenOut,
						Fee:      fee,
						AmountIn: amountIn,
					})
					if err != nil {
						return nil, err
					}
					return q.AmountOut, nil
				}))

		default:
			return apperror.Validation(apperror.CodeInvalidPoolVariant, fmt.Sprintf("unknown swap kind %d", spec.Kind))
		}

		l.log.Info(ctx, "forked pool", "kind", spec.Kind.String(), "pool", addr.Hex())
	}
	return nil
}
