package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

const tracerName = "github.com/fd1az/flashloan-arb/business/execution/app"

// LegQuote is the expected result of one leg.
type LegQuote struct {
	Leg       domain.Leg
	AmountIn  asset.Amount
	AmountOut asset.Amount

	// SpotOut is the output at the current price with no fee or impact.
	SpotOut     asset.Amount
	SlippageBps uint32
}

// PoolModel prices legs against current pool state.
type PoolModel struct {
	venue  VenueStateReader
	tracer trace.Tracer
}

// NewPoolModel creates a pool model reading from venue.
func NewPoolModel(venue VenueStateReader) *PoolModel {
	return &PoolModel{
		venue:  venue,
		tracer: otel.Tracer(tracerName),
	}
}

// ResolveLeg binds a concentrated leg without a pool address to the pool
// the venue factory reports for its fee tier.
func (m *PoolModel) ResolveLeg(ctx context.Context, leg domain.Leg) (domain.Leg, error) {
	if leg.HasPool() {
		return leg, nil
	}
	ref := venueDomain.PoolRef{
		TokenA: leg.TokenIn.Address(),
		TokenB: leg.TokenOut.Address(),
	}
	switch v := leg.Variant.(type) {
	case domain.ConstantProduct:
		ref.Kind, ref.Fee = venueDomain.PoolKindConstantProduct, v.FeeBps
	case domain.ConcentratedLiquidity:
		ref.Kind, ref.Fee = venueDomain.PoolKindConcentrated, v.FeeTier
	default:
		return leg, domain.ValidateVariant(leg.Variant)
	}

	pool, err := m.venue.ResolvePool(ctx, ref)
	if err != nil {
		return leg, err
	}
	return leg.WithPool(pool), nil
}

// QuoteLeg returns the expected output of selling amountIn on leg.
// Constant-product legs are priced locally from reserves; concentrated legs
// are quoted by the venue.
func (m *PoolModel) QuoteLeg(ctx context.Context, leg domain.Leg, amountIn asset.Amount) (*LegQuote, error) {
	ctx, span := m.tracer.Start(ctx, "execution.quote_leg",
		trace.WithAttributes(
			attribute.String("leg", leg.String()),
			attribute.String("amount_in", amountIn.Raw().String()),
		),
	)
	defer span.End()

	if !amountIn.IsPositive() {
		err := apperror.Validation(apperror.CodeInvalidInput, "amount in must be positive")
		apm.Fail(span, err)
		return nil, err
	}
	if !amountIn.Asset().Equals(leg.TokenIn) {
		err := apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("amount is %s but leg spends %s", amountIn.Asset().Symbol(), leg.TokenIn.Symbol()))
		apm.Fail(span, err)
		return nil, err
	}

	leg, err := m.ResolveLeg(ctx, leg)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	var q *LegQuote
	switch v := leg.Variant.(type) {
	case domain.ConstantProduct:
		q, err = m.quoteConstantProduct(ctx, leg, v, amountIn)
	case domain.ConcentratedLiquidity:
		q, err = m.quoteConcentrated(ctx, leg, v, amountIn)
	default:
		err = domain.ValidateVariant(leg.Variant)
	}
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("amount_out", q.AmountOut.Raw().String()),
		attribute.Int("slippage_bps", int(q.SlippageBps)),
	)
	apm.Succeed(span)
	return q, nil
}

func (m *PoolModel) quoteConstantProduct(ctx context.Context, leg domain.Leg, v domain.ConstantProduct, amountIn asset.Amount) (*LegQuote, error) {
	res, err := m.venue.GetReserves(ctx, leg.Pool)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := res.Oriented(leg.TokenIn.Address())
	if err != nil {
		return nil, err
	}

	out, err := domain.QuoteConstantProduct(reserveIn, reserveOut, amountIn.Raw(), v.FeeBps)
	if err != nil {
		return nil, err
	}
	spot := domain.SpotOutput(reserveIn, reserveOut, amountIn.Raw())

	return &LegQuote{
		Leg:         leg,
		AmountIn:    amountIn,
		AmountOut:   asset.NewAmount(leg.TokenOut, out),
		SpotOut:     asset.NewAmount(leg.TokenOut, spot),
		SlippageBps: domain.SlippageBps(spot, out),
	}, nil
}

func (m *PoolModel) quoteConcentrated(ctx context.Context, leg domain.Leg, v domain.ConcentratedLiquidity, amountIn asset.Amount) (*LegQuote, error) {
	state, err := m.venue.GetLiquidityState(ctx, leg.Pool)
	if err != nil {
		return nil, err
	}
	if !state.HasLiquidity() {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("pool %s has no active liquidity", leg.Pool.Hex())))
	}

	quote, err := m.venue.QuoteExactInputSingle(ctx, venueDomain.QuoteRequest{
		TokenIn:  leg.TokenIn.Address(),
		TokenOut: leg.TokenOut.Address(),
		Fee:      v.FeeTier,
		AmountIn: amountIn.Raw(),
	})
	if err != nil {
		return nil, err
	}
	if quote.AmountOut == nil {
		return nil, apperror.New(apperror.CodeQuoteFailed, apperror.WithContext("quoter returned no amount"))
	}

	q := &LegQuote{
		Leg:       leg,
		AmountIn:  amountIn,
		AmountOut: asset.NewAmount(leg.TokenOut, quote.AmountOut),
		SpotOut:   asset.Zero(leg.TokenOut),
	}

	// Spot needs slot0; quoted pools without a price report no slippage.
	if state.SqrtPriceX96 != nil && state.SqrtPriceX96.Sign() > 0 {
		zeroForOne, err := state.ZeroForOne(leg.TokenIn.Address())
		if err != nil {
			return nil, err
		}
		spot := domain.SpotOutputFromSqrtPrice(state.SqrtPriceX96, amountIn.Raw(), zeroForOne)
		q.SpotOut = asset.NewAmount(leg.TokenOut, spot)
		q.SlippageBps = domain.SlippageBps(spot, quote.AmountOut)
	}
	return q, nil
}
