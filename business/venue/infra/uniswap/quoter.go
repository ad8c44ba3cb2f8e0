package uniswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/venue/app"
	"github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Ensure Quoter implements app.Quoter.
var _ app.Quoter = (*Quoter)(nil)

// Quoter calls QuoterV2.quoteExactInputSingle.
type Quoter struct {
	quoter  *caller
	address common.Address
	logger  logger.LoggerInterface
}

// NewQuoter creates a quoter client for the QuoterV2 contract at address.
func NewQuoter(client ethereum.ContractCaller, address common.Address, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Quoter, error) {
	c, err := newCaller(client, QuoterV2ABI, "v3_quoter", limiter)
	if err != nil {
		return nil, err
	}
	return &Quoter{quoter: c, address: address, logger: log}, nil
}

// QuoteExactInputSingle quotes a single-pool exact-input swap.
// A quoter revert is reported as QUOTE_FAILED.
func (q *Quoter) QuoteExactInputSingle(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	out, err := q.quoter.call(ctx, q.address, "quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           req.TokenIn,
		TokenOut:          req.TokenOut,
		AmountIn:          req.AmountIn,
		Fee:               new(big.Int).SetUint64(uint64(req.Fee)),
		SqrtPriceLimitX96: big.NewInt(0), // No price limit
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeContractCallFailed {
			return nil, apperror.New(apperror.CodeQuoteFailed, apperror.WithCause(err),
				apperror.WithContext(apperror.Reason(err)))
		}
		return nil, err
	}
	if len(out) < 4 {
		return nil, apperror.New(apperror.CodeQuoteFailed, apperror.WithContext("unexpected quoter output"))
	}

	quote := &domain.Quote{
		AmountOut:               out[0].(*big.Int),
		SqrtPriceX96After:       out[1].(*big.Int),
		InitializedTicksCrossed: out[2].(uint32),
		GasEstimate:             out[3].(*big.Int).Uint64(),
	}

	q.logger.Debug(ctx, "v3 quote",
		"token_in", req.TokenIn.Hex(),
		"token_out", req.TokenOut.Hex(),
		"fee", req.Fee,
		"amount_in", req.AmountIn.String(),
		"amount_out", quote.AmountOut.String(),
	)
	return quote, nil
}
