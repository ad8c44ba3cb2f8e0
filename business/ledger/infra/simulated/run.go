package simulated

import (
	"context"
	"fmt"
	"math/big"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// execution is one unit running under the ledger lock. It is the
// domain.Executor handed to callbacks.
type execution struct {
	ledger  *Ledger
	outputs []*big.Int
}

func (e *execution) execute(ctx context.Context, unit *domain.UnitOfWork) (*big.Int, error) {
	l := e.ledger

	if unit.Borrow == nil {
		if unit.AmountIn == nil || unit.AmountIn.Sign() <= 0 {
			return nil, apperror.Validation(apperror.CodeInvalidInput, "unit has no input amount")
		}
		if unit.Callback != nil {
			return nil, apperror.Validation(apperror.CodeInvalidInput, "callback needs a borrow")
		}
		out, err := e.chain(ctx, unit.Swaps, unit.AmountIn)
		if err != nil {
			return nil, err
		}
		return out, e.checkMin(out, unit.MinProceeds)
	}

	b := unit.Borrow
	if b.Principal == nil || b.Principal.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodePrincipalZero, "principal must be positive")
	}
	if err := l.debit(b.Provider, b.Asset, b.Principal, "insufficient lender liquidity"); err != nil {
		return nil, err
	}
	l.credit(l.executor, b.Asset, b.Principal)

	var (
		gross *big.Int
		err   error
	)
	if unit.Callback != nil {
		gross, err = unit.Callback.OnLoan(ctx, e, new(big.Int).Set(b.Principal))
	} else {
		gross, err = e.chain(ctx, unit.Swaps, b.Principal)
	}
	if err != nil {
		return nil, err
	}
	if err := e.checkMin(gross, unit.MinProceeds); err != nil {
		return nil, err
	}

	due := b.RepaymentDue
	if due == nil {
		due = b.Principal
	}
	if err := l.debit(l.executor, b.Asset, due, "flash loan not repaid"); err != nil {
		return nil, err
	}
	l.credit(b.Provider, b.Asset, due)

	return gross, nil
}

func (e *execution) chain(ctx context.Context, swaps []domain.Swap, amountIn *big.Int) (*big.Int, error) {
	if len(swaps) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "unit has no swaps")
	}
	amount := amountIn
	for _, s := range swaps {
		out, err := e.Swap(ctx, s, amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}
	return amount, nil
}

func (e *execution) checkMin(out, floor *big.Int) error {
	if floor != nil && out.Cmp(floor) < 0 {
		return apperror.Validation(apperror.CodeProfitabilityRejected,
			fmt.Sprintf("proceeds %s below minimum %s", out, floor))
	}
	return nil
}

// Swap moves amountIn of the executor's tokenIn through the pool.
func (e *execution) Swap(ctx context.Context, s domain.Swap, amountIn *big.Int) (*big.Int, error) {
	l := e.ledger

	if err := ctx.Err(); err != nil {
		return nil, apperror.Internal(apperror.CodeAbandoned, "context ended mid-unit", err)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeLedgerReverted, "zero swap input")
	}

	pool, ok := l.pools[s.Pool]
	if !ok {
		return nil, apperror.Validation(apperror.CodePoolNotFound, fmt.Sprintf("no pool at %s", s.Pool.Hex()))
	}
	t0, t1 := pool.Tokens()
	if !(s.TokenIn == t0 && s.TokenOut == t1) && !(s.TokenIn == t1 && s.TokenOut == t0) {
		return nil, apperror.Validation(apperror.CodeLedgerReverted, "token pair does not match pool")
	}
	if reason, ok := l.faults[s.Pool]; ok {
		delete(l.faults, s.Pool)
		return nil, apperror.Validation(apperror.CodeLedgerReverted, reason)
	}

	if err := l.debit(l.executor, s.TokenIn, amountIn, "STF"); err != nil {
		return nil, err
	}
	out, err := pool.Swap(ctx, s.TokenIn, amountIn)
	if err != nil {
		return nil, err
	}

	if s.MinAmountOut != nil && out.Cmp(s.MinAmountOut) < 0 {
		reason := "Too little received"
		if s.Kind == domain.SwapConstantProduct {
			reason = "UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT"
		}
		return nil, apperror.Validation(apperror.CodeLedgerReverted, reason)
	}

	l.credit(l.executor, s.TokenOut, out)
	e.outputs = append(e.outputs, new(big.Int).Set(out))
	return out, nil
}
