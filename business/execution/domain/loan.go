package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// FlashLoanRequest is a plan wrapped with a borrow. It lives for one
// coordinator invocation and cannot be executed twice.
type FlashLoanRequest struct {
	Asset          *asset.Asset
	Principal      asset.Amount
	ProviderFeeBps uint32
	Plan           *ExecutionPlan

	consumed atomic.Bool
}

// WrapWithLoan borrows principal of the plan's starting asset.
func WrapWithLoan(plan *ExecutionPlan, principal asset.Amount, providerFeeBps uint32) (*FlashLoanRequest, error) {
	if plan == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "plan is required")
	}
	if principal.Asset() == nil || principal.IsZero() {
		return nil, apperror.Validation(apperror.CodePrincipalZero, "principal must be positive")
	}
	if !principal.Asset().Equals(plan.BorrowAsset()) {
		return nil, apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("principal is %s but the cycle starts in %s", principal.Asset().Symbol(), plan.BorrowAsset().Symbol()))
	}

	return &FlashLoanRequest{
		Asset:          plan.BorrowAsset(),
		Principal:      principal,
		ProviderFeeBps: providerFeeBps,
		Plan:           plan,
	}, nil
}

// ProviderFee returns ceil(principal*feeBps/10000).
func (r *FlashLoanRequest) ProviderFee() asset.Amount {
	return r.Principal.CeilBps(r.ProviderFeeBps)
}

// RepaymentDue returns principal plus the provider fee.
func (r *FlashLoanRequest) RepaymentDue() asset.Amount {
	return r.Principal.MustAdd(r.ProviderFee())
}

// Consume marks the request as used. Only the first call succeeds.
func (r *FlashLoanRequest) Consume() error {
	if !r.consumed.CompareAndSwap(false, true) {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("flash loan request was already executed"),
			apperror.WithCause(apperror.New(apperror.CodeRequestAlreadyConsumed)))
	}
	return nil
}

// Consumed reports whether the request has been executed.
func (r *FlashLoanRequest) Consumed() bool {
	return r.consumed.Load()
}
