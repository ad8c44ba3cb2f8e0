package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Verdict is the result of a profitability check. It is filled in on both
// accept and reject so callers can report the margin.
type Verdict struct {
	Ok              bool
	Gross           asset.Amount
	RepaymentDue    asset.Amount
	RequiredMinimum asset.Amount
	Margin          *big.Int // gross - repaymentDue, may be negative
}

// RequiredMinimum returns repaymentDue + ceil(repaymentDue*minMarginBps/10000).
func RequiredMinimum(repaymentDue asset.Amount, minMarginBps uint32) asset.Amount {
	return repaymentDue.MustAdd(repaymentDue.CeilBps(minMarginBps))
}

// CheckProfitable accepts gross proceeds that cover the repayment plus the
// margin. A rejection returns the verdict and a PROFITABILITY_REJECTED error.
func CheckProfitable(gross, repaymentDue asset.Amount, minMarginBps uint32) (Verdict, error) {
	margin, err := gross.SignedDiff(repaymentDue)
	if err != nil {
		return Verdict{}, apperror.Internal(apperror.CodeInvalidInput, "gross and repayment differ in asset", err)
	}

	required := RequiredMinimum(repaymentDue, minMarginBps)
	v := Verdict{
		Gross:           gross,
		RepaymentDue:    repaymentDue,
		RequiredMinimum: required,
		Margin:          margin,
	}

	if gross.Raw().Cmp(required.Raw()) < 0 {
		return v, apperror.Validation(apperror.CodeProfitabilityRejected,
			fmt.Sprintf("gross %s below required %s", gross.Raw(), required.Raw()))
	}

	v.Ok = true
	return v, nil
}
