package domain

import (
	"testing"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

func TestCheckProfitable(t *testing.T) {
	tests := []struct {
		name         string
		gross        int64
		repayment    int64
		marginBps    uint32
		wantOk       bool
		wantRequired int64
		wantMargin   int64
	}{
		{"below_repayment", 1_000_500, 1_000_900, 0, false, 1_000_900, -400},
		{"above_repayment", 1_001_000, 1_000_900, 0, true, 1_000_900, 100},
		{"breakeven", 1_000_900, 1_000_900, 0, true, 1_000_900, 0},
		// ceil(1,000,900*10/10000) = 1,001
		{"margin_rejects", 1_001_000, 1_000_900, 10, false, 1_001_901, 100},
		{"margin_accepts", 1_002_000, 1_000_900, 10, true, 1_001_901, 1_100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross := asset.NewAmountFromInt64(asset.WMATIC, tt.gross)
			due := asset.NewAmountFromInt64(asset.WMATIC, tt.repayment)

			v, err := CheckProfitable(gross, due, tt.marginBps)
			if v.Ok != tt.wantOk {
				t.Errorf("Ok = %v, want %v", v.Ok, tt.wantOk)
			}
			if tt.wantOk && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			if !tt.wantOk && !apperror.HasCode(err, apperror.CodeProfitabilityRejected) {
				t.Errorf("error = %v, want PROFITABILITY_REJECTED", err)
			}
			if got := v.RequiredMinimum.Raw().Int64(); got != tt.wantRequired {
				t.Errorf("RequiredMinimum = %d, want %d", got, tt.wantRequired)
			}
			if got := v.Margin.Int64(); got != tt.wantMargin {
				t.Errorf("Margin = %d, want %d", got, tt.wantMargin)
			}
		})
	}
}

func TestCheckProfitable_Idempotent(t *testing.T) {
	gross := asset.NewAmountFromInt64(asset.WMATIC, 1_000_500)
	due := asset.NewAmountFromInt64(asset.WMATIC, 1_000_900)

	first, firstErr := CheckProfitable(gross, due, 0)
	for i := 0; i < 5; i++ {
		v, err := CheckProfitable(gross, due, 0)
		if v.Ok != first.Ok || (err == nil) != (firstErr == nil) {
			t.Fatalf("call %d: verdict %v/%v, want %v/%v", i, v.Ok, err, first.Ok, firstErr)
		}
		if v.Margin.Cmp(first.Margin) != 0 {
			t.Fatalf("call %d: margin %s, want %s", i, v.Margin, first.Margin)
		}
	}
}

func TestCheckProfitable_AssetMismatch(t *testing.T) {
	_, err := CheckProfitable(asset.NewAmountFromInt64(asset.MANA, 1), asset.NewAmountFromInt64(asset.WMATIC, 1), 0)
	if err == nil || apperror.HasCode(err, apperror.CodeProfitabilityRejected) {
		t.Errorf("error = %v, want a non-rejection error", err)
	}
}
