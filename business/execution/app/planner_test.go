package app

import (
	"context"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestPlanner_QuotePlan(t *testing.T) {
	f := newSimFixture(t)

	tests := []struct {
		name           string
		minMarginBps   uint32
		wantProfitable bool
	}{
		{name: "covers repayment", minMarginBps: 0, wantProfitable: true},
		{name: "margin too high", minMarginBps: 2_000, wantProfitable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(f.model, PlannerConfig{ProviderFeeBps: 9, MinMarginBps: tt.minMarginBps})
			plan, err := p.BuildPlan(f.buy, f.sell)
			if err != nil {
				t.Fatalf("BuildPlan() error = %v", err)
			}

			preview, err := p.QuotePlan(context.Background(), plan, amountA(50_000))
			if err != nil {
				t.Fatalf("QuotePlan() error = %v", err)
			}

			if got := preview.Buy.AmountOut.Raw().Int64(); got != 94_965 {
				t.Errorf("buy out = %d, want 94965", got)
			}
			if got := preview.Sell.AmountOut.Raw().Int64(); got != 54_240 {
				t.Errorf("sell out = %d, want 54240", got)
			}
			if got := preview.RepaymentDue.Raw().Int64(); got != 50_045 {
				t.Errorf("repayment = %d, want 50045", got)
			}
			if preview.Profitable() != tt.wantProfitable {
				t.Errorf("Profitable() = %v, want %v (reason %q)", preview.Profitable(), tt.wantProfitable, preview.Reason)
			}
			if !tt.wantProfitable && preview.Reason == "" {
				t.Error("rejected preview has no reason")
			}

			buyOut, sellOut, ok := preview.Plan.Expected()
			if !ok || buyOut.Raw().Int64() != 94_965 || sellOut.Raw().Int64() != 54_240 {
				t.Errorf("Expected() = %s, %s, %v", buyOut.Raw(), sellOut.Raw(), ok)
			}
		})
	}
}

func TestPlanner_BuildPlanDiscontinuous(t *testing.T) {
	f := newSimFixture(t)
	p := NewPlanner(f.model, PlannerConfig{})

	if _, err := p.BuildPlan(f.buy, f.buy); !apperror.HasCode(err, apperror.CodeDiscontinuousLegs) {
		t.Errorf("error = %v, want DISCONTINUOUS_LEGS", err)
	}
}

func TestPlanner_QuotePlanZeroPrincipal(t *testing.T) {
	f := newSimFixture(t)
	p := NewPlanner(f.model, PlannerConfig{})
	plan, err := p.BuildPlan(f.buy, f.sell)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.QuotePlan(context.Background(), plan, amountA(0)); !apperror.HasCode(err, apperror.CodePrincipalZero) {
		t.Errorf("error = %v, want PRINCIPAL_ZERO", err)
	}
}
