package app

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

func newTestService(t *testing.T, minMarginBps uint32) (*ExecutionService, *simFixture, *recordingReporter) {
	t.Helper()
	f := newSimFixture(t)
	rep := &recordingReporter{}
	orch := NewOrchestrator(OrchestratorConfig{
		Provider:             lender,
		ProviderFeeBps:       9,
		MinMarginBps:         minMarginBps,
		SlippageToleranceBps: 50,
	})
	locks := NewLockRegistry()
	coord, err := NewCoordinator(f.ledger, orch, locks, rep,
		CoordinatorConfig{Deadline: time.Second, MinMarginBps: minMarginBps}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	planner := NewPlanner(f.model, PlannerConfig{ProviderFeeBps: 9, MinMarginBps: minMarginBps})
	harness := NewHarness(f.model, orch, f.ledger, locks, time.Second, rep, logger.NewNop())
	return NewExecutionService(f.model, planner, orch, coord, harness, rep), f, rep
}

func TestExecutionService_RunCycle(t *testing.T) {
	tests := []struct {
		name       string
		margin     uint32
		force      bool
		wantState  domain.State
		wantSubmit bool
	}{
		{name: "profitable", wantState: domain.StateCommitted, wantSubmit: true},
		{name: "rejected preview is skipped", margin: 2_000},
		{name: "forced rejected preview reverts", margin: 2_000, force: true, wantState: domain.StateReverted, wantSubmit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, f, rep := newTestService(t, tt.margin)

			preview, out, err := svc.RunCycle(context.Background(), f.buy, f.sell, amountA(50_000), tt.force)
			if err != nil {
				t.Fatalf("RunCycle() error = %v", err)
			}
			if preview == nil || len(rep.previews) != 1 {
				t.Fatalf("preview not returned and reported")
			}

			if !tt.wantSubmit {
				if out != nil {
					t.Errorf("outcome = %+v, want nil", out)
				}
				return
			}
			if out == nil || out.State != tt.wantState {
				t.Fatalf("outcome = %+v, want %s", out, tt.wantState)
			}
		})
	}
}
