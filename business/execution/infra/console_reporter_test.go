package infra

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestConsoleReporter_Report(t *testing.T) {
	tests := []struct {
		name    string
		outcome *domain.ExecutionOutcome
		want    []string
	}{
		{
			name: "committed",
			outcome: &domain.ExecutionOutcome{
				AttemptID:     "a-1",
				State:         domain.StateCommitted,
				Committed:     true,
				Submitted:     true,
				GrossProceeds: big.NewInt(54_240),
				RepaymentDue:  big.NewInt(50_045),
				NetProfit:     big.NewInt(4_195),
				Duration:      12 * time.Millisecond,
			},
			want: []string{"ATTEMPT a-1: Committed", "Net profit:     4195", "Repayment due:  50045"},
		},
		{
			name: "reverted",
			outcome: &domain.ExecutionOutcome{
				AttemptID:    "a-2",
				State:        domain.StateReverted,
				Submitted:    true,
				RevertCode:   apperror.CodeLedgerReverted,
				RevertReason: "UniswapV2: K",
			},
			want: []string{"ATTEMPT a-2: Reverted", "Code:           LEDGER_REVERTED", "Reason:         UniswapV2: K"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsoleReporterTo(&buf, false).Report(tt.outcome)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestConsoleReporter_TransitionsOnlyWhenVerbose(t *testing.T) {
	var quiet, loud bytes.Buffer
	NewConsoleReporterTo(&quiet, false).Transition("a-1", domain.StatePlanned, domain.StateLoanRequested)
	NewConsoleReporterTo(&loud, true).Transition("a-1", domain.StatePlanned, domain.StateLoanRequested)

	if quiet.Len() != 0 {
		t.Errorf("quiet reporter wrote %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "a-1: Planned -> LoanRequested") {
		t.Errorf("verbose output = %q", loud.String())
	}
}

func TestOutcomeMsg(t *testing.T) {
	msg := outcomeMsg(&domain.ExecutionOutcome{
		AttemptID: "a-3",
		State:     domain.StateCommitted,
		NetProfit: big.NewInt(100),
		Receipt:   nil,
	})
	if msg.NetProfit != "+100" || !msg.NetPositive {
		t.Errorf("net = %q positive=%v", msg.NetProfit, msg.NetPositive)
	}
	if msg.TxHash != "" {
		t.Errorf("TxHash = %q, want empty", msg.TxHash)
	}

	msg = outcomeMsg(&domain.ExecutionOutcome{AttemptID: "a-4", State: domain.StateAbandoned, RevertCode: apperror.CodeAbandoned})
	if msg.NetProfit != "-" || msg.Code != "ABANDONED" {
		t.Errorf("msg = %+v", msg)
	}
}
