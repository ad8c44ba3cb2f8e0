// Package infra contains infrastructure adapters for the execution context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/flashloan-arb/business/execution/app"
	"github.com/fd1az/flashloan-arb/business/execution/domain"
)

const rule = "================================================================================"

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates a reporter writing to stdout. verbose prints
// every state transition.
func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, verbose)
}

// NewConsoleReporterTo creates a reporter writing to w.
func NewConsoleReporterTo(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: w, verbose: verbose}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	return nil
}

// Transition prints a state change when verbose.
func (r *ConsoleReporter) Transition(attemptID string, from, to domain.State) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s: %s -> %s\n", time.Now().Format("15:04:05.000"), attemptID, from, to)
}

// Preview prints a quoted plan.
func (r *ConsoleReporter) Preview(p *app.Preview) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "PLAN")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Principal:      %s\n", p.Principal)
	if p.Buy != nil {
		fmt.Fprintf(r.out, "Buy:            %s -> %s (%d bps slippage)\n", p.Buy.Leg, p.Buy.AmountOut, p.Buy.SlippageBps)
	}
	if p.Sell != nil {
		fmt.Fprintf(r.out, "Sell:           %s -> %s (%d bps slippage)\n", p.Sell.Leg, p.Sell.AmountOut, p.Sell.SlippageBps)
	}
	fmt.Fprintf(r.out, "Repayment due:  %s\n", p.RepaymentDue)
	if p.Profitable() {
		fmt.Fprintf(r.out, "Verdict:        profitable (margin %s)\n", p.Verdict.Margin)
	} else {
		fmt.Fprintf(r.out, "Verdict:        rejected: %s\n", p.Reason)
	}
	fmt.Fprintln(r.out, rule)
}

// Report prints a terminal outcome.
func (r *ConsoleReporter) Report(o *domain.ExecutionOutcome) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "ATTEMPT %s: %s\n", o.AttemptID, o.State)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Submitted:      %t\n", o.Submitted)
	if o.RepaymentDue != nil {
		fmt.Fprintf(r.out, "Repayment due:  %s\n", o.RepaymentDue)
	}
	if o.GrossProceeds != nil {
		fmt.Fprintf(r.out, "Gross:          %s\n", o.GrossProceeds)
		fmt.Fprintf(r.out, "Net profit:     %s\n", o.NetProfit)
	}
	if o.RevertCode != "" {
		fmt.Fprintf(r.out, "Code:           %s\n", o.RevertCode)
	}
	if o.RevertReason != "" {
		fmt.Fprintf(r.out, "Reason:         %s\n", o.RevertReason)
	}
	if o.Receipt != nil {
		fmt.Fprintf(r.out, "Tx:             %s (block %d, gas %d)\n", o.Receipt.TxHash.Hex(), o.Receipt.BlockNumber, o.Receipt.GasUsed)
	}
	fmt.Fprintf(r.out, "Duration:       %s\n", o.Duration.Round(time.Millisecond))
	fmt.Fprintln(r.out, rule)
}

// LegResult prints a single executed leg.
func (r *ConsoleReporter) LegResult(res *app.LegResult) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "LEG %s\n", res.Leg)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "In:             %s\n", res.AmountIn)
	fmt.Fprintf(r.out, "Out:            %s\n", res.AmountOut)
	if res.Quoted != nil {
		fmt.Fprintf(r.out, "Quoted:         %s\n", res.Quoted.AmountOut)
	}
	fmt.Fprintf(r.out, "Deviation:      %+d bps\n", res.DeviationBps)
	fmt.Fprintf(r.out, "Tx:             %s\n", res.TxHash.Hex())
	fmt.Fprintln(r.out, rule)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	return nil
}
