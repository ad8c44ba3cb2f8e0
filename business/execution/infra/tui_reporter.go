package infra

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/flashloan-arb/business/execution/app"
	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

// TUIReporter implements app.Reporter for the Bubble Tea TUI.
type TUIReporter struct {
	program *tea.Program
	done    chan error
	started atomic.Bool
	once    sync.Once
}

// NewTUIReporter creates a TUI reporter with the given title.
func NewTUIReporter(title string) *TUIReporter {
	return &TUIReporter{
		program: ui.NewProgram(title),
		done:    make(chan error, 1),
	}
}

// Start runs the Bubble Tea program in the background.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.started.Store(true)
	go func() {
		_, err := r.program.Run()
		r.done <- err
	}()
	return nil
}

// Done receives the program's exit error once the user quits.
func (r *TUIReporter) Done() <-chan error {
	return r.done
}

// Transition sends a state change to the TUI.
func (r *TUIReporter) Transition(attemptID string, from, to domain.State) {
	r.program.Send(ui.TransitionMsg{AttemptID: attemptID, From: from, To: to, At: time.Now()})
}

// Preview sends a quoted plan to the TUI.
func (r *TUIReporter) Preview(p *app.Preview) {
	if p == nil {
		return
	}
	r.program.Send(previewMsg(p))
}

// Report sends a terminal outcome to the TUI.
func (r *TUIReporter) Report(o *domain.ExecutionOutcome) {
	if o == nil {
		return
	}
	r.program.Send(outcomeMsg(o))
	if o.Err != nil && !o.Committed {
		r.program.Send(ui.ErrorMsg{Error: o.Err})
	}
}

// LegResult sends a single executed leg to the TUI.
func (r *TUIReporter) LegResult(res *app.LegResult) {
	if res == nil {
		return
	}
	msg := ui.LegMsg{
		Leg:          res.Leg.String(),
		AmountIn:     res.AmountIn.String(),
		AmountOut:    res.AmountOut.String(),
		DeviationBps: res.DeviationBps,
		TxHash:       res.TxHash.Hex(),
	}
	if res.Quoted != nil {
		msg.Quoted = res.Quoted.AmountOut.String()
	}
	r.program.Send(msg)
}

// Stop quits the program and waits for it to exit.
func (r *TUIReporter) Stop() error {
	if !r.started.Load() {
		return nil
	}
	r.once.Do(func() {
		r.program.Quit()
		r.program.Wait()
	})
	return nil
}

func previewMsg(p *app.Preview) ui.PreviewMsg {
	msg := ui.PreviewMsg{
		Principal:    p.Principal.String(),
		RepaymentDue: p.RepaymentDue.String(),
		Profitable:   p.Profitable(),
		Reason:       p.Reason,
	}
	if p.Buy != nil {
		msg.Buy = p.Buy.Leg.String()
		msg.BuyOut = p.Buy.AmountOut.String()
		msg.BuySlipBps = p.Buy.SlippageBps
	}
	if p.Sell != nil {
		msg.Sell = p.Sell.Leg.String()
		msg.SellOut = p.Sell.AmountOut.String()
		msg.SellSlipBps = p.Sell.SlippageBps
	}
	return msg
}

func outcomeMsg(o *domain.ExecutionOutcome) ui.OutcomeMsg {
	msg := ui.OutcomeMsg{
		AttemptID: o.AttemptID,
		State:     o.State,
		Submitted: o.Submitted,
		Code:      string(o.RevertCode),
		Reason:    o.RevertReason,
		Duration:  o.Duration,
		NetProfit: "-",
	}
	if o.NetProfit != nil {
		msg.NetProfit = fmt.Sprintf("%+d", o.NetProfit)
		msg.NetPositive = o.NetProfit.Sign() > 0
	}
	if o.Receipt != nil {
		msg.TxHash = o.Receipt.TxHash.Hex()
	}
	return msg
}
