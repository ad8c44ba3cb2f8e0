// Package ui provides the Bubble Tea TUI for the flash loan executor.
package ui

import (
	"time"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
)

// Message types for TUI updates. Values arrive formatted; the UI does not
// do amount arithmetic.

// PreviewMsg carries a quoted plan.
type PreviewMsg struct {
	Buy          string
	Sell         string
	Principal    string
	BuyOut       string
	SellOut      string
	RepaymentDue string
	BuySlipBps   uint32
	SellSlipBps  uint32
	Profitable   bool
	Reason       string
}

// TransitionMsg is sent on every state change of an attempt.
type TransitionMsg struct {
	AttemptID string
	From      domain.State
	To        domain.State
	At        time.Time
}

// OutcomeMsg is sent when an attempt reaches a terminal state.
type OutcomeMsg struct {
	AttemptID   string
	State       domain.State
	Submitted   bool
	NetProfit   string
	NetPositive bool
	Code        string
	Reason      string
	TxHash      string
	Duration    time.Duration
}

// LegMsg is sent when a single leg has been executed.
type LegMsg struct {
	Leg          string
	AmountIn     string
	AmountOut    string
	Quoted       string
	DeviationBps int64
	TxHash       string
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
