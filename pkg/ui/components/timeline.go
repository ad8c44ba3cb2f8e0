// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
)

var cycleSteps = []domain.State{
	domain.StatePlanned,
	domain.StateLoanRequested,
	domain.StateLeg1Executed,
	domain.StateLeg2Executed,
	domain.StateProfitabilityChecked,
	domain.StateCommitted,
}

// TimelineComponent renders the state of the current attempt.
type TimelineComponent struct {
	attemptID string
	reached   map[domain.State]time.Time
	current   domain.State
	started   time.Time
}

// NewTimelineComponent creates a new timeline component.
func NewTimelineComponent() *TimelineComponent {
	return &TimelineComponent{reached: make(map[domain.State]time.Time)}
}

// Advance records a transition. A new attempt ID resets the timeline.
func (t *TimelineComponent) Advance(attemptID string, to domain.State, at time.Time) {
	if attemptID != t.attemptID {
		t.attemptID = attemptID
		t.reached = map[domain.State]time.Time{domain.StatePlanned: at}
		t.started = at
	}
	t.reached[to] = at
	t.current = to
}

// View renders the timeline component.
func (t *TimelineComponent) View(now time.Time) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("CYCLE"))
	if t.attemptID != "" {
		sb.WriteString(mutedStyle.Render("  " + t.attemptID))
	}
	sb.WriteString("\n\n")

	if t.attemptID == "" {
		sb.WriteString(mutedStyle.Render("  Waiting for an attempt..."))
		return sb.String()
	}

	terminal := t.current.IsTerminal()
	for _, step := range cycleSteps {
		var icon string
		var style lipgloss.Style

		at, ok := t.reached[step]
		switch {
		case ok:
			icon, style = "✓", doneStyle
		case !terminal && nextStep(t.current) == step:
			spinners := []string{"◐", "◓", "◑", "◒"}
			icon, style = spinners[int(now.Sub(t.started).Milliseconds()/200)%len(spinners)], activeStyle
		default:
			icon, style = "○", mutedStyle
		}

		line := fmt.Sprintf("  %s %-22s", style.Render(icon), step.String())
		if ok {
			line += mutedStyle.Render(fmt.Sprintf("+%s", at.Sub(t.started).Round(time.Millisecond)))
		}
		sb.WriteString(line + "\n")
	}

	if t.current == domain.StateReverted || t.current == domain.StateAbandoned {
		sb.WriteString(fmt.Sprintf("  %s %s\n", failedStyle.Render("✗"), failedStyle.Render(t.current.String())))
	}
	return sb.String()
}

func nextStep(s domain.State) domain.State {
	for i, step := range cycleSteps {
		if step == s && i+1 < len(cycleSteps) {
			return cycleSteps[i+1]
		}
	}
	return s
}
