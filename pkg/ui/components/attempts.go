package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// AttemptRow is a finished attempt in the history.
type AttemptRow struct {
	Timestamp string
	AttemptID string
	State     string
	NetProfit string
	Code      string
	Committed bool
}

// AttemptsComponent renders the attempt history, newest first.
type AttemptsComponent struct {
	rows    []AttemptRow
	maxRows int
	offset  int
}

// NewAttemptsComponent creates a new attempts component.
func NewAttemptsComponent(maxRows int) *AttemptsComponent {
	return &AttemptsComponent{maxRows: maxRows}
}

// Add adds a finished attempt.
func (a *AttemptsComponent) Add(row AttemptRow) {
	a.rows = append([]AttemptRow{row}, a.rows...)
	if len(a.rows) > a.maxRows {
		a.rows = a.rows[:a.maxRows]
	}
	a.offset = 0
}

// ScrollUp moves the view towards newer rows.
func (a *AttemptsComponent) ScrollUp() {
	if a.offset > 0 {
		a.offset--
	}
}

// ScrollDown moves the view towards older rows.
func (a *AttemptsComponent) ScrollDown() {
	if a.offset < len(a.rows)-1 {
		a.offset++
	}
}

// View renders the attempts component.
func (a *AttemptsComponent) View(visible int) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	result := headerStyle.Render("ATTEMPTS") + "\n"
	if len(a.rows) == 0 {
		return result + "No attempts finished yet..."
	}

	result += "┌──────────┬──────────┬─────────────┬──────────────────┬─────────────────────────┐\n"
	result += "│   Time   │ Attempt  │    State    │       Net        │          Code           │\n"
	result += "├──────────┼──────────┼─────────────┼──────────────────┼─────────────────────────┤\n"

	end := a.offset + visible
	if end > len(a.rows) || visible <= 0 {
		end = len(a.rows)
	}
	for _, row := range a.rows[a.offset:end] {
		style, icon := okStyle, "✓"
		if !row.Committed {
			style, icon = failStyle, "✗"
		}
		id := row.AttemptID
		if len(id) > 8 {
			id = id[:8]
		}
		result += fmt.Sprintf("│ %8s │ %8s │ %s %-9s │ %16s │ %-23s │\n",
			row.Timestamp, id, icon, style.Render(fmt.Sprintf("%-9s", row.State)), row.NetProfit, row.Code)
	}

	result += "└──────────┴──────────┴─────────────┴──────────────────┴─────────────────────────┘"
	return result
}
