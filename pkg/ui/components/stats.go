package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds attempt counters for display.
type Stats struct {
	Attempts  int64
	Committed int64
	Reverted  int64
	Abandoned int64
	Legs      int64
}

// Record counts one finished attempt by its terminal state name.
func (s *Stats) Record(state string) {
	s.Attempts++
	switch state {
	case "Committed":
		s.Committed++
	case "Reverted":
		s.Reverted++
	case "Abandoned":
		s.Abandoned++
	}
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	commitRate := float64(0)
	if s.stats.Attempts > 0 {
		commitRate = float64(s.stats.Committed) / float64(s.stats.Attempts) * 100
	}

	abandoned := valueStyle.Render(fmt.Sprintf("%d", s.stats.Abandoned))
	if s.stats.Abandoned > 0 {
		abandoned = errorStyle.Render(fmt.Sprintf("%d", s.stats.Abandoned))
	}

	return style.Render("STATS") + "  " +
		fmt.Sprintf("Attempts: %s  │  Committed: %s (%.1f%%)  │  Reverted: %s  │  Abandoned: %s  │  Legs: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Attempts)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Committed)),
			commitRate,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Reverted)),
			abandoned,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Legs)),
		)
}
