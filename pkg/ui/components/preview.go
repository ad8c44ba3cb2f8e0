package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Preview holds a quoted plan for display.
type Preview struct {
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

// LegRow is a single executed leg.
type LegRow struct {
	Leg          string
	AmountIn     string
	AmountOut    string
	Quoted       string
	DeviationBps int64
}

// PreviewComponent renders the quoted plan and any single-leg results.
type PreviewComponent struct {
	preview *Preview
	legs    []LegRow
}

// NewPreviewComponent creates a new preview component.
func NewPreviewComponent() *PreviewComponent {
	return &PreviewComponent{}
}

// SetPreview replaces the displayed plan.
func (p *PreviewComponent) SetPreview(preview Preview) {
	p.preview = &preview
}

// AddLeg appends an executed leg.
func (p *PreviewComponent) AddLeg(row LegRow) {
	p.legs = append(p.legs, row)
}

// View renders the preview component.
func (p *PreviewComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if p.preview == nil && len(p.legs) == 0 {
		return headerStyle.Render("PLAN") + "\n\n" + dimStyle.Render("  Waiting for quotes...")
	}

	var result strings.Builder

	if pv := p.preview; pv != nil {
		result.WriteString(headerStyle.Render("PLAN"))
		result.WriteString("\n\n")
		result.WriteString(fmt.Sprintf("  %-10s %s\n", "Principal", pv.Principal))
		result.WriteString(fmt.Sprintf("  %-10s %s -> %s %s\n", "Buy", pv.Buy, pv.BuyOut,
			dimStyle.Render(fmt.Sprintf("(%d bps slip)", pv.BuySlipBps))))
		result.WriteString(fmt.Sprintf("  %-10s %s -> %s %s\n", "Sell", pv.Sell, pv.SellOut,
			dimStyle.Render(fmt.Sprintf("(%d bps slip)", pv.SellSlipBps))))
		result.WriteString(dimStyle.Render("  "+strings.Repeat("─", 48)) + "\n")
		result.WriteString(fmt.Sprintf("  %-10s %s\n", "Repay", pv.RepaymentDue))

		if pv.Profitable {
			result.WriteString("  " + positiveStyle.Render("✓ profitable") + "\n")
		} else {
			result.WriteString("  " + negativeStyle.Render("✗ "+pv.Reason) + "\n")
		}
	}

	if len(p.legs) > 0 {
		result.WriteString("\n")
		result.WriteString(headerStyle.Render("LEGS"))
		result.WriteString("\n\n")
		for _, row := range p.legs {
			devStyle := positiveStyle
			if row.DeviationBps < 0 {
				devStyle = negativeStyle
			}
			result.WriteString(fmt.Sprintf("  %s: %s -> %s (quoted %s) %s\n",
				row.Leg, row.AmountIn, row.AmountOut, row.Quoted,
				devStyle.Render(fmt.Sprintf("%+d bps", row.DeviationBps))))
		}
	}

	return result.String()
}
