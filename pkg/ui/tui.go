package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui/components"
)

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	title string

	// Components
	timeline *components.TimelineComponent
	preview  *components.PreviewComponent
	attempts *components.AttemptsComponent
	statsBox *components.StatsComponent
	stats    components.Stats

	keys KeyMap
	help help.Model

	// State
	ready      bool
	quitting   bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry // last 3
	logs       []string     // last 5
}

// New creates a new TUI model.
func New(title string) Model {
	return Model{
		title:    title,
		timeline: components.NewTimelineComponent(),
		preview:  components.NewPreviewComponent(),
		attempts: components.NewAttemptsComponent(50),
		statsBox: components.NewStatsComponent(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		errors:   make([]ErrorEntry, 0, 3),
		logs:     make([]string, 0, 5),
	}
}

// NewProgram creates the Bubble Tea program on the alternate screen.
func NewProgram(title string) *tea.Program {
	return tea.NewProgram(New(title), tea.WithAltScreen())
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Up):
			m.attempts.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.attempts.ScrollDown()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		return m, tickCmd()

	case PreviewMsg:
		m.preview.SetPreview(components.Preview{
			Buy:          msg.Buy,
			Sell:         msg.Sell,
			Principal:    msg.Principal,
			BuyOut:       msg.BuyOut,
			SellOut:      msg.SellOut,
			RepaymentDue: msg.RepaymentDue,
			BuySlipBps:   msg.BuySlipBps,
			SellSlipBps:  msg.SellSlipBps,
			Profitable:   msg.Profitable,
			Reason:       msg.Reason,
		})
		m.lastUpdate = time.Now()

	case TransitionMsg:
		m.timeline.Advance(msg.AttemptID, msg.To, msg.At)
		m.lastUpdate = msg.At

	case OutcomeMsg:
		m.attempts.Add(components.AttemptRow{
			Timestamp: time.Now().Format("15:04:05"),
			AttemptID: msg.AttemptID,
			State:     msg.State.String(),
			NetProfit: msg.NetProfit,
			Code:      msg.Code,
			Committed: msg.State == domain.StateCommitted,
		})
		m.stats.Record(msg.State.String())
		m.statsBox.Update(m.stats)
		line := fmt.Sprintf("%s %s in %s", msg.AttemptID, msg.State, msg.Duration.Round(time.Millisecond))
		if msg.Reason != "" {
			line += ": " + msg.Reason
		}
		m.logs = addLog(m.logs, "info", line)
		m.lastUpdate = time.Now()

	case LegMsg:
		m.preview.AddLeg(components.LegRow{
			Leg:          msg.Leg,
			AmountIn:     msg.AmountIn,
			AmountOut:    msg.AmountOut,
			Quoted:       msg.Quoted,
			DeviationBps: msg.DeviationBps,
		})
		m.stats.Legs++
		m.statsBox.Update(m.stats)
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	logs = append(logs, line)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" " + m.title + " "))
	if !m.lastUpdate.IsZero() {
		b.WriteString(MutedValue.Render(fmt.Sprintf("  updated %s ago", time.Since(m.lastUpdate).Round(time.Second))))
	}
	b.WriteString("\n\n")
	b.WriteString(m.statsBox.View())
	b.WriteString("\n\n")

	left := m.timeline.View(time.Now())
	right := m.preview.View()
	if m.width > 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(m.width/2-2).Render(left),
			BoxStyle.Width(m.width/2-2).Render(right)))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 40
		}
		b.WriteString(BoxStyle.Width(width).Render(left))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(right))
	}
	b.WriteString("\n\n")

	visible := 8
	if m.height > 40 {
		visible = m.height - 32
	}
	b.WriteString(m.attempts.View(visible))
	b.WriteString("\n\n")

	for _, l := range m.logs {
		b.WriteString(MutedValue.Render("  " + l))
		b.WriteString("\n")
	}

	if len(m.errors) > 0 {
		b.WriteString("\n")
		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (c: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", e.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", time.Since(e.Timestamp).Round(time.Second))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}
