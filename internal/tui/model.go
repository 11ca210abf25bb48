// Package tui is the terminal dashboard: display slots, connection indicator and pause/clear controls
package tui

import (
	"fmt"
	"strings"

	"sleepywoodpecker/waveview/internal/ingest"
	"sleepywoodpecker/waveview/internal/view"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	panelBorder = lipgloss.Color("#2D6A80")
	mutedText   = lipgloss.Color("#8CA1AE")
	pausedColor = lipgloss.Color("#F39C12")

	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(mutedText).Width(14)
	valueStyle = lipgloss.NewStyle().Bold(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(mutedText)
)

type statsMsg view.Stats
type countersMsg view.Counters
type connectionMsg view.Indicator
type pausedMsg bool
type upstreamMsg view.UpstreamStats

type Model struct {
	actions chan<- ingest.Action

	stats     view.Stats
	counters  view.Counters
	indicator view.Indicator
	paused    bool
	upstream  *view.UpstreamStats
}

func NewModel(actions chan<- ingest.Action) Model {
	return Model{
		actions:   actions,
		stats:     view.FormatStats(0, 0, 0),
		counters:  view.FormatCounters(0, 0, nil),
		indicator: view.Indicate(false),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p", " ":
			return m, m.send(ingest.TogglePause)
		case "c":
			return m, m.send(ingest.Clear)
		}
	case statsMsg:
		m.stats = view.Stats(msg)
	case countersMsg:
		m.counters = view.Counters(msg)
	case connectionMsg:
		m.indicator = view.Indicator(msg)
	case pausedMsg:
		m.paused = bool(msg)
	case upstreamMsg:
		u := view.UpstreamStats(msg)
		m.upstream = &u
	}
	return m, nil
}

// send hands the action to the dispatcher off the UI goroutine. When the dispatcher is
// gone or backed up the action is dropped instead of parking the command goroutine.
func (m Model) send(a ingest.Action) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		select {
		case actions <- a:
		default:
		}
		return nil
	}
}

func (m Model) View() string {
	var sb strings.Builder

	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(m.indicator.Color)).Render("●")
	sb.WriteString(titleStyle.Render("PBT Sensor Monitor"))
	sb.WriteString("  ")
	sb.WriteString(dot + " " + lipgloss.NewStyle().Foreground(lipgloss.Color(m.indicator.Color)).Render(m.indicator.Label))
	if m.paused {
		sb.WriteString("  " + lipgloss.NewStyle().Foreground(pausedColor).Bold(true).Render("PAUSED"))
	}
	sb.WriteString("\n")

	rows := []string{
		row("Baseline", m.stats.Baseline),
		row("Envelope", m.stats.Envelope),
		row("Threshold", m.stats.Threshold),
		row("Buffer size", m.counters.BufferSize),
		row("Samples", m.counters.SampleCount),
	}
	if m.counters.PulseCount != "" {
		rows = append(rows, row("Pulses", m.counters.PulseCount))
	}
	if m.upstream != nil {
		rows = append(rows, row("Upstream", m.upstream.String()))
	}
	sb.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	sb.WriteString("\n")

	pauseLabel := "pause"
	if m.paused {
		pauseLabel = "resume"
	}
	sb.WriteString(helpStyle.Render(fmt.Sprintf("p %s • c clear • q quit", pauseLabel)))
	sb.WriteString("\n")

	return sb.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}
