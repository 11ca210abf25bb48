package tui

import (
	"sleepywoodpecker/waveview/internal/view"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is the part of *tea.Program the surface needs
type Sender interface {
	Send(msg tea.Msg)
}

// Surface forwards dispatcher updates into the running program
type Surface struct {
	program Sender
}

func NewSurface(program Sender) *Surface {
	return &Surface{program: program}
}

func (s *Surface) SetStats(stats view.Stats) {
	s.program.Send(statsMsg(stats))
}

func (s *Surface) SetCounters(c view.Counters) {
	s.program.Send(countersMsg(c))
}

func (s *Surface) SetConnection(ind view.Indicator) {
	s.program.Send(connectionMsg(ind))
}

func (s *Surface) SetPaused(paused bool) {
	s.program.Send(pausedMsg(paused))
}

func (s *Surface) SetUpstream(u view.UpstreamStats) {
	s.program.Send(upstreamMsg(u))
}
