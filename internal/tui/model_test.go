package tui

import (
	"testing"
	"time"

	"sleepywoodpecker/waveview/internal/ingest"
	"sleepywoodpecker/waveview/internal/view"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_KeysSendActions(t *testing.T) {
	actions := make(chan ingest.Action, 2)
	m := NewModel(actions)

	_, cmd := m.Update(key("p"))
	require.NotNil(t, cmd)
	cmd()

	_, cmd = m.Update(key("c"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, ingest.TogglePause, <-actions)
	assert.Equal(t, ingest.Clear, <-actions)
}

func TestModel_SendDoesNotBlockWithoutDispatcher(t *testing.T) {
	m := NewModel(make(chan ingest.Action))

	_, cmd := m.Update(key("c"))
	require.NotNil(t, cmd)

	done := make(chan struct{})
	go func() {
		cmd()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("action send blocked with nobody receiving")
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel(make(chan ingest.Action))
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

type recordingSender struct {
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.msgs = append(r.msgs, msg)
}

func TestSurface_UpdatesModel(t *testing.T) {
	sender := &recordingSender{}
	s := NewSurface(sender)

	s.SetStats(view.FormatStats(40, 12.34, 60))
	s.SetCounters(view.FormatCounters(4000, 9000, nil))
	s.SetConnection(view.Indicate(true))
	s.SetPaused(true)
	s.SetUpstream(view.UpstreamStats{SampleCount: 9100})

	var model tea.Model = NewModel(nil)
	for _, msg := range sender.msgs {
		model, _ = model.Update(msg)
	}

	out := model.View()
	assert.Contains(t, out, "12.3")
	assert.Contains(t, out, "9000")
	assert.Contains(t, out, "Connected")
	assert.Contains(t, out, "PAUSED")
	assert.Contains(t, out, "resume")
	assert.Contains(t, out, "samples=9100")
}

func TestModel_InitialView(t *testing.T) {
	out := NewModel(nil).View()
	assert.Contains(t, out, "Disconnected")
	assert.NotContains(t, out, "PAUSED")
	assert.NotContains(t, out, "Pulses")
}
