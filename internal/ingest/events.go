package ingest

import "sleepywoodpecker/waveview/internal/view"

// Payload is the body shared by initial_data and sensor_data pushes.
// PulseCount is nil when the source does not report pulses.
type Payload struct {
	Raw        []int     `json:"raw"`
	Envelope   []float64 `json:"envelope"`
	Time       []float64 `json:"time"`
	Threshold  float64   `json:"threshold"`
	Baseline   float64   `json:"baseline"`
	PulseCount *int      `json:"pulse_count,omitempty"`
}

// lastEnvelope defaults to 0 when the payload carries no envelope values
func (p Payload) lastEnvelope() float64 {
	if len(p.Envelope) == 0 {
		return 0
	}
	return p.Envelope[len(p.Envelope)-1]
}

// Event is one inbound message from a transport
type Event interface {
	isEvent()
}

type ConnectionChanged struct {
	Connected bool
}

// InitialSnapshot replaces the buffered history, sent once per connection
type InitialSnapshot struct {
	Payload
}

type SensorUpdate struct {
	Payload
}

// StatsReply answers a stats request
type StatsReply struct {
	Stats view.UpstreamStats
}

func (ConnectionChanged) isEvent() {}
func (InitialSnapshot) isEvent()   {}
func (SensorUpdate) isEvent()      {}
func (StatsReply) isEvent()        {}

// Action is a user command from the control surface
type Action int

const (
	TogglePause Action = iota
	Clear
)

func (a Action) String() string {
	switch a {
	case TogglePause:
		return "toggle_pause"
	case Clear:
		return "clear"
	default:
		return "unknown"
	}
}

// StatsRequester sends the outbound request_stats notification, fire and forget
type StatsRequester interface {
	RequestStats() error
}
