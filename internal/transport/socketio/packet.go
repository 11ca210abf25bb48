package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"sleepywoodpecker/waveview/internal/ingest"
	"sleepywoodpecker/waveview/internal/view"
)

// Engine.IO v4 packet types, the first byte of every websocket frame
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO v5 packet types, the byte after an engine message
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

var errMalformedPacket = errors.New("[socketio] malformed packet")

// handshake is the body of the engine open packet
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// EndpointURL turns a server address like http://host:5000 into the websocket transport URL
func EndpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("[socketio] parsing url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("[socketio] unsupported scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// encodeEvent builds a default namespace event packet, 42["name",args...]
func encodeEvent(name string, args ...any) ([]byte, error) {
	frame := make([]any, 0, len(args)+1)
	frame = append(frame, name)
	frame = append(frame, args...)

	body, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return append([]byte{engineMessage, socketEvent}, body...), nil
}

// splitEvent returns the event name and its first argument from the body after "42"
func splitEvent(body []byte) (string, json.RawMessage, error) {
	// skip an optional ack id
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}

	var frame []json.RawMessage
	if err := json.Unmarshal(body[i:], &frame); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errMalformedPacket, err)
	}
	if len(frame) == 0 {
		return "", nil, errMalformedPacket
	}

	var name string
	if err := json.Unmarshal(frame[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", errMalformedPacket, err)
	}
	if len(frame) < 2 {
		return name, nil, nil
	}
	return name, frame[1], nil
}

// wirePayload tolerates raw counts sent as floats and fields that are missing or null
type wirePayload struct {
	Raw        []float64 `json:"raw"`
	Envelope   []float64 `json:"envelope"`
	Time       []float64 `json:"time"`
	Threshold  float64   `json:"threshold"`
	Baseline   float64   `json:"baseline"`
	PulseCount *int      `json:"pulse_count"`
}

func (w wirePayload) payload() ingest.Payload {
	raw := make([]int, len(w.Raw))
	for i, v := range w.Raw {
		raw[i] = int(math.Round(v))
	}

	return ingest.Payload{
		Raw:        raw,
		Envelope:   w.Envelope,
		Time:       w.Time,
		Threshold:  w.Threshold,
		Baseline:   w.Baseline,
		PulseCount: w.PulseCount,
	}
}

type wireStats struct {
	SampleCount int     `json:"sample_count"`
	Baseline    float64 `json:"baseline"`
	Envelope    float64 `json:"envelope"`
	BufferSize  int     `json:"buffer_size"`
}

// decodeEvent maps a named server event onto an ingest event. Unknown names return nil.
func decodeEvent(name string, data json.RawMessage) (ingest.Event, error) {
	switch name {
	case "initial_data", "sensor_data":
		var w wirePayload
		if len(data) > 0 {
			if err := json.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("[socketio] decoding %s: %w", name, err)
			}
		}
		if name == "initial_data" {
			return ingest.InitialSnapshot{Payload: w.payload()}, nil
		}
		return ingest.SensorUpdate{Payload: w.payload()}, nil
	case "stats":
		var w wireStats
		if len(data) > 0 {
			if err := json.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("[socketio] decoding stats: %w", err)
			}
		}
		return ingest.StatsReply{Stats: view.UpstreamStats{
			SampleCount: w.SampleCount,
			BufferSize:  w.BufferSize,
			Baseline:    w.Baseline,
			Envelope:    w.Envelope,
		}}, nil
	default:
		return nil, nil
	}
}

// isDefaultNamespace reports whether a socket packet body targets "/", other namespaces carry a "/name," prefix
func isDefaultNamespace(body []byte) bool {
	return !strings.HasPrefix(string(body), "/")
}
