package socketio

import (
	"testing"

	"sleepywoodpecker/waveview/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"http://127.0.0.1:5000", "ws://127.0.0.1:5000/socket.io/?EIO=4&transport=websocket", false},
		{"https://sensor.local/", "wss://sensor.local/socket.io/?EIO=4&transport=websocket", false},
		{"ws://host:8080/custom/", "ws://host:8080/custom/?EIO=4&transport=websocket", false},
		{"ftp://host", "", true},
	}

	for _, tt := range tests {
		got, err := EndpointURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("EndpointURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("EndpointURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestEncodeEvent(t *testing.T) {
	packet, err := encodeEvent("request_stats")
	require.NoError(t, err)
	assert.Equal(t, `42["request_stats"]`, string(packet))
}

func TestSplitEvent(t *testing.T) {
	name, data, err := splitEvent([]byte(`["sensor_data",{"raw":[1]}]`))
	require.NoError(t, err)
	assert.Equal(t, "sensor_data", name)
	assert.JSONEq(t, `{"raw":[1]}`, string(data))

	name, data, err = splitEvent([]byte(`12["stats"]`))
	require.NoError(t, err)
	assert.Equal(t, "stats", name)
	assert.Nil(t, data)

	_, _, err = splitEvent([]byte(`[]`))
	assert.ErrorIs(t, err, errMalformedPacket)

	_, _, err = splitEvent([]byte(`{"not":"an array"}`))
	assert.ErrorIs(t, err, errMalformedPacket)
}

func TestDecodeEvent_SensorData(t *testing.T) {
	ev, err := decodeEvent("sensor_data", []byte(`{"raw":[40,512.0],"envelope":[0.5,88.25],"time":[1.0,1.00125],"threshold":60,"baseline":40.1,"pulse_count":4}`))
	require.NoError(t, err)

	update, ok := ev.(ingest.SensorUpdate)
	require.True(t, ok)
	assert.Equal(t, []int{40, 512}, update.Raw)
	assert.Equal(t, []float64{0.5, 88.25}, update.Envelope)
	assert.Equal(t, []float64{1.0, 1.00125}, update.Time)
	assert.Equal(t, 60.0, update.Threshold)
	require.NotNil(t, update.PulseCount)
	assert.Equal(t, 4, *update.PulseCount)
}

func TestDecodeEvent_InitialDataDefaults(t *testing.T) {
	ev, err := decodeEvent("initial_data", []byte(`{"raw":[],"envelope":[],"time":[],"threshold":60,"baseline":40}`))
	require.NoError(t, err)

	snap, ok := ev.(ingest.InitialSnapshot)
	require.True(t, ok)
	assert.Empty(t, snap.Raw)
	assert.Nil(t, snap.PulseCount)
	assert.Equal(t, 40.0, snap.Baseline)
}

func TestDecodeEvent_Stats(t *testing.T) {
	ev, err := decodeEvent("stats", []byte(`{"sample_count":1200,"baseline":40.5,"envelope":3.25,"buffer_size":4000}`))
	require.NoError(t, err)

	reply, ok := ev.(ingest.StatsReply)
	require.True(t, ok)
	assert.Equal(t, 1200, reply.Stats.SampleCount)
	assert.Equal(t, 4000, reply.Stats.BufferSize)
	assert.Equal(t, 3.25, reply.Stats.Envelope)
}

func TestDecodeEvent_UnknownAndBroken(t *testing.T) {
	ev, err := decodeEvent("chat", []byte(`{}`))
	assert.NoError(t, err)
	assert.Nil(t, ev)

	_, err = decodeEvent("sensor_data", []byte(`{"raw":"nope"}`))
	assert.Error(t, err)
}

func TestIsDefaultNamespace(t *testing.T) {
	assert.True(t, isDefaultNamespace([]byte(`["x"]`)))
	assert.False(t, isDefaultNamespace([]byte(`/admin,["x"]`)))
}
