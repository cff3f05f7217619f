package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/config"
	"labdevices/pkg/registry"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][]byte)
	}
	p.messages[topic] = payload
	return nil
}

func (p *fakePublisher) message(topic string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg, ok := p.messages[topic]
	return msg, ok
}

func newTestMonitor(t *testing.T, devices []config.DeviceConfig) (*Monitor, *fakePublisher) {
	t.Helper()
	reg := registry.New(log.New())
	for _, d := range devices {
		require.NoError(t, reg.Add(d))
	}
	t.Cleanup(reg.Close)

	pub := &fakePublisher{}
	m, err := NewMonitor(reg, pub, "lab", 10*time.Millisecond, prometheus.NewRegistry(), log.New())
	require.NoError(t, err)
	return m, pub
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, g.Write(&metric))
	return metric.GetGauge().GetValue()
}

func TestPoll(t *testing.T) {
	m, pub := newTestMonitor(t, []config.DeviceConfig{
		{Name: "sensor", Model: "tsp01", Dummy: true},
		{Name: "counter", Model: "keysight-counter", Dummy: true},
	})

	m.Poll()

	payload, ok := pub.message("lab/sensor/readings")
	require.True(t, ok)
	var msg readingsMsg
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "sensor", msg.Device)
	assert.InDelta(t, 23.973883, msg.Readings["temperature"], 1e-9)
	assert.InDelta(t, 25.24333, msg.Readings["humidity"], 1e-9)

	_, ok = pub.message("lab/counter/readings")
	assert.False(t, ok)

	assert.InDelta(t, 21.78577, gaugeValue(t, m.readings.WithLabelValues("sensor", "temperature_probe1")), 1e-9)
}

func TestPollFailure(t *testing.T) {
	m, pub := newTestMonitor(t, []config.DeviceConfig{
		{Name: "sensor", Model: "tsp01", Address: "/nonexistent/usbtmc0", Timeout: time.Second},
	})

	m.Poll()

	_, ok := pub.message("lab/sensor/readings")
	assert.False(t, ok)

	var metric dto.Metric
	require.NoError(t, m.failures.WithLabelValues("sensor").Write(&metric))
	assert.Equal(t, 1.0, metric.GetCounter().GetValue())
}

func TestRun(t *testing.T) {
	m, pub := newTestMonitor(t, []config.DeviceConfig{
		{Name: "gauge", Model: "gp350", Dummy: true},
	})
	assert.Equal(t, "lab/gauge/readings", m.Topic("gauge"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	payload, ok := pub.message("lab/gauge/readings")
	require.True(t, ok)
	assert.Contains(t, string(payload), `"pressure"`)
}

func TestNewMonitorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := registry.New(log.New())

	_, err := NewMonitor(r, nil, "lab", time.Second, reg, log.New())
	require.NoError(t, err)
	_, err = NewMonitor(r, nil, "lab", time.Second, reg, log.New())
	assert.Error(t, err)
}

func TestNewMonitorInterval(t *testing.T) {
	tests := []struct {
		name        string
		interval    time.Duration
		expectError bool
	}{
		{"Zero", 0, true},
		{"Negative", -time.Second, true},
		{"Positive", time.Millisecond, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMonitor(registry.New(log.New()), nil, "lab", tc.interval, prometheus.NewRegistry(), log.New())
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
