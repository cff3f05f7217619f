// Package telemetry polls sensors and publishes their readings over MQTT and
// as Prometheus gauges.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/registry"
)

// Sensor is a device with named numeric readings.
type Sensor interface {
	device.Device
	Readings() (map[string]float64, error)
}

type readingsMsg struct {
	Device   string             `json:"device"`
	Time     time.Time          `json:"time"`
	Readings map[string]float64 `json:"readings"`
}

// Monitor polls every Sensor in the registry. Sensors that are not
// connected are opened on the first poll.
type Monitor struct {
	registry  *registry.Registry
	publisher Publisher
	topicRoot string
	interval  time.Duration
	logger    log.FieldLogger

	readings *prometheus.GaugeVec
	failures *prometheus.CounterVec
}

// NewMonitor registers the gauges with reg. A nil publisher only updates
// the gauges.
func NewMonitor(r *registry.Registry, publisher Publisher, topicRoot string, interval time.Duration, reg prometheus.Registerer, logger log.FieldLogger) (*Monitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid poll interval %v", interval)
	}

	m := &Monitor{
		registry:  r,
		publisher: publisher,
		topicRoot: topicRoot,
		interval:  interval,
		logger:    logger.WithField("component", "telemetry"),
		readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "labdevices",
			Name:      "reading",
			Help:      "Last reading of a sensor quantity.",
		}, []string{"device", "quantity"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labdevices",
			Name:      "poll_failures_total",
			Help:      "Number of failed sensor polls.",
		}, []string{"device"}),
	}

	for _, c := range []prometheus.Collector{m.readings, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("cannot register metrics: %w", err)
		}
	}
	return m, nil
}

// Topic returns the topic readings of the named device are published to.
func (m *Monitor) Topic(name string) string {
	return fmt.Sprintf("%s/%s/readings", m.topicRoot, name)
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll reads every sensor once.
func (m *Monitor) Poll() {
	for _, e := range m.registry.Entries() {
		var (
			values   map[string]float64
			isSensor bool
		)
		err := e.Do(func(dev device.Device) error {
			s, ok := dev.(Sensor)
			if !ok {
				return nil
			}
			isSensor = true

			if !s.Connected() {
				if err := s.Initialize(); err != nil {
					return err
				}
			}
			var err error
			values, err = s.Readings()
			return err
		})
		if !isSensor {
			continue
		}
		if err != nil {
			m.failures.WithLabelValues(e.Name()).Inc()
			m.logger.Warnf("Failed to poll %s: %v", e.Name(), err)
			continue
		}

		m.record(e.Name(), values)
	}
}

func (m *Monitor) record(name string, values map[string]float64) {
	for quantity, v := range values {
		m.readings.WithLabelValues(name, quantity).Set(v)
	}

	if m.publisher == nil {
		return
	}
	payload, err := json.Marshal(readingsMsg{Device: name, Time: time.Now().UTC(), Readings: values})
	if err != nil {
		m.logger.Errorf("Failed to encode readings of %s: %v", name, err)
		return
	}
	if err := m.publisher.Publish(m.Topic(name), payload); err != nil {
		m.logger.Warnf("Failed to publish readings of %s: %v", name, err)
	}
}
