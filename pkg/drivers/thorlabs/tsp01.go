// Package thorlabs drives the Thorlabs TSP01 temperature and humidity
// logger.
package thorlabs

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Thorlabs"
	model  = "TSP01"

	defaultTimeout = 2 * time.Second
)

var usbTerm = transport.Terminators{Tx: "\n", Rx: "\n"}

// TSP01 reads its built in sensors and up to two external probes.
type TSP01 struct {
	*instrument.Base
}

var _ device.Instrument = (*TSP01)(nil)

// NewTSP01 opens the logger at a usbtmc device node such as /dev/usbtmc0.
func NewTSP01(name, path string, timeout time.Duration, logger log.FieldLogger) *TSP01 {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	open := func() (transport.Conn, error) {
		return transport.OpenUSBTMC(path)
	}
	return newTSP01(name, path, open, timeout, logger)
}

func newTSP01(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *TSP01 {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    usbTerm,
		Timeout: timeout,
	}
	return &TSP01{Base: instrument.New(cfg, logger)}
}

// first returns the first value of a numeric list reply.
func (s *TSP01) first(cmd string) (float64, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	value, _, _ := strings.Cut(resp, ",")
	return device.ParseFloat(cmd, value)
}

// TemperatureUSB returns the built in temperature in °C.
func (s *TSP01) TemperatureUSB() (float64, error) {
	return s.first(":READ?")
}

// HumidityUSB returns the built in relative humidity in %.
func (s *TSP01) HumidityUSB() (float64, error) {
	return s.first(":SENSe2:HUMidity:DATA?")
}

// TemperatureProbe returns the temperature of external probe 1 or 2 in °C.
func (s *TSP01) TemperatureProbe(probe int) (float64, error) {
	if probe != 1 && probe != 2 {
		return 0, fmt.Errorf("%w: probe %d, must be 1 or 2", device.ErrOutOfRange, probe)
	}
	return s.first(fmt.Sprintf(":SENSe%d:TEMPerature:DATA?", probe+2))
}

// Readings reports the built in sensors and both probes.
func (s *TSP01) Readings() (map[string]float64, error) {
	readings := make(map[string]float64, 4)

	sensors := []struct {
		name string
		read func() (float64, error)
	}{
		{"temperature", s.TemperatureUSB},
		{"humidity", s.HumidityUSB},
		{"temperature_probe1", func() (float64, error) { return s.TemperatureProbe(1) }},
		{"temperature_probe2", func() (float64, error) { return s.TemperatureProbe(2) }},
	}
	for _, sensor := range sensors {
		v, err := sensor.read()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sensor.name, err)
		}
		readings[sensor.name] = v
	}
	return readings, nil
}
