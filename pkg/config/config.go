// Package config loads the labdevices YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"labdevices/pkg/transport"
)

const (
	defaultPort       = 8090
	defaultMQTTHost   = "localhost"
	defaultMQTTPort   = 1883
	defaultTopicRoot  = "labdevices"
	defaultInterval   = 10 * time.Second
	defaultTimeout    = 2 * time.Second
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	Log     LogConfig      `yaml:"log"`
	Devices []DeviceConfig `yaml:"devices"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	DiscoveryAddr string `yaml:"discovery_addr"`
	Name          string `yaml:"name"`
	Location      string `yaml:"location"`
}

type MQTTConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	ClientID  string        `yaml:"client_id"`
	TopicRoot string        `yaml:"topic_root"`
	Interval  time.Duration `yaml:"interval"`
}

// Broker returns the broker URL used by the MQTT client.
func (c MQTTConfig) Broker() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DeviceConfig describes one configured instrument. Which address fields are
// used depends on the model.
type DeviceConfig struct {
	Name  string `yaml:"name" json:"name"`
	Model string `yaml:"model" json:"model"`

	// Address is an IP address, a VISA style resource, a USBTMC path or a
	// camera ID.
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	// Port is a serial port path, or the TCP port for models that take one.
	Port string `yaml:"port,omitempty" json:"port,omitempty"`
	// GPIB is the bus address behind a Prologix adapter.
	GPIB int `yaml:"gpib,omitempty" json:"gpib,omitempty"`
	// DevNumber is the controller address on a shared serial line.
	DevNumber   int    `yaml:"dev_number,omitempty" json:"dev_number,omitempty"`
	HostAddress string `yaml:"host_address,omitempty" json:"host_address,omitempty"`

	Timeout     time.Duration         `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Calibration float64               `yaml:"calibration,omitempty" json:"calibration,omitempty"`
	Serial      transport.PortOptions `yaml:"serial,omitempty" json:"serial,omitempty"`
	Dummy       bool                  `yaml:"dummy,omitempty" json:"dummy,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          defaultPort,
			DiscoveryAddr: "0.0.0.0",
			Name:          "labdevices",
			Location:      "lab",
		},
		MQTT: MQTTConfig{
			Host:      defaultMQTTHost,
			Port:      defaultMQTTPort,
			ClientID:  "labdevices",
			TopicRoot: defaultTopicRoot,
			Interval:  defaultInterval,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the device list and fills in device defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.MQTT.Interval <= 0 {
		c.MQTT.Interval = defaultInterval
	}

	seen := make(map[string]bool)
	for i := range c.Devices {
		d := &c.Devices[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("device %d: %w", i, err)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate device name: %s", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// Validate checks a single device entry and fills in the default timeout.
func (d *DeviceConfig) Validate() error {
	if d.Name == "" {
		return errors.New("missing name")
	}
	if d.Model == "" {
		return fmt.Errorf("%s: missing model", d.Name)
	}
	if d.GPIB < 0 || d.GPIB > 30 {
		return fmt.Errorf("%s: GPIB address %d out of range", d.Name, d.GPIB)
	}
	if d.DevNumber < 0 {
		return fmt.Errorf("%s: negative device number", d.Name)
	}
	if d.Calibration < 0 {
		return fmt.Errorf("%s: negative calibration", d.Name)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("%s: negative timeout", d.Name)
	}
	if d.Timeout == 0 {
		d.Timeout = defaultTimeout
	}
	return nil
}

// Device returns the configuration of the named device.
func (c Config) Device(name string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceConfig{}, false
}
