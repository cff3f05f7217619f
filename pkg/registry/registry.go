// Package registry builds the configured devices and serialises access to
// them.
package registry

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/config"
	"labdevices/pkg/device"
)

// Entry owns one device. Drivers are not safe for concurrent use, so every
// call goes through Do.
type Entry struct {
	name string

	mu  sync.Mutex
	cfg config.DeviceConfig
	dev device.Device
}

// Name returns the name the entry was registered under. It never changes.
func (e *Entry) Name() string {
	return e.name
}

func (e *Entry) Config() config.DeviceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Info returns the device identity.
func (e *Entry) Info() device.Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev.Info()
}

// Do runs fn with exclusive access to the device.
func (e *Entry) Do(fn func(dev device.Device) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.dev)
}

// Registry holds the devices in configuration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	logger  log.FieldLogger
}

func New(logger log.FieldLogger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// Load builds every device in cfgs. Devices that cannot be built are logged
// and skipped.
func (r *Registry) Load(cfgs []config.DeviceConfig) {
	for _, cfg := range cfgs {
		if err := r.Add(cfg); err != nil {
			r.logger.Errorf("Skipping device %s: %v", cfg.Name, err)
		}
	}
}

// Add builds the device and registers it under its name.
func (r *Registry) Add(cfg config.DeviceConfig) error {
	dev, err := Build(cfg, r.logger)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[cfg.Name]; ok {
		return fmt.Errorf("device %s already registered", cfg.Name)
	}
	r.entries[cfg.Name] = &Entry{name: cfg.Name, cfg: cfg, dev: dev}
	r.order = append(r.order, cfg.Name)
	r.logger.Debugf("Registered %s (%s, dummy=%v)", cfg.Name, cfg.Model, cfg.Dummy)
	return nil
}

// Replace closes the named device and rebuilds it from cfg. The new device
// is left closed.
func (r *Registry) Replace(cfg config.DeviceConfig) error {
	e, ok := r.Get(cfg.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, cfg.Name)
	}

	dev, err := Build(cfg, r.logger)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dev.Close(); err != nil {
		r.logger.Warnf("Failed to close %s: %v", cfg.Name, err)
	}
	e.cfg = cfg
	e.dev = dev
	return nil
}

// Get returns the entry of the named device.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Entries returns all entries in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entries[name])
	}
	return entries
}

// Close closes every device.
func (r *Registry) Close() {
	for _, e := range r.Entries() {
		err := e.Do(func(dev device.Device) error {
			return dev.Close()
		})
		if err != nil {
			r.logger.Errorf("Failed to close %s: %v", e.Name(), err)
		}
	}
}
