// Package store persists device settings edited at runtime.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"labdevices/pkg/config"
)

const devicesBucket = "devices"

var ErrNotFound = errors.New("device not found")

// Store keeps one JSON document per device, keyed by device name.
type Store struct {
	db *bolt.DB
}

// Open opens the database at path.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return db, nil
}

// New creates a store and writes every device from defaults that is not
// stored yet. Devices already stored keep their saved settings.
func New(db *bolt.DB, defaults []config.DeviceConfig) (*Store, error) {
	st := Store{db: db}

	if err := st.setDefaults(defaults); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) setDefaults(defaults []config.DeviceConfig) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(devicesBucket))
		if err != nil {
			return err
		}

		for _, cfg := range defaults {
			if b.Get([]byte(cfg.Name)) != nil {
				continue
			}
			log.Infof("Storing default config for %s", cfg.Name)
			if err := put(b, cfg); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(b *bolt.Bucket, cfg config.DeviceConfig) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return b.Put([]byte(cfg.Name), value)
}

func get(b *bolt.Bucket, name string) (config.DeviceConfig, error) {
	var cfg config.DeviceConfig

	value := b.Get([]byte(name))
	if value == nil {
		return cfg, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	err := json.Unmarshal(value, &cfg)
	return cfg, err
}

// SetDevice saves the device configuration.
func (s *Store) SetDevice(cfg config.DeviceConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if cfg.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(devicesBucket))
		if err != nil {
			return err
		}
		return put(b, cfg)
	})
}

// Device retrieves the configuration of the named device.
func (s *Store) Device(name string) (config.DeviceConfig, error) {
	var cfg config.DeviceConfig

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(devicesBucket))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		var err error
		cfg, err = get(b, name)
		return err
	})

	return cfg, err
}

// Devices returns all stored devices ordered by name.
func (s *Store) Devices() ([]config.DeviceConfig, error) {
	var devices []config.DeviceConfig

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(devicesBucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var cfg config.DeviceConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("device %s: %w", k, err)
			}
			devices = append(devices, cfg)
			return nil
		})
	})

	return devices, err
}

// DeleteDevice removes the named device. Deleting a missing device is not an
// error.
func (s *Store) DeleteDevice(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(devicesBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
}

// SetCalibration updates the stepper calibration, in units per motor turn, of
// a stored device.
func (s *Store) SetCalibration(name string, unitsPerTurn float64) error {
	if unitsPerTurn <= 0 {
		return fmt.Errorf("invalid calibration: %g", unitsPerTurn)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(devicesBucket))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		cfg, err := get(b, name)
		if err != nil {
			return err
		}
		cfg.Calibration = unitsPerTurn
		return put(b, cfg)
	})
}
