package registry

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/config"
	"labdevices/pkg/device"
	"labdevices/pkg/drivers/alliedvision"
	"labdevices/pkg/drivers/ando"
	"labdevices/pkg/drivers/appliedmotion"
	"labdevices/pkg/drivers/granville"
	"labdevices/pkg/drivers/keysight"
	"labdevices/pkg/drivers/kuhne"
	"labdevices/pkg/drivers/newport"
	"labdevices/pkg/drivers/pfeiffer"
	"labdevices/pkg/drivers/rohdeschwarz"
	"labdevices/pkg/drivers/srs"
	"labdevices/pkg/drivers/thorlabs"
)

var (
	ErrUnknownModel  = errors.New("unknown model")
	ErrNotRegistered = errors.New("device not registered")
)

// defaultCameraID is used by the dummy camera when no address is set.
const defaultCameraID = "DEV_000F314E6DE1"

type factory struct {
	real  func(cfg config.DeviceConfig, logger log.FieldLogger) (device.Device, error)
	dummy func(cfg config.DeviceConfig, logger log.FieldLogger) device.Device
}

var models = map[string]factory{
	"keysight-scope": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return keysight.NewOscilloscope(c.Name, c.Address, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return keysight.NewOscilloscopeDummy(c.Name, l)
		},
	},
	"keysight-counter": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return keysight.NewCounter(c.Name, c.Address, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return keysight.NewCounterDummy(c.Name, l)
		},
	},
	"rs-fpc1000": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return rohdeschwarz.NewFPC1000(c.Name, c.Address, c.Timeout, l)
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return rohdeschwarz.NewFPC1000Dummy(c.Name, l)
		},
	},
	"rs-scope": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return rohdeschwarz.NewOscilloscope(c.Name, c.Address, c.Timeout, l)
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return rohdeschwarz.NewOscilloscopeDummy(c.Name, l)
		},
	},
	"ando-aq6315": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return ando.NewSpectrumAnalyzer(c.Name, c.Address, c.GPIB, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return ando.NewSpectrumAnalyzerDummy(c.Name, l)
		},
	},
	"stf03d": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return appliedmotion.NewSTF03D(c.Name, c.Address, c.HostAddress, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return appliedmotion.NewSTF03DDummy(c.Name, l)
		},
	},
	"tpg362": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return pfeiffer.NewTPG362(c.Name, c.Port, c.Serial, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return pfeiffer.NewTPG362Dummy(c.Name, l)
		},
	},
	"smc100": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return newport.NewSMC100(c.Name, c.Port, c.DevNumber, c.Serial, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return newport.NewSMC100Dummy(c.Name, l)
		},
	},
	"dg645": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			port := 0
			if c.Port != "" {
				var err error
				if port, err = strconv.Atoi(c.Port); err != nil {
					return nil, fmt.Errorf("%w: port %q", device.ErrInvalidAddress, c.Port)
				}
			}
			return srs.NewDG645(c.Name, c.Address, port, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return srs.NewDG645Dummy(c.Name, l)
		},
	},
	"gp350": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return granville.NewGP350(c.Name, c.Port, c.Serial, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return granville.NewGP350Dummy(c.Name, l)
		},
	},
	"kuhne-lo": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return kuhne.NewLocalOscillator(c.Name, c.Port, c.Serial, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return kuhne.NewLocalOscillatorDummy(c.Name, l)
		},
	},
	"tsp01": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return thorlabs.NewTSP01(c.Name, c.Address, c.Timeout, l), nil
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			return thorlabs.NewTSP01Dummy(c.Name, l)
		},
	},
	"manta": {
		real: func(c config.DeviceConfig, l log.FieldLogger) (device.Device, error) {
			return nil, fmt.Errorf("no camera system available for %s, use dummy", c.Address)
		},
		dummy: func(c config.DeviceConfig, l log.FieldLogger) device.Device {
			id := c.Address
			if id == "" {
				id = defaultCameraID
			}
			return alliedvision.NewMantaDummy(c.Name, id, l)
		},
	},
}

// Models returns the supported model names in order.
func Models() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type calibrator interface {
	SetCalibration(unitsPerTurn float64)
}

// Build creates the driver for cfg without opening it.
func Build(cfg config.DeviceConfig, logger log.FieldLogger) (device.Device, error) {
	f, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, cfg.Model)
	}

	var dev device.Device
	if cfg.Dummy {
		dev = f.dummy(cfg, logger)
	} else {
		var err error
		if dev, err = f.real(cfg, logger); err != nil {
			return nil, err
		}
	}

	if c, ok := dev.(calibrator); ok && cfg.Calibration > 0 {
		c.SetCalibration(cfg.Calibration)
	}
	return dev, nil
}
