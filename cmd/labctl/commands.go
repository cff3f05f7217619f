package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"labdevices/pkg/config"
	"labdevices/pkg/device"
	"labdevices/pkg/registry"
	"labdevices/pkg/waveform"
)

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List the configured devices",
	Action: func(c *cli.Context) error {
		e, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer e.close()

		stored, err := e.store.Devices()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODEL\tADDRESS\tDUMMY\tSOURCE")
		for _, d := range e.devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\tconfig\n", d.Name, d.Model, address(d), d.Dummy)
		}
		// Saved settings of devices no longer in the config file are not
		// loaded. They stay until forgotten.
		for _, d := range stored {
			if _, ok := e.cfg.Device(d.Name); ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\tstale\n", d.Name, d.Model, address(d), d.Dummy)
		}
		return w.Flush()
	},
}

var calibrateCommand = &cli.Command{
	Name:      "calibrate",
	Usage:     "Save the stepper calibration of a device",
	ArgsUsage: "NAME UNITS_PER_TURN",
	Action: func(c *cli.Context) error {
		name := c.Args().Get(0)
		if name == "" || c.Args().Len() != 2 {
			return fmt.Errorf("usage: calibrate NAME UNITS_PER_TURN")
		}
		units, err := strconv.ParseFloat(c.Args().Get(1), 64)
		if err != nil {
			return fmt.Errorf("invalid calibration: %w", err)
		}

		e, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.store.SetCalibration(name, units); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %g units per turn\n", name, units)
		return nil
	},
}

var forgetCommand = &cli.Command{
	Name:      "forget",
	Usage:     "Drop the saved settings of a device, reverting to the config file",
	ArgsUsage: "NAME",
	Action: func(c *cli.Context) error {
		name := c.Args().First()
		if name == "" {
			return fmt.Errorf("missing device name")
		}

		e, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.store.DeleteDevice(name); err != nil {
			return err
		}
		log.Infof("Forgot saved settings of %s", name)
		return nil
	},
}

var modelsCommand = &cli.Command{
	Name:  "models",
	Usage: "List the supported models",
	Action: func(c *cli.Context) error {
		for _, m := range registry.Models() {
			fmt.Fprintln(c.App.Writer, m)
		}
		return nil
	},
}

func address(d config.DeviceConfig) string {
	switch {
	case d.Address != "" && d.GPIB != 0:
		return fmt.Sprintf("%s gpib %d", d.Address, d.GPIB)
	case d.Address != "" && d.Port != "":
		return d.Address + ":" + d.Port
	case d.Address != "":
		return d.Address
	case d.DevNumber != 0:
		return fmt.Sprintf("%s #%d", d.Port, d.DevNumber)
	default:
		return d.Port
	}
}

// withDevice opens the named device, runs fn and closes it again.
func withDevice(c *cli.Context, fn func(dev device.Device) error) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("missing device name")
	}

	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	var cfg config.DeviceConfig
	found := false
	for _, d := range e.devices {
		if d.Name == name {
			cfg, found = d, true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown device: %s", name)
	}

	dev, err := registry.Build(cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	if err := dev.Initialize(); err != nil {
		return fmt.Errorf("cannot connect to %s: %w", name, err)
	}
	defer dev.Close()

	return fn(dev)
}

func withInstrument(c *cli.Context, fn func(inst device.Instrument) error) error {
	return withDevice(c, func(dev device.Device) error {
		inst, ok := dev.(device.Instrument)
		if !ok {
			return fmt.Errorf("%s does not accept raw commands", dev.Info().Name)
		}
		return fn(inst)
	})
}

var idnCommand = &cli.Command{
	Name:      "idn",
	Usage:     "Print the identification of a device",
	ArgsUsage: "NAME",
	Action: func(c *cli.Context) error {
		return withDevice(c, func(dev device.Device) error {
			idn, err := dev.IDN()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, idn)
			return nil
		})
	},
}

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Send a command and print the reply",
	ArgsUsage: "NAME COMMAND",
	Action: func(c *cli.Context) error {
		cmd := c.Args().Get(1)
		if cmd == "" {
			return fmt.Errorf("missing command")
		}
		return withInstrument(c, func(inst device.Instrument) error {
			reply, err := inst.Query(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, reply)
			return nil
		})
	},
}

var writeCommand = &cli.Command{
	Name:      "write",
	Usage:     "Send a command",
	ArgsUsage: "NAME COMMAND",
	Action: func(c *cli.Context) error {
		cmd := c.Args().Get(1)
		if cmd == "" {
			return fmt.Errorf("missing command")
		}
		return withInstrument(c, func(inst device.Instrument) error {
			return inst.Write(cmd)
		})
	},
}

type channelTracer interface {
	Trace(channel int) (waveform.Trace, error)
}

type tracer interface {
	Trace() (waveform.Trace, error)
}

var traceCommand = &cli.Command{
	Name:      "trace",
	Usage:     "Download a trace from an oscilloscope or spectrum analyzer",
	ArgsUsage: "NAME",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "channel",
			Usage: "Oscilloscope channel",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Write the trace as CSV to this file, - for stdout",
		},
		&cli.StringFlag{
			Name:  "png",
			Usage: "Plot the trace to this PNG file",
		},
	},
	Action: func(c *cli.Context) error {
		return withDevice(c, func(dev device.Device) error {
			var (
				tr           waveform.Trace
				err          error
				xName, yName = "time_s", "voltage_v"
			)
			switch d := dev.(type) {
			case channelTracer:
				tr, err = d.Trace(c.Int("channel"))
			case tracer:
				tr, err = d.Trace()
				xName, yName = "x", "level"
			default:
				return fmt.Errorf("%s does not record traces", dev.Info().Name)
			}
			if err != nil {
				return err
			}

			lo, hi, mean := tr.Stats()
			log.Infof("%d points, min %g, max %g, mean %g", tr.Len(), lo, hi, mean)

			if path := c.String("csv"); path != "" {
				if err := writeCSV(c, tr, path, xName, yName); err != nil {
					return err
				}
			}
			if path := c.String("png"); path != "" {
				if err := tr.SavePNG(path, dev.Info().Name, xName, yName); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func writeCSV(c *cli.Context, tr waveform.Trace, path, xName, yName string) error {
	if path == "-" {
		return tr.WriteCSV(c.App.Writer, xName, yName)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tr.WriteCSV(f, xName, yName); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
