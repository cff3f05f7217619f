package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"labdevices/pkg/config"
	"labdevices/pkg/store"
)

// env is the state shared by the subcommands.
type env struct {
	cfg     config.Config
	devices []config.DeviceConfig
	store   *store.Store
	close   func() error
}

func setupLogging(c *cli.Context, cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}
	if c.Bool("debug") {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	file := cfg.File
	if c.IsSet("log-file") {
		file = c.String("log-file")
	}
	if file != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}))
	}
	return nil
}

// loadEnv reads the configuration and merges the device settings saved in
// the database over it.
func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := setupLogging(c, cfg.Log); err != nil {
		return nil, err
	}

	db, err := store.Open(c.String("db"))
	if err != nil {
		return nil, err
	}

	st, err := store.New(db, cfg.Devices)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store: %v", err)
	}

	devices := make([]config.DeviceConfig, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		saved, err := st.Device(d.Name)
		if err != nil {
			log.Warnf("Using file config for %s: %v", d.Name, err)
			saved = d
		}
		devices = append(devices, saved)
	}

	return &env{cfg: cfg, devices: devices, store: st, close: db.Close}, nil
}

func main() {
	app := cli.App{
		Name:  "labctl",
		Usage: "Control laboratory instruments",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"LABDEVICES_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Database for device settings",
				Value:   "labdevices.db",
				EnvVars: []string{"LABDEVICES_DB"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write logs to this file, rotated",
				EnvVars: []string{"LABDEVICES_LOG_FILE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			monitorCommand,
			devicesCommand,
			calibrateCommand,
			forgetCommand,
			modelsCommand,
			idnCommand,
			queryCommand,
			writeCommand,
			traceCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
