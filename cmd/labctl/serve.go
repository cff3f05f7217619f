package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"labdevices/pkg/api"
	"labdevices/pkg/registry"
	"labdevices/pkg/telemetry"
	"labdevices/templates"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Serve the configured devices over HTTP",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to listen on (overrides the config file)",
			EnvVars: []string{"LABDEVICES_PORT"},
		},
		&cli.BoolFlag{
			Name:    "telemetry",
			Usage:   "Also poll sensors and publish their readings",
			EnvVars: []string{"LABDEVICES_TELEMETRY"},
		},
	},
	Action: serve,
}

func serve(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	port := e.cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	log.Info("labdevices server")

	tmpl, err := templates.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %v", err)
	}

	reg := registry.New(log.StandardLogger())
	reg.Load(e.devices)
	defer reg.Close()

	desc := api.ServerDescription{
		Name:                e.cfg.Server.Name,
		Manufacturer:        "labdevices",
		ManufacturerVersion: "1.0",
		Location:            e.cfg.Server.Location,
	}
	server := api.NewServer(desc, reg, e.store, tmpl, log.WithField("component", "api"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: server.AddRoutes(),
	}

	// Channel to listen for interrupt or terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Debugf("Server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Could not listen on %s: %v", srv.Addr, err)
			stop()
		}
	}()

	info := func() api.DiscoveryReply {
		reply := api.DiscoveryReply{
			Port:       port,
			ServerName: e.cfg.Server.Name,
			Location:   e.cfg.Server.Location,
		}
		for _, entry := range reg.Entries() {
			reply.Devices = append(reply.Devices, entry.Name())
		}
		return reply
	}
	dr := api.NewDiscoveryResponder(e.cfg.Server.DiscoveryAddr, api.DiscoveryPort, info, log.WithField("component", "discovery"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dr.Run(ctx); err != nil {
			log.Errorf("Discovery responder failed: %v", err)
		}
		log.Debug("Discovery responder stopped")
	}()

	if c.Bool("telemetry") {
		pub, err := telemetry.NewMQTTPublisher(e.cfg.MQTT)
		if err != nil {
			log.Warnf("Publishing disabled: %v", err)
		} else {
			defer pub.Close()
		}

		mon, err := newMonitor(reg, pub, e, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.Run(ctx)
		}()
	}

	<-ctx.Done()

	log.Info("Shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("server forced to shutdown: %v", err)
	}

	wg.Wait()
	log.Info("Server stopped")
	return nil
}

// newMonitor avoids handing the monitor a typed nil publisher.
func newMonitor(reg *registry.Registry, pub *telemetry.MQTTPublisher, e *env, r prometheus.Registerer) (*telemetry.Monitor, error) {
	var p telemetry.Publisher
	if pub != nil {
		p = pub
	}
	return telemetry.NewMonitor(reg, p, e.cfg.MQTT.TopicRoot, e.cfg.MQTT.Interval, r, log.StandardLogger())
}

var monitorCommand = &cli.Command{
	Name:  "monitor",
	Usage: "Poll sensors and publish their readings to MQTT and Prometheus",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port of the Prometheus endpoint",
			Value:   9100,
			EnvVars: []string{"LABDEVICES_METRICS_PORT"},
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Poll interval (overrides the config file)",
		},
	},
	Action: monitor,
}

func monitor(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	if c.IsSet("interval") {
		if c.Duration("interval") <= 0 {
			return fmt.Errorf("interval must be positive, got %v", c.Duration("interval"))
		}
		e.cfg.MQTT.Interval = c.Duration("interval")
	}

	reg := registry.New(log.StandardLogger())
	reg.Load(e.devices)
	defer reg.Close()

	pub, err := telemetry.NewMQTTPublisher(e.cfg.MQTT)
	if err != nil {
		return err
	}
	defer pub.Close()

	mon, err := newMonitor(reg, pub, e, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Int("metrics-port")),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics endpoint failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Publishing readings every %s to %s", e.cfg.MQTT.Interval, e.cfg.MQTT.Broker())
	mon.Run(ctx)

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx2)
}
