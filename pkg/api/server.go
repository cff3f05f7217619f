// Package api serves the registered devices over an HTTP JSON API modelled on
// the ASCOM Alpaca envelope, plus a setup page and a discovery responder.
package api

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/config"
	"labdevices/pkg/device"
	"labdevices/pkg/registry"
)

type ServerDescription struct {
	Name                string `json:"ServerName"`
	Manufacturer        string `json:"Manufacturer"`
	ManufacturerVersion string `json:"ManufacturerVersion"`
	Location            string `json:"Location"`
}

// DeviceStore persists device settings edited on the setup page.
type DeviceStore interface {
	SetDevice(cfg config.DeviceConfig) error
}

// Server provides information about the server and the devices it manages.
type Server struct {
	description ServerDescription
	registry    *registry.Registry
	store       DeviceStore
	tmpl        *template.Template
	logger      log.FieldLogger
}

func NewServer(description ServerDescription, reg *registry.Registry, store DeviceStore, tmpl *template.Template, logger log.FieldLogger) *Server {
	server := Server{
		description: description,
		registry:    reg,
		store:       store,
		tmpl:        tmpl,
		logger:      logger,
	}

	return &server
}

type DeviceHTTPHandler interface {
	RegisterRoutes(mux *http.ServeMux)
}

func (s *Server) AddRoutes() *http.ServeMux {
	r := http.NewServeMux()

	// Add management routes
	r.Handle("GET /management/apiversions", handle(s.handleAPIVersions))
	r.Handle("GET /management/v1/description", handle(s.handleDescription))
	r.Handle("GET /management/v1/configureddevices", handle(s.handleConfiguredDevices))
	r.HandleFunc("/setup", s.handleSetup)
	r.Handle("GET /metrics", promhttp.Handler())

	// Create handlers for each device
	for _, entry := range s.registry.Entries() {
		mux := http.NewServeMux()
		var handler DeviceHTTPHandler = NewDeviceHandler(entry)
		handler.RegisterRoutes(mux)

		prefix := "/api/v1/devices/" + entry.Name()
		r.Handle(prefix+"/", http.StripPrefix(prefix, mux))
		s.logger.Debugf("Serving %s at %s", entry.Name(), prefix)
	}

	return r
}

func (s *Server) handleAPIVersions(r *http.Request) (any, error) {
	return []int{1}, nil
}

func (s *Server) handleDescription(r *http.Request) (any, error) {
	return s.description, nil
}

func (s *Server) handleConfiguredDevices(r *http.Request) (any, error) {
	entries := s.registry.Entries()
	deviceInfo := make([]device.Info, 0, len(entries))
	for _, entry := range entries {
		deviceInfo = append(deviceInfo, entry.Info())
	}

	return deviceInfo, nil
}

// handleSetup returns a page for editing device addresses.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSetupForm(w, false, "")

	case http.MethodPost:
		cfg, err := s.parseSetupForm(r)
		if err != nil {
			s.renderSetupForm(w, false, err.Error())
			return
		}

		if err := cfg.Validate(); err != nil {
			s.renderSetupForm(w, false, err.Error())
			return
		}

		// Only a configuration the registry accepted is persisted.
		s.logger.Infof("Setting device config: %+v", cfg)
		if err := s.registry.Replace(cfg); err != nil {
			s.renderSetupForm(w, false, err.Error())
			return
		}
		if s.store != nil {
			if err := s.store.SetDevice(cfg); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		s.renderSetupForm(w, true, "")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderSetupForm(w http.ResponseWriter, success bool, err string) {
	entries := s.registry.Entries()
	devices := make([]config.DeviceConfig, 0, len(entries))
	for _, e := range entries {
		devices = append(devices, e.Config())
	}

	data := struct {
		Description ServerDescription
		Devices     []config.DeviceConfig
		Success     bool
		Error       string
	}{s.description, devices, success, err}

	if err := s.tmpl.ExecuteTemplate(w, "setup.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Errorf("Error rendering template: %v", err)
	}
}

// parseSetupForm applies the submitted fields to the stored configuration of
// the named device.
func (s *Server) parseSetupForm(r *http.Request) (config.DeviceConfig, error) {
	if err := r.ParseForm(); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("error parsing form: %v", err)
	}

	name := r.FormValue("name")
	entry, ok := s.registry.Get(name)
	if !ok {
		return config.DeviceConfig{}, fmt.Errorf("unknown device: %q", name)
	}

	cfg := entry.Config()
	cfg.Address = r.FormValue("address")
	cfg.Port = r.FormValue("port")
	cfg.HostAddress = r.FormValue("host-address")
	cfg.Dummy = r.FormValue("dummy") == "true"

	var err error
	if cfg.GPIB, err = optionalInt(r.FormValue("gpib")); err != nil {
		return cfg, fmt.Errorf("invalid GPIB address: %v", err)
	}
	if cfg.DevNumber, err = optionalInt(r.FormValue("dev-number")); err != nil {
		return cfg, fmt.Errorf("invalid device number: %v", err)
	}
	if v := r.FormValue("timeout"); v != "" {
		if cfg.Timeout, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("invalid timeout: %v", err)
		}
	}
	if v := r.FormValue("calibration"); v != "" {
		if cfg.Calibration, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("invalid calibration: %v", err)
		}
	}
	return cfg, nil
}

func optionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
