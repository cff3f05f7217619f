package api

import (
	"fmt"
	"net/http"

	"labdevices/pkg/device"
	"labdevices/pkg/registry"
)

// DeviceHandler serves the routes of one registered device.
type DeviceHandler struct {
	entry *registry.Entry
}

func NewDeviceHandler(entry *registry.Entry) *DeviceHandler {
	return &DeviceHandler{entry}
}

func (h *DeviceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /info", handle(h.handleInfo))
	mux.Handle("GET /idn", handle(h.handleIDN))
	mux.Handle("GET /connected", handle(h.handleConnected))

	mux.Handle("PUT /connect", handle(h.handleConnect))
	mux.Handle("PUT /disconnect", handle(h.handleDisconnect))
	mux.Handle("PUT /write", handle(h.handleWrite))
	mux.Handle("PUT /query", handle(h.handleQuery))
}

func (h *DeviceHandler) handleInfo(r *http.Request) (any, error) {
	return h.entry.Info(), nil
}

func (h *DeviceHandler) handleIDN(r *http.Request) (any, error) {
	var idn string
	err := h.entry.Do(func(dev device.Device) error {
		var err error
		idn, err = dev.IDN()
		return err
	})
	return idn, err
}

func (h *DeviceHandler) handleConnected(r *http.Request) (any, error) {
	var connected bool
	h.entry.Do(func(dev device.Device) error {
		connected = dev.Connected()
		return nil
	})
	return connected, nil
}

func (h *DeviceHandler) handleConnect(r *http.Request) (any, error) {
	err := h.entry.Do(func(dev device.Device) error {
		return dev.Initialize()
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect: %w", err)
	}
	return true, nil
}

func (h *DeviceHandler) handleDisconnect(r *http.Request) (any, error) {
	err := h.entry.Do(func(dev device.Device) error {
		return dev.Close()
	})
	return err == nil, err
}

func (h *DeviceHandler) instrument(fn func(inst device.Instrument) error) error {
	return h.entry.Do(func(dev device.Device) error {
		inst, ok := dev.(device.Instrument)
		if !ok {
			return fmt.Errorf("raw commands: %w", errNotImplemented)
		}
		return fn(inst)
	})
}

func (h *DeviceHandler) handleWrite(r *http.Request) (any, error) {
	cmd, err := param(r, "Command")
	if err != nil {
		return nil, err
	}
	return nil, h.instrument(func(inst device.Instrument) error {
		return inst.Write(cmd)
	})
}

func (h *DeviceHandler) handleQuery(r *http.Request) (any, error) {
	cmd, err := param(r, "Command")
	if err != nil {
		return nil, err
	}

	var reply string
	err = h.instrument(func(inst device.Instrument) error {
		var err error
		reply, err = inst.Query(cmd)
		return err
	})
	return reply, err
}
