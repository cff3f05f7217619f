package alliedvision

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DummyCameraIDs are the cameras listed by the dummy system.
var DummyCameraIDs = []string{"camera1", "camera2", "DEV_000F314E6DE1"}

func dummyFeatures() map[string]any {
	return map[string]any{
		"DeviceModelName": "Manta G-235B",
		"GVSPPacketSize":  int64(1500),
		"ExposureTimeAbs": 14999.0,
		"Gain":            0.0,
		"OffsetX":         int64(0),
		"OffsetY":         int64(0),
		"Width":           int64(1936),
		"Height":          int64(1216),
		"SensorWidth":     int64(1936),
		"SensorHeight":    int64(1216),
		"AcquisitionMode": "Continuous",
		"TriggerMode":     "On",
		"TriggerSource":   "Freerun",
		"PixelFormat":     "Mono8",
	}
}

// DummySystem is a camera system with simulated cameras.
type DummySystem struct {
	started bool
}

func (s *DummySystem) Startup() error {
	s.started = true
	return nil
}

func (s *DummySystem) Shutdown() error {
	s.started = false
	return nil
}

func (s *DummySystem) CameraIDs() ([]string, error) {
	if !s.started {
		return nil, fmt.Errorf("camera system not started")
	}
	return DummyCameraIDs, nil
}

func (s *DummySystem) Open(id string) (Camera, error) {
	if !s.started {
		return nil, fmt.Errorf("camera system not started")
	}
	return &dummyCamera{features: dummyFeatures()}, nil
}

type dummyCamera struct {
	features map[string]any
	armed    bool
}

func feature[T any](c *dummyCamera, name string) (T, error) {
	var zero T
	v, ok := c.features[name]
	if !ok {
		return zero, fmt.Errorf("unknown feature %s", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("feature %s is %T, not %T", name, v, zero)
	}
	return t, nil
}

func setFeature[T any](c *dummyCamera, name string, v T) error {
	if _, err := feature[T](c, name); err != nil {
		return err
	}
	c.features[name] = v
	return nil
}

func (c *dummyCamera) Int(name string) (int64, error)        { return feature[int64](c, name) }
func (c *dummyCamera) SetInt(name string, v int64) error     { return setFeature(c, name, v) }
func (c *dummyCamera) Float(name string) (float64, error)    { return feature[float64](c, name) }
func (c *dummyCamera) SetFloat(name string, v float64) error { return setFeature(c, name, v) }
func (c *dummyCamera) Enum(name string) (string, error)      { return feature[string](c, name) }
func (c *dummyCamera) SetEnum(name string, v string) error   { return setFeature(c, name, v) }
func (c *dummyCamera) String(name string) (string, error)    { return feature[string](c, name) }

func (c *dummyCamera) Arm(mode string) error {
	c.features["AcquisitionMode"] = mode
	c.armed = true
	return nil
}

func (c *dummyCamera) Disarm() error {
	c.armed = false
	return nil
}

// AcquireFrame returns a horizontal gradient of the configured size.
func (c *dummyCamera) AcquireFrame(time.Duration) (Frame, error) {
	if !c.armed {
		return Frame{}, fmt.Errorf("camera not armed")
	}

	w, _ := feature[int64](c, "Width")
	h, _ := feature[int64](c, "Height")
	format, _ := feature[string](c, "PixelFormat")

	bpp := 1
	if format == "Mono12" {
		bpp = 2
	}
	data := make([]byte, int(w*h)*bpp)
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			i := (y*int(w) + x) * bpp
			data[i] = byte(x * 256 / int(w))
			if bpp == 2 {
				v := uint16(x * 4096 / int(w))
				data[i], data[i+1] = byte(v), byte(v>>8)
			}
		}
	}
	return Frame{Width: int(w), Height: int(h), PixelFormat: format, Data: data}, nil
}

func (c *dummyCamera) Close() error {
	return nil
}

// NewMantaDummy returns a camera backed by DummySystem. The id must be one of
// DummyCameraIDs for Initialize to succeed.
func NewMantaDummy(name, id string, logger log.FieldLogger) *Manta {
	return NewManta(name, id, &DummySystem{}, logger)
}
