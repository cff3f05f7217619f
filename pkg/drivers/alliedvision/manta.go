package alliedvision

import (
	"fmt"
	"image"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
)

const (
	vendor = "Allied Vision"
	model  = "Manta"

	frameTimeout = 5 * time.Second
)

var acquisitionModes = map[string]bool{
	"SingleFrame": true,
	"Continuous":  true,
}

var triggerModes = []string{"Off", "On"}

// Manta is a GigE camera. It is identified by its camera ID, usually of the
// form DEV_000F314E1E59.
type Manta struct {
	info   device.Info
	system System
	camera Camera
	logger log.FieldLogger
}

var _ device.Device = (*Manta)(nil)

func NewManta(name, id string, system System, logger log.FieldLogger) *Manta {
	return &Manta{
		info:   device.NewInfo(name, vendor, model, id),
		system: system,
		logger: logger.WithField("device", name),
	}
}

func (m *Manta) Info() device.Info {
	return m.info
}

// Initialize starts the camera system and opens the camera.
func (m *Manta) Initialize() error {
	if m.camera != nil {
		return nil
	}

	if err := m.system.Startup(); err != nil {
		return fmt.Errorf("cannot start camera system: %w", err)
	}

	ids, err := m.system.CameraIDs()
	if err != nil {
		m.system.Shutdown()
		return fmt.Errorf("cannot list cameras: %w", err)
	}
	for _, id := range ids {
		if id != m.info.Address {
			continue
		}
		cam, err := m.system.Open(id)
		if err != nil {
			m.system.Shutdown()
			return fmt.Errorf("cannot open camera %s: %w", id, err)
		}
		m.camera = cam
		m.logger.Infof("Connected to camera %s", id)
		return nil
	}

	m.system.Shutdown()
	return fmt.Errorf("%w: camera %s not found", device.ErrInvalidAddress, m.info.Address)
}

// Close closes the camera and shuts the camera system down.
func (m *Manta) Close() error {
	if m.camera == nil {
		return nil
	}

	err := m.camera.Close()
	m.camera = nil
	if serr := m.system.Shutdown(); err == nil {
		err = serr
	}
	m.logger.Info("Camera closed")
	return err
}

func (m *Manta) Connected() bool {
	return m.camera != nil
}

// IDN returns the camera ID.
func (m *Manta) IDN() (string, error) {
	return m.info.Address, nil
}

func (m *Manta) cam() (Camera, error) {
	if m.camera == nil {
		return nil, device.ErrNotConnected
	}
	return m.camera, nil
}

func (m *Manta) intFeature(name string) (int, error) {
	cam, err := m.cam()
	if err != nil {
		return 0, err
	}
	v, err := cam.Int(name)
	return int(v), err
}

func (m *Manta) setIntFeature(name string, v int) error {
	cam, err := m.cam()
	if err != nil {
		return err
	}
	return cam.SetInt(name, int64(v))
}

func (m *Manta) enumFeature(name string) (string, error) {
	cam, err := m.cam()
	if err != nil {
		return "", err
	}
	return cam.Enum(name)
}

func (m *Manta) setEnumFeature(name, v string) error {
	cam, err := m.cam()
	if err != nil {
		return err
	}
	return cam.SetEnum(name, v)
}

// ModelName returns the camera model.
func (m *Manta) ModelName() (string, error) {
	cam, err := m.cam()
	if err != nil {
		return "", err
	}
	return cam.String("DeviceModelName")
}

// PacketSize returns the GigE stream packet size in bytes.
func (m *Manta) PacketSize() (int, error) {
	return m.intFeature("GVSPPacketSize")
}

func (m *Manta) SetPacketSize(bytes int) error {
	return m.setIntFeature("GVSPPacketSize", bytes)
}

// Exposure returns the exposure time in seconds.
func (m *Manta) Exposure() (float64, error) {
	cam, err := m.cam()
	if err != nil {
		return 0, err
	}
	us, err := cam.Float("ExposureTimeAbs")
	if err != nil {
		return 0, err
	}
	return us * 1e-6, nil
}

// SetExposure sets the exposure time in seconds with µs resolution.
func (m *Manta) SetExposure(seconds float64) error {
	cam, err := m.cam()
	if err != nil {
		return err
	}
	return cam.SetFloat("ExposureTimeAbs", math.Round(seconds*1e6))
}

// Gain returns the gain in dB. The best image quality is at 0.
func (m *Manta) Gain() (float64, error) {
	cam, err := m.cam()
	if err != nil {
		return 0, err
	}
	return cam.Float("Gain")
}

func (m *Manta) SetGain(db float64) error {
	cam, err := m.cam()
	if err != nil {
		return err
	}
	return cam.SetFloat("Gain", db)
}

// ROI returns the region of interest.
func (m *Manta) ROI() (image.Rectangle, error) {
	var v [4]int
	for i, name := range []string{"OffsetX", "OffsetY", "Width", "Height"} {
		var err error
		if v[i], err = m.intFeature(name); err != nil {
			return image.Rectangle{}, err
		}
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// SetROI sets the region of interest. Width and height are set before the
// offsets so a smaller region can move into the freed area.
func (m *Manta) SetROI(r image.Rectangle) error {
	settings := []struct {
		name string
		v    int
	}{
		{"Width", r.Dx()},
		{"Height", r.Dy()},
		{"OffsetX", r.Min.X},
		{"OffsetY", r.Min.Y},
	}
	for _, s := range settings {
		if err := m.setIntFeature(s.name, s.v); err != nil {
			return fmt.Errorf("cannot set %s: %w", s.name, err)
		}
	}
	return nil
}

// SensorSize returns the sensor width and height in pixels.
func (m *Manta) SensorSize() (int, int, error) {
	w, err := m.intFeature("SensorWidth")
	if err != nil {
		return 0, 0, err
	}
	h, err := m.intFeature("SensorHeight")
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// AcquisitionMode returns SingleFrame, Continuous or another camera mode.
func (m *Manta) AcquisitionMode() (string, error) {
	return m.enumFeature("AcquisitionMode")
}

// SetAcquisitionMode arms the camera in SingleFrame or Continuous mode.
func (m *Manta) SetAcquisitionMode(mode string) error {
	if !acquisitionModes[mode] {
		return fmt.Errorf("%w: acquisition mode %q", device.ErrOutOfRange, mode)
	}
	cam, err := m.cam()
	if err != nil {
		return err
	}
	return cam.Arm(mode)
}

// TakeSingleImage acquires one frame.
func (m *Manta) TakeSingleImage() (*image.Gray, error) {
	cam, err := m.cam()
	if err != nil {
		return nil, err
	}

	if err := cam.Arm("SingleFrame"); err != nil {
		return nil, fmt.Errorf("cannot arm camera: %w", err)
	}
	frame, err := cam.AcquireFrame(frameTimeout)
	if derr := cam.Disarm(); derr != nil {
		m.logger.Warnf("cannot disarm camera: %v", derr)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot acquire frame: %w", err)
	}
	return frame.Gray()
}

// TriggerMode returns 0 when triggering is off and 1 when on.
func (m *Manta) TriggerMode() (int, error) {
	mode, err := m.enumFeature("TriggerMode")
	if err != nil {
		return 0, err
	}
	for i, name := range triggerModes {
		if name == mode {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: trigger mode %q", device.ErrUnknownCode, mode)
}

// SetTriggerMode switches triggering off (0) or on (1).
func (m *Manta) SetTriggerMode(mode int) error {
	if mode < 0 || mode >= len(triggerModes) {
		return fmt.Errorf("%w: trigger mode %d", device.ErrOutOfRange, mode)
	}
	return m.setEnumFeature("TriggerMode", triggerModes[mode])
}

// TriggerSource returns the trigger source, e.g. Freerun, Line1, Line2,
// FixedRate or Software.
func (m *Manta) TriggerSource() (string, error) {
	return m.enumFeature("TriggerSource")
}

func (m *Manta) SetTriggerSource(source string) error {
	return m.setEnumFeature("TriggerSource", source)
}

// PixelFormat returns the pixel format, e.g. Mono8 or Mono12.
func (m *Manta) PixelFormat() (string, error) {
	return m.enumFeature("PixelFormat")
}

func (m *Manta) SetPixelFormat(format string) error {
	return m.setEnumFeature("PixelFormat", format)
}
