// Package alliedvision drives Allied Vision GigE cameras such as the Manta
// through a feature based camera API.
package alliedvision

import (
	"encoding/binary"
	"fmt"
	"image"
	"time"
)

// System enumerates and opens cameras. It stands for the vendor transport
// layer, which must be started before cameras can be listed.
type System interface {
	Startup() error
	Shutdown() error
	CameraIDs() ([]string, error)
	Open(id string) (Camera, error)
}

// Camera exposes the named GenICam features of one opened camera.
type Camera interface {
	Int(name string) (int64, error)
	SetInt(name string, v int64) error
	Float(name string) (float64, error)
	SetFloat(name string, v float64) error
	Enum(name string) (string, error)
	SetEnum(name string, v string) error
	String(name string) (string, error)

	// Arm prepares an acquisition in the given acquisition mode.
	Arm(mode string) error
	Disarm() error
	AcquireFrame(timeout time.Duration) (Frame, error)

	Close() error
}

// Frame is a raw image buffer.
type Frame struct {
	Width       int
	Height      int
	PixelFormat string
	Data        []byte
}

// Gray converts Mono8 and Mono12 frames. Mono12 pixels are stored as little
// endian 16 bit words and scaled down to 8 bits.
func (f Frame) Gray() (*image.Gray, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height

	switch f.PixelFormat {
	case "Mono8":
		if len(f.Data) < n {
			return nil, fmt.Errorf("short frame: %d bytes for %dx%d", len(f.Data), f.Width, f.Height)
		}
		copy(img.Pix, f.Data[:n])
	case "Mono12":
		if len(f.Data) < 2*n {
			return nil, fmt.Errorf("short frame: %d bytes for %dx%d", len(f.Data), f.Width, f.Height)
		}
		for i := 0; i < n; i++ {
			img.Pix[i] = uint8(binary.LittleEndian.Uint16(f.Data[2*i:]) >> 4)
		}
	default:
		return nil, fmt.Errorf("unsupported pixel format %q", f.PixelFormat)
	}
	return img, nil
}
