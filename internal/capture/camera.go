// Package capture reads webcam frames through GoCV (OpenCV) and detects
// motion between consecutive frames.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device produced no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Settings is the requested capture format. Devices may not honour all of it.
type Settings struct {
	Width  int
	Height int
	FPS    int
}

// DefaultSettings returns 640x480 at 30 frames per second.
func DefaultSettings() Settings {
	return Settings{Width: 640, Height: 480, FPS: 30}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the Mat and must close it.
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

type deviceCamera struct {
	deviceID int
	settings Settings
	capture  *gocv.VideoCapture
	mu       sync.Mutex
}

// NewCamera returns a Camera for the given device index.
// Zero fields in s fall back to DefaultSettings.
func NewCamera(deviceID int, s Settings) Camera {
	def := DefaultSettings()
	if s.Width <= 0 {
		s.Width = def.Width
	}
	if s.Height <= 0 {
		s.Height = def.Height
	}
	if s.FPS <= 0 {
		s.FPS = def.FPS
	}
	return &deviceCamera{deviceID: deviceID, settings: s}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device not available", c.deviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.settings.FPS))

	c.capture = vc
	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read camera %d: device returned no frame", c.deviceID)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
