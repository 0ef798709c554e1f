package pose

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for pose estimation providers.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the detected person.
	// Returns nil landmarks and a nil error if nobody is in the frame.
	Detect(ctx context.Context, frame *gocv.Mat) (Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// MinVisibility drops landmarks whose visibility is below this value.
	MinVisibility float64

	// ScriptPath overrides the location of the pose service script.
	ScriptPath string

	// PythonPath overrides the interpreter used to run the pose service.
	PythonPath string

	// IdleTimeout shuts the provider process down after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		MinVisibility:   0.3,
		IdleTimeout:     30 * time.Second,
	}
}
