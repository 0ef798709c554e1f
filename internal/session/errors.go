package session

import (
	"errors"
	"fmt"
)

var (
	// ErrCameraUnavailable means the camera could not be opened or read.
	// It ends the usefulness of the session and is always surfaced.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrNotInitialized is returned by Manager operations before Initialize.
	ErrNotInitialized = errors.New("system not initialized")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session closed")
)

// Stage names the pipeline step a FrameError came from.
type Stage string

const (
	StageMirror   Stage = "mirror"
	StageMotion   Stage = "motion"
	StageDetect   Stage = "detect"
	StageMeasure  Stage = "measure"
	StageAnnotate Stage = "annotate"
	StageEncode   Stage = "encode"
)

// FrameError is a per-frame failure after a frame was captured. The counter
// is left exactly as it was before the frame.
type FrameError struct {
	Stage Stage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %s: %v", e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
