// Package session owns a camera, a pose detector and a rep counter and runs
// frames through them one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/trainiq/internal/capture"
	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/metrics"
	"github.com/ayusman/trainiq/internal/pose"
)

// DefaultDetectTimeout bounds a single pose inference call.
const DefaultDetectTimeout = 2 * time.Second

// Options tune the frame pipeline.
type Options struct {
	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool
	// DetectTimeout bounds pose inference per frame.
	DetectTimeout time.Duration
	// MotionThreshold enables the motion gate when > 0: frames changing less
	// than this percentage reuse the previous frame's landmarks.
	MotionThreshold float64
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// Result is the output of one processed frame.
type Result struct {
	SessionID    string
	CameraIndex  int
	State        exercise.State
	Measurement  exercise.Measurement
	PoseDetected bool
	CachedPose   bool
	Transitioned bool
	// Image is the annotated frame.
	Image      image.Image
	CapturedAt time.Time
}

// Stats summarizes a session.
type Stats struct {
	SessionID   string
	CameraIndex int
	State       exercise.State
	Frames      int
	StartedAt   time.Time
}

// Session is one counting run. ProcessFrame, Reset and Stats are safe to call
// from several goroutines; frames are processed strictly one after another.
type Session struct {
	id          string
	cameraIndex int
	profile     exercise.Profile
	camera      capture.Camera
	detector    pose.Detector
	counter     *exercise.Counter
	motion      *capture.MotionDetector
	opts        Options
	logger      *slog.Logger
	startedAt   time.Time

	mu     sync.Mutex
	last   pose.Landmarks
	frames int
	closed bool
}

// New creates a session around an already opened camera. The session takes
// ownership of camera and detector and releases both on Close.
func New(id string, cameraIndex int, profile exercise.Profile, camera capture.Camera, detector pose.Detector, opts Options) *Session {
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:          id,
		cameraIndex: cameraIndex,
		profile:     profile,
		camera:      camera,
		detector:    detector,
		counter:     exercise.NewCounter(profile),
		opts:        opts,
		logger:      logger.With("session", id, "mode", string(profile.Mode)),
		startedAt:   time.Now(),
	}
	if opts.MotionThreshold > 0 {
		s.motion = capture.NewMotionDetector(opts.MotionThreshold)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Profile returns the exercise profile the session counts with.
func (s *Session) Profile() exercise.Profile { return s.profile }

// ProcessFrame captures one frame, detects the pose, advances the counter and
// returns the annotated result.
//
// A camera failure returns an error wrapping ErrCameraUnavailable. Failures
// after capture return a *FrameError and leave the counter untouched: the
// next state is applied only after the frame has been encoded. A frame
// without a person is not an error: PoseDetected is false and the counter is
// not updated.
func (s *Session) ProcessFrame(ctx context.Context) (res *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	start := time.Now()
	frame, err := s.camera.ReadFrame()
	if err != nil {
		s.opts.Metrics.CameraErrors.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	defer frame.Close()

	stage := StageMirror
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("frame pipeline panic", "stage", stage, "panic", r)
			res, err = nil, &FrameError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			var fe *FrameError
			if errors.As(err, &fe) {
				s.opts.Metrics.FrameErrors.Add(1)
			}
		}
	}()

	if s.opts.Mirror {
		gocv.Flip(*frame, frame, 1)
	}

	res = &Result{
		SessionID:   s.id,
		CameraIndex: s.cameraIndex,
		CapturedAt:  start,
	}

	stage = StageMotion
	var lm pose.Landmarks
	if s.motion != nil {
		// The baseline is the last frame that ran inference.
		motion := s.motion.Compare(frame)
		if !motion.Moved && s.last.Detected() {
			lm = s.last
			res.CachedPose = true
		}
	}

	stage = StageDetect
	if !res.CachedPose {
		dctx, cancel := context.WithTimeout(ctx, s.opts.DetectTimeout)
		lm, err = s.detector.Detect(dctx, frame)
		cancel()
		if err != nil {
			return nil, &FrameError{Stage: StageDetect, Err: err}
		}
		if s.motion != nil {
			s.motion.Mark(frame)
		}
	}

	stage = StageMeasure
	m, ok := s.profile.Measure(lm)
	if ok {
		res.PoseDetected = true
		res.Measurement = m
		res.State, res.Transitioned = s.counter.Next(m.Left, m.Right)
	} else {
		res.Measurement = zeroMeasurement(s.profile)
		res.State = s.counter.State()
	}

	stage = StageAnnotate
	annotate(frame, s.profile, lm, res.Measurement, res.State, res.PoseDetected, res.Transitioned)

	stage = StageEncode
	img, err := frame.ToImage()
	if err != nil {
		return nil, &FrameError{Stage: StageEncode, Err: err}
	}
	res.Image = img

	// The frame is complete; only now does it move the counter.
	if ok {
		s.counter.Apply(res.State)
		s.last = lm
	} else {
		s.last = nil
		s.opts.Metrics.FramesNoPose.Add(1)
	}

	s.frames++
	s.opts.Metrics.FramesProcessed.Add(1)
	if res.CachedPose {
		s.opts.Metrics.FramesCached.Add(1)
	}
	if res.Transitioned {
		s.opts.Metrics.HalfReps.Add(1)
		s.logger.Debug("half rep", "count", res.State.Count, "direction", res.State.Direction.String())
	}
	s.opts.Metrics.UpdateProcessLatency(time.Since(start))

	return res, nil
}

// Reset zeroes the counter. The camera and detector stay open. It waits for
// an in-flight frame so that frame cannot restore the old count.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter.Reset()
	s.logger.Info("counter reset")
}

// State returns the current counter snapshot.
func (s *Session) State() exercise.State {
	return s.counter.State()
}

// Stats returns a summary of the session so far.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()

	return Stats{
		SessionID:   s.id,
		CameraIndex: s.cameraIndex,
		State:       s.counter.State(),
		Frames:      frames,
		StartedAt:   s.startedAt,
	}
}

// Close releases the camera, the detector and the motion gate. It waits for
// an in-flight frame to finish. Calling Close twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.last = nil

	if s.motion != nil {
		s.motion.Close()
	}

	var errs []error
	if err := s.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if err := s.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	return errors.Join(errs...)
}

func zeroMeasurement(p exercise.Profile) exercise.Measurement {
	m := exercise.Measurement{Angles: make(map[string]float64, len(p.Left)+len(p.Right))}
	for _, joints := range [][]exercise.Joint{p.Left, p.Right} {
		for _, j := range joints {
			m.Angles[j.Name] = 0
		}
	}
	return m
}
