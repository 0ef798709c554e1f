// Package app owns the active counting session and the frame loop that feeds
// the push channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/trainiq/internal/capture"
	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/metrics"
	"github.com/ayusman/trainiq/internal/pose"
	"github.com/ayusman/trainiq/internal/session"
	"github.com/ayusman/trainiq/internal/store"
)

// DefaultStreamInterval is the pause between frames pushed to subscribers.
const DefaultStreamInterval = 33 * time.Millisecond

// Config holds configuration options for the application.
type Config struct {
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// NewCamera returns an unopened camera for a device index.
	NewCamera func(index int) capture.Camera
	// NewDetector returns a pose detector for a new session.
	NewDetector func() (pose.Detector, error)
	// Provider names the pose backend for health reporting.
	Provider string

	Session        session.Options
	StreamInterval time.Duration
}

// Status is reported by the health endpoint.
type Status struct {
	CameraInitialized bool
	Provider          string
	SessionID         string
	Mode              exercise.Mode
}

// UpdateFunc is notified whenever the visible count or session state changes.
type UpdateFunc func(state exercise.State, active bool)

// App manages at most one active session. Every transport goes through it so
// there is a single counter per camera.
type App struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	active *session.Session
	stopCh chan struct{}
	done   chan struct{}

	subsMu sync.Mutex
	subs   map[int]chan Update
	nextID int

	callbackMu sync.Mutex
	onUpdate   []UpdateFunc
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}
	if config.NewCamera == nil {
		config.NewCamera = func(index int) capture.Camera {
			return capture.NewCamera(index, capture.DefaultSettings())
		}
	}
	if config.NewDetector == nil {
		config.NewDetector = func() (pose.Detector, error) {
			return pose.NewMockDetector(), nil
		}
	}
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}
	config.Session.Metrics = config.Metrics
	if config.Session.Logger == nil {
		config.Session.Logger = config.Logger
	}

	return &App{
		config:  config,
		logger:  config.Logger,
		metrics: config.Metrics,
		subs:    make(map[int]chan Update),
	}
}

// OnUpdate registers a callback fired after count or session changes.
// Callbacks run outside the app lock.
func (a *App) OnUpdate(fn UpdateFunc) {
	a.callbackMu.Lock()
	defer a.callbackMu.Unlock()
	a.onUpdate = append(a.onUpdate, fn)
}

func (a *App) notify(state exercise.State, active bool) {
	a.callbackMu.Lock()
	callbacks := append([]UpdateFunc(nil), a.onUpdate...)
	a.callbackMu.Unlock()

	for _, fn := range callbacks {
		fn(state, active)
	}
}

// Profile returns the built-in profile for mode with any stored override applied.
func (a *App) Profile(mode exercise.Mode) (exercise.Profile, error) {
	p, err := exercise.Lookup(mode)
	if err != nil {
		return exercise.Profile{}, err
	}
	if a.config.Store == nil {
		return p, nil
	}

	o, err := a.config.Store.Profiles().Get(string(mode))
	if errors.Is(err, store.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return exercise.Profile{}, fmt.Errorf("load profile override: %w", err)
	}

	p.Calibration = exercise.Calibration{OpenAngle: o.OpenAngle, ClosedAngle: o.ClosedAngle}
	p.ClosedAt = o.ClosedAt
	p.OpenAt = o.OpenAt
	if err := p.Validate(); err != nil {
		return exercise.Profile{}, err
	}
	return p, nil
}

// Initialize ends any active session, opens the camera and starts counting
// mode from zero.
func (a *App) Initialize(cameraIndex int, mode exercise.Mode) (*session.Session, error) {
	profile, err := a.Profile(mode)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()

	if a.active != nil {
		if _, err := a.endLocked(); err != nil {
			a.logger.Warn("ending previous session", "err", err)
		}
	}

	cam := a.config.NewCamera(cameraIndex)
	if err := cam.Open(); err != nil {
		a.mu.Unlock()
		a.metrics.CameraErrors.Add(1)
		return nil, fmt.Errorf("%w: %v", session.ErrCameraUnavailable, err)
	}

	det, err := a.config.NewDetector()
	if err != nil {
		cam.Close()
		a.mu.Unlock()
		return nil, fmt.Errorf("create pose detector: %w", err)
	}

	s := session.New(uuid.New().String(), cameraIndex, profile, cam, det, a.config.Session)
	a.active = s
	a.mu.Unlock()

	a.metrics.SessionsStarted.Add(1)
	a.metrics.SetSessionActive(true)
	a.logger.Info("session started", "session", s.ID(), "camera", cameraIndex, "mode", string(mode))
	a.notify(s.State(), true)

	return s, nil
}

// Active returns the current session or ErrNotInitialized.
func (a *App) Active() (*session.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.active == nil {
		return nil, session.ErrNotInitialized
	}
	return a.active, nil
}

// ProcessFrame runs one frame through the active session.
func (a *App) ProcessFrame(ctx context.Context) (*session.Result, error) {
	s, err := a.Active()
	if err != nil {
		return nil, err
	}

	res, err := s.ProcessFrame(ctx)
	if errors.Is(err, session.ErrSessionClosed) {
		return nil, session.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	if res.Transitioned {
		a.notify(res.State, true)
	}
	return res, nil
}

// Reset zeroes the active session's counter.
func (a *App) Reset() (exercise.State, error) {
	s, err := a.Active()
	if err != nil {
		return exercise.State{}, err
	}
	s.Reset()
	state := s.State()
	a.notify(state, true)
	return state, nil
}

// Stats returns a summary of the active session.
func (a *App) Stats() (session.Stats, error) {
	s, err := a.Active()
	if err != nil {
		return session.Stats{}, err
	}
	return s.Stats(), nil
}

// EndSession closes the active session, releasing the camera, and stores
// the workout when a store is configured.
func (a *App) EndSession() (*store.Workout, error) {
	a.mu.Lock()
	if a.active == nil {
		a.mu.Unlock()
		return nil, session.ErrNotInitialized
	}
	w, err := a.endLocked()
	a.mu.Unlock()

	a.notify(exercise.State{}, false)
	return w, err
}

func (a *App) endLocked() (*store.Workout, error) {
	s := a.active
	a.active = nil
	a.metrics.SetSessionActive(false)

	stats := s.Stats()
	closeErr := s.Close()

	w := &store.Workout{
		ID:          stats.SessionID,
		Mode:        string(stats.State.Mode),
		HalfReps:    stats.State.HalfReps,
		Frames:      stats.Frames,
		CameraIndex: stats.CameraIndex,
		StartedAt:   stats.StartedAt,
		EndedAt:     time.Now(),
	}

	a.logger.Info("session ended", "session", w.ID, "count", w.Count(), "frames", w.Frames)

	if a.config.Store != nil {
		if err := a.config.Store.Workouts().Create(w); err != nil {
			return w, fmt.Errorf("save workout: %w", err)
		}
	}
	return w, closeErr
}

// Status reports whether a camera is in use and which pose provider is configured.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{Provider: a.config.Provider}
	if a.active != nil {
		st.CameraInitialized = true
		st.SessionID = a.active.ID()
		st.Mode = a.active.Profile().Mode
	}
	return st
}

// Metrics returns the metrics the app records into.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Store returns the configured store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}
