package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/server/api"
	"github.com/ayusman/trainiq/internal/session"
	"github.com/ayusman/trainiq/internal/transport"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and writes the error payload.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), transport.NewErrorMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotInitialized),
		errors.Is(err, exercise.ErrUnknownMode),
		errors.Is(err, exercise.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.app.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"uptime":             time.Since(s.start).String(),
		"camera_initialized": st.CameraInitialized,
		"pose_provider":      st.Provider,
	})
}

// handleInitialize handles /api/initialize?camera=N&mode=pushup|squat.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	camera := s.config.DefaultCamera
	if v := r.FormValue("camera"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, transport.ErrorMessage{Error: "camera must be a non-negative integer"})
			return
		}
		camera = n
	}

	mode := s.config.DefaultMode
	if v := r.FormValue("mode"); v != "" {
		m, err := exercise.ParseMode(v)
		if err != nil {
			writeError(w, err)
			return
		}
		mode = m
	}

	sess, err := s.app.Initialize(camera, mode)
	if err != nil {
		// Camera open failures are reported as 500.
		if errors.Is(err, session.ErrCameraUnavailable) {
			writeJSON(w, http.StatusInternalServerError, transport.NewErrorMessage(err))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "initialized",
		"session_id": sess.ID(),
		"mode":       mode,
		"camera":     camera,
	})
}

// handleProcessFrame handles GET /api/process_frame.
func (s *Server) handleProcessFrame(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.ProcessFrame(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := transport.NewFrameMessage(res, s.config.Encoder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handleReset handles /api/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.Reset()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reset",
		"count":  state.Count,
	})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transport.NewStatsMessage(stats))
}

// handleStop handles POST /api/stop. It releases the camera and returns the
// workout that was recorded.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	wo, err := s.app.EndSession()
	if err != nil && wo == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		s.log.Error("ending session", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "stopped",
		"workout": api.ToWorkoutResponse(wo),
	})
}
