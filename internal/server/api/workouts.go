package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/store"
)

const defaultWorkoutLimit = 50

// WorkoutHandler serves the history of finished sessions.
type WorkoutHandler struct {
	store *store.Store
}

// NewWorkoutHandler creates a WorkoutHandler.
func NewWorkoutHandler(s *store.Store) *WorkoutHandler {
	return &WorkoutHandler{store: s}
}

// Routes returns the router to mount at /api/workouts.
func (h *WorkoutHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	return r
}

// WorkoutResponse is the JSON form of a stored workout.
type WorkoutResponse struct {
	ID              string  `json:"id"`
	Mode            string  `json:"mode"`
	Count           float64 `json:"count"`
	Reps            int     `json:"reps"`
	Frames          int     `json:"frames"`
	CameraIndex     int     `json:"camera_index"`
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ToWorkoutResponse converts a store.Workout for the API.
func ToWorkoutResponse(w *store.Workout) WorkoutResponse {
	return WorkoutResponse{
		ID:              w.ID,
		Mode:            w.Mode,
		Count:           w.Count(),
		Reps:            w.HalfReps / 2,
		Frames:          w.Frames,
		CameraIndex:     w.CameraIndex,
		StartedAt:       w.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:         w.EndedAt.UTC().Format(time.RFC3339),
		DurationSeconds: w.Duration().Seconds(),
	}
}

// list handles GET /api/workouts?mode=&limit=.
func (h *WorkoutHandler) list(w http.ResponseWriter, r *http.Request) {
	var mode string
	if m := r.URL.Query().Get("mode"); m != "" {
		parsed, err := exercise.ParseMode(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = string(parsed)
	}

	limit := defaultWorkoutLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	workouts, err := h.store.Workouts().List(mode, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workouts")
		return
	}
	halfReps, err := h.store.Workouts().TotalHalfReps(mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to total workouts")
		return
	}

	resp := make([]WorkoutResponse, len(workouts))
	for i, wo := range workouts {
		resp[i] = ToWorkoutResponse(wo)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workouts":    resp,
		"total_count": float64(halfReps) / 2,
	})
}

// get handles GET /api/workouts/{id}.
func (h *WorkoutHandler) get(w http.ResponseWriter, r *http.Request) {
	wo, err := h.store.Workouts().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get workout")
		return
	}
	writeJSON(w, http.StatusOK, ToWorkoutResponse(wo))
}

// delete handles DELETE /api/workouts/{id}.
func (h *WorkoutHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Workouts().Delete(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete workout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
