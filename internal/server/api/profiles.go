package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/store"
)

// ProfileSource resolves the effective profile for a mode, overrides included.
type ProfileSource interface {
	Profile(mode exercise.Mode) (exercise.Profile, error)
}

// ProfileHandler serves calibration and threshold overrides.
type ProfileHandler struct {
	store    *store.Store
	profiles ProfileSource
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(s *store.Store, profiles ProfileSource) *ProfileHandler {
	return &ProfileHandler{store: s, profiles: profiles}
}

// Routes returns the router to mount at /api/profiles.
func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{mode}", h.get)
	r.Put("/{mode}", h.update)
	r.Delete("/{mode}", h.delete)
	return r
}

type profileRequest struct {
	OpenAngle   float64 `json:"open_angle"`
	ClosedAngle float64 `json:"closed_angle"`
	ClosedAt    int     `json:"closed_at"`
	OpenAt      int     `json:"open_at"`
}

type profileResponse struct {
	Mode        string   `json:"mode"`
	OpenAngle   float64  `json:"open_angle"`
	ClosedAngle float64  `json:"closed_angle"`
	ClosedAt    int      `json:"closed_at"`
	OpenAt      int      `json:"open_at"`
	Joints      []string `json:"joints"`
	Overridden  bool     `json:"overridden"`
}

func (h *ProfileHandler) response(p exercise.Profile) (profileResponse, error) {
	resp := profileResponse{
		Mode:        string(p.Mode),
		OpenAngle:   p.Calibration.OpenAngle,
		ClosedAngle: p.Calibration.ClosedAngle,
		ClosedAt:    p.ClosedAt,
		OpenAt:      p.OpenAt,
	}
	for _, joints := range [][]exercise.Joint{p.Left, p.Right} {
		for _, j := range joints {
			resp.Joints = append(resp.Joints, j.Name)
		}
	}

	_, err := h.store.Profiles().Get(string(p.Mode))
	switch {
	case err == nil:
		resp.Overridden = true
	case !errors.Is(err, store.ErrNotFound):
		return profileResponse{}, err
	}
	return resp, nil
}

func parseMode(w http.ResponseWriter, r *http.Request) (exercise.Mode, bool) {
	mode, err := exercise.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return mode, true
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	resp := []profileResponse{}
	for _, mode := range exercise.Modes() {
		p, err := h.profiles.Profile(mode)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		pr, err := h.response(p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load profiles")
			return
		}
		resp = append(resp, pr)
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": resp})
}

// get handles GET /api/profiles/{mode}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}

	p, err := h.profiles.Profile(mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := h.response(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// update handles PUT /api/profiles/{mode}. The override is validated against
// the built-in joints before it is stored.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	p, err := exercise.Lookup(mode)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	p.Calibration = exercise.Calibration{OpenAngle: req.OpenAngle, ClosedAngle: req.ClosedAngle}
	p.ClosedAt = req.ClosedAt
	p.OpenAt = req.OpenAt
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.store.Profiles().Upsert(&store.ProfileOverride{
		Mode:        string(mode),
		OpenAngle:   req.OpenAngle,
		ClosedAngle: req.ClosedAngle,
		ClosedAt:    req.ClosedAt,
		OpenAt:      req.OpenAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	resp, err := h.response(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/profiles/{mode}, restoring the built-in values.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}

	if err := h.store.Profiles().Delete(string(mode)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile has no override")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
