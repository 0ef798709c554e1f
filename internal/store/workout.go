package store

import (
	"database/sql"
	"errors"
	"time"
)

// Workout is a finished counting session.
type Workout struct {
	ID          string
	Mode        string
	HalfReps    int
	Frames      int
	CameraIndex int
	StartedAt   time.Time
	EndedAt     time.Time
}

// Count returns the rep count, a multiple of 0.5.
func (w *Workout) Count() float64 {
	return float64(w.HalfReps) / 2
}

// Duration returns how long the session ran.
func (w *Workout) Duration() time.Duration {
	return w.EndedAt.Sub(w.StartedAt)
}

// WorkoutRepository provides access to stored workouts.
type WorkoutRepository struct {
	db *sql.DB
}

// Workouts returns the workout repository for this store.
func (s *Store) Workouts() *WorkoutRepository {
	return &WorkoutRepository{db: s.db}
}

const workoutColumns = `id, mode, half_reps, frames, camera_index, started_at, ended_at`

// Create inserts a workout.
func (r *WorkoutRepository) Create(w *Workout) error {
	_, err := r.db.Exec(
		`INSERT INTO workouts (`+workoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Mode, w.HalfReps, w.Frames, w.CameraIndex, w.StartedAt.UTC(), w.EndedAt.UTC(),
	)
	return err
}

// GetByID retrieves a workout by its ID.
func (r *WorkoutRepository) GetByID(id string) (*Workout, error) {
	w := &Workout{}
	err := r.db.QueryRow(
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id,
	).Scan(&w.ID, &w.Mode, &w.HalfReps, &w.Frames, &w.CameraIndex, &w.StartedAt, &w.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// List returns workouts newest first. mode filters when non-empty; limit <= 0 means no limit.
func (r *WorkoutRepository) List(mode string, limit int) ([]*Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts`
	var args []any
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, mode)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		w := &Workout{}
		if err := rows.Scan(&w.ID, &w.Mode, &w.HalfReps, &w.Frames, &w.CameraIndex, &w.StartedAt, &w.EndedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}

// TotalHalfReps sums half-reps across all workouts of mode, or all workouts
// when mode is empty.
func (r *WorkoutRepository) TotalHalfReps(mode string) (int, error) {
	query := `SELECT COALESCE(SUM(half_reps), 0) FROM workouts`
	var args []any
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, mode)
	}

	var total int
	err := r.db.QueryRow(query, args...).Scan(&total)
	return total, err
}

// Delete removes a workout by its ID.
func (r *WorkoutRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
