package store

import (
	"database/sql"
	"errors"
	"time"
)

// ProfileOverride replaces the calibration and thresholds of a built-in exercise.
type ProfileOverride struct {
	Mode        string
	OpenAngle   float64
	ClosedAngle float64
	ClosedAt    int
	OpenAt      int
	UpdatedAt   time.Time
}

// ProfileRepository provides access to profile overrides.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile override repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Get returns the override for mode.
func (r *ProfileRepository) Get(mode string) (*ProfileOverride, error) {
	p := &ProfileOverride{}
	err := r.db.QueryRow(
		`SELECT mode, open_angle, closed_angle, closed_at, open_at, updated_at
		 FROM profiles WHERE mode = ?`,
		mode,
	).Scan(&p.Mode, &p.OpenAngle, &p.ClosedAngle, &p.ClosedAt, &p.OpenAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns every override ordered by mode.
func (r *ProfileRepository) List() ([]*ProfileOverride, error) {
	rows, err := r.db.Query(
		`SELECT mode, open_angle, closed_angle, closed_at, open_at, updated_at
		 FROM profiles ORDER BY mode`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ProfileOverride
	for rows.Next() {
		p := &ProfileOverride{}
		if err := rows.Scan(&p.Mode, &p.OpenAngle, &p.ClosedAngle, &p.ClosedAt, &p.OpenAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert stores p, replacing any existing override for the same mode.
func (r *ProfileRepository) Upsert(p *ProfileOverride) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(
		`INSERT INTO profiles (mode, open_angle, closed_angle, closed_at, open_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(mode) DO UPDATE SET
			open_angle = excluded.open_angle,
			closed_angle = excluded.closed_angle,
			closed_at = excluded.closed_at,
			open_at = excluded.open_at,
			updated_at = excluded.updated_at`,
		p.Mode, p.OpenAngle, p.ClosedAngle, p.ClosedAt, p.OpenAt, p.UpdatedAt,
	)
	return err
}

// Delete removes the override for mode.
func (r *ProfileRepository) Delete(mode string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE mode = ?`, mode)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
