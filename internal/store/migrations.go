package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Completed sessions
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			half_reps INTEGER NOT NULL DEFAULT 0 CHECK(half_reps >= 0),
			frames INTEGER NOT NULL DEFAULT 0,
			camera_index INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,

		// Per-mode calibration and threshold overrides
		`CREATE TABLE IF NOT EXISTS profiles (
			mode TEXT PRIMARY KEY,
			open_angle REAL NOT NULL,
			closed_angle REAL NOT NULL,
			closed_at INTEGER NOT NULL CHECK(closed_at BETWEEN 0 AND 100),
			open_at INTEGER NOT NULL CHECK(open_at BETWEEN 0 AND 100),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_workouts_started_at ON workouts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_mode ON workouts(mode)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
