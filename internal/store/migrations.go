package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Calibrations table - one row per finished calibration
		`CREATE TABLE IF NOT EXISTS calibrations (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL CHECK(mode IN ('hand', 'gaze')),
			source TEXT NOT NULL CHECK(source IN ('samples', 'targets')),
			valid INTEGER NOT NULL,
			scale_x REAL NOT NULL,
			scale_y REAL NOT NULL,
			offset_x REAL NOT NULL,
			offset_y REAL NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			points INTEGER NOT NULL,
			warnings TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Calibration points table - target and mean sample of each point
		`CREATE TABLE IF NOT EXISTS calibration_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			calibration_id TEXT NOT NULL REFERENCES calibrations(id) ON DELETE CASCADE,
			point_index INTEGER NOT NULL,
			target_x INTEGER NOT NULL,
			target_y INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			mean_x REAL NOT NULL,
			mean_y REAL NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_calibrations_mode_created ON calibrations(mode, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_calibration_points_calibration_id ON calibration_points(calibration_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
