package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per alarm run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			sequence TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT 'running' CHECK(outcome IN ('running', 'unlocked', 'aborted', 'failed')),
			resets INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			unlocked_at DATETIME,
			finished_at DATETIME
		)`,

		// Transitions table - every state change of a session
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			at DATETIME NOT NULL
		)`,

		// Snapshots table - JPEG thumbnail of the frame that unlocked a session
		`CREATE TABLE IF NOT EXISTS snapshots (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			taken_at DATETIME NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			image BLOB NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transitions_session_id ON transitions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
