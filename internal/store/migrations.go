package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per signing session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			closed_at DATETIME
		)`,

		// Transcripts table - completed words with the sentence they produced
		`CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			word TEXT NOT NULL,
			corrected TEXT NOT NULL DEFAULT '',
			sentence TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Vocabulary table - user words added to the autocorrect vocabulary
		`CREATE TABLE IF NOT EXISTS vocabulary (
			word TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		)`,

		// Corrections table - user misspelling to replacement mappings
		`CREATE TABLE IF NOT EXISTS corrections (
			misspelling TEXT PRIMARY KEY,
			replacement TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Letter samples table - raw recorded poses for template training
		`CREATE TABLE IF NOT EXISTS letter_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			letter TEXT NOT NULL CHECK(length(letter) = 1),
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Letter templates table - averaged poses used by the template matcher
		`CREATE TABLE IF NOT EXISTS letter_templates (
			letter TEXT PRIMARY KEY CHECK(length(letter) = 1),
			landmarks TEXT NOT NULL,
			tolerance REAL NOT NULL DEFAULT 2.0,
			samples INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_transcripts_session_id ON transcripts(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_letter_samples_letter ON letter_samples(letter)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
