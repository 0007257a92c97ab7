package store

// schemaSQL defines the SQLite schema for the history database.
const schemaSQL = `
-- one row per computed coverage report
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cov_type TEXT NOT NULL,           -- doc, test
    git_ref TEXT,                     -- HEAD at compute time, may be empty
    covered INTEGER NOT NULL,
    total INTEGER NOT NULL,
    coverage REAL NOT NULL,
    document TEXT NOT NULL,           -- persisted JSON report
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_type ON snapshots(cov_type, id DESC);
`

// initSchema creates the database tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}
