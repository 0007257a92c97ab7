// Package store provides SQLite-backed snapshot history for coverage reports.
// The database lives in .dbtcov/history.db and records one row per computed
// report, so regressions can be tracked without digging through git.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshots is returned when no snapshot matches a query.
var ErrNoSnapshots = errors.New("no snapshots recorded")

// Store manages the .dbtcov/history.db SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Snapshot is one recorded coverage report.
type Snapshot struct {
	ID        int64
	CovType   string
	GitRef    string
	Covered   int
	Total     int
	Coverage  float64
	Document  []byte // the persisted JSON report
	CreatedAt time.Time
}

// Open opens or creates the history database inside the given .dbtcov
// directory, creating the directory if needed.
func Open(covDir string) (*Store, error) {
	if err := os.MkdirAll(covDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", filepath.Base(covDir), err)
	}

	dbPath := filepath.Join(covDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// SaveSnapshot records a snapshot and returns its id.
func (s *Store) SaveSnapshot(snap *Snapshot) (int64, error) {
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT INTO snapshots (cov_type, git_ref, covered, total, coverage, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.CovType, snap.GitRef, snap.Covered, snap.Total, snap.Coverage,
		string(snap.Document), createdAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}
	return id, nil
}

// GetSnapshot retrieves one snapshot by id.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, cov_type, git_ref, covered, total, coverage, document, created_at
		FROM snapshots WHERE id = ?
	`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNoSnapshots, id)
	}
	return snap, err
}

// LatestSnapshot retrieves the most recent snapshot for a coverage type.
func (s *Store) LatestSnapshot(covType string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, cov_type, git_ref, covered, total, coverage, document, created_at
		FROM snapshots WHERE cov_type = ?
		ORDER BY id DESC LIMIT 1
	`, covType)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNoSnapshots, covType)
	}
	return snap, err
}

// ListSnapshots returns snapshots newest first, optionally filtered by
// coverage type. limit <= 0 means no limit.
func (s *Store) ListSnapshots(covType string, limit int) ([]Snapshot, error) {
	query := `
		SELECT id, cov_type, git_ref, covered, total, coverage, document, created_at
		FROM snapshots`
	var args []any
	if covType != "" {
		query += " WHERE cov_type = ?"
		args = append(args, covType)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var document, createdAt string
	err := row.Scan(&snap.ID, &snap.CovType, &snap.GitRef, &snap.Covered,
		&snap.Total, &snap.Coverage, &document, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.Document = []byte(document)
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	snap.CreatedAt = ts
	return &snap, nil
}
