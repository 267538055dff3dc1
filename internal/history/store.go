// Package history provides SQLite-backed persistence for completed analysis
// scans and detected security regressions.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ScanRecord is one persisted analysis run.
type ScanRecord struct {
	ID               int64
	ScanType         string // "pr" or "snippet"
	Target           string
	Owner            string
	Repo             string
	PRNumber         int
	SecurityScore    int
	RiskLevel        string
	FindingsCount    int
	DefiniteCount    int
	PotentialCount   int
	RegressionsCount int
	CreatedAt        time.Time
}

// RegressionRecord is one persisted security regression.
type RegressionRecord struct {
	ID            int64
	Owner         string
	Repo          string
	PRNumber      int
	OriginalFixPR int
	FileAffected  string
	Severity      string
	CreatedAt     time.Time
}

// Store wraps a SQLite database for scan history persistence.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures all
// required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_type         TEXT NOT NULL,
			target            TEXT NOT NULL,
			owner             TEXT NOT NULL DEFAULT '',
			repo              TEXT NOT NULL DEFAULT '',
			pr_number         INTEGER NOT NULL DEFAULT 0,
			security_score    INTEGER NOT NULL,
			risk_level        TEXT NOT NULL DEFAULT '',
			findings_count    INTEGER NOT NULL DEFAULT 0,
			definite_count    INTEGER NOT NULL DEFAULT 0,
			potential_count   INTEGER NOT NULL DEFAULT 0,
			regressions_count INTEGER NOT NULL DEFAULT 0,
			created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS regressions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			owner           TEXT NOT NULL,
			repo            TEXT NOT NULL,
			pr_number       INTEGER NOT NULL,
			original_fix_pr INTEGER NOT NULL,
			file_affected   TEXT NOT NULL,
			severity        TEXT NOT NULL,
			created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveScan persists one scan record and returns its row ID.
func (s *Store) SaveScan(rec ScanRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO scans
			(scan_type, target, owner, repo, pr_number, security_score, risk_level,
			 findings_count, definite_count, potential_count, regressions_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScanType, rec.Target, rec.Owner, rec.Repo, rec.PRNumber,
		rec.SecurityScore, rec.RiskLevel, rec.FindingsCount,
		rec.DefiniteCount, rec.PotentialCount, rec.RegressionsCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	return res.LastInsertId()
}

// SaveRegression persists one regression record and returns its row ID.
func (s *Store) SaveRegression(rec RegressionRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO regressions
			(owner, repo, pr_number, original_fix_pr, file_affected, severity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Owner, rec.Repo, rec.PRNumber, rec.OriginalFixPR, rec.FileAffected, rec.Severity,
	)
	if err != nil {
		return 0, fmt.Errorf("insert regression: %w", err)
	}
	return res.LastInsertId()
}

// RecentScans returns up to limit scans, newest first.
func (s *Store) RecentScans(limit int) ([]ScanRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, scan_type, target, owner, repo, pr_number, security_score,
			risk_level, findings_count, definite_count, potential_count,
			regressions_count, created_at
		 FROM scans ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		if err := rows.Scan(
			&rec.ID, &rec.ScanType, &rec.Target, &rec.Owner, &rec.Repo,
			&rec.PRNumber, &rec.SecurityScore, &rec.RiskLevel,
			&rec.FindingsCount, &rec.DefiniteCount, &rec.PotentialCount,
			&rec.RegressionsCount, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RegressionsForRepo returns up to limit regressions for one repository,
// newest first.
func (s *Store) RegressionsForRepo(owner, repo string, limit int) ([]RegressionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, owner, repo, pr_number, original_fix_pr, file_affected,
			severity, created_at
		 FROM regressions WHERE owner = ? AND repo = ?
		 ORDER BY id DESC LIMIT ?`, owner, repo, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query regressions: %w", err)
	}
	defer rows.Close()

	var records []RegressionRecord
	for rows.Next() {
		var rec RegressionRecord
		if err := rows.Scan(
			&rec.ID, &rec.Owner, &rec.Repo, &rec.PRNumber,
			&rec.OriginalFixPR, &rec.FileAffected, &rec.Severity, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
