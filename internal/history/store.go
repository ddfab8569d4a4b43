// Package history provides persistent snapshot storage using SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/kubegov/manifestgate/internal/store"
)

// SnapshotSummary is a compact representation of a historical snapshot.
type SnapshotSummary struct {
	At           time.Time `json:"at"`
	ID           int64     `json:"id"`
	ResultsCount int       `json:"resultsCount"`
	DeniedCount  int       `json:"deniedCount"`
	CritCount    int       `json:"critCount"`
	WarnCount    int       `json:"warnCount"`
	ErrorCount   int       `json:"errorCount"`
}

// TrendPoint represents one historical evaluation of a resource.
type TrendPoint struct {
	At         time.Time `json:"at"`
	Allowed    bool      `json:"allowed"`
	Violations int       `json:"violations"`
}

// Store persists snapshots and decisions to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a snapshot, its results, and their violations.
func (s *Store) Save(snap store.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // commit below; rollback is no-op after commit

	var denied, critCount, warnCount int
	for i := range snap.Results {
		if !snap.Results[i].Decision.Allowed {
			denied++
		}
		for _, v := range snap.Results[i].Decision.Violations {
			switch v.Severity {
			case store.SeverityCritical:
				critCount++
			case store.SeverityWarn:
				warnCount++
			}
		}
	}

	res, err := tx.Exec(
		"INSERT INTO snapshots (at, results_count, denied_count, crit_count, warn_count, error_count) VALUES (?, ?, ?, ?, ?, ?)",
		snap.At, len(snap.Results), denied, critCount, warnCount, len(snap.Errors),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	snapID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting snapshot id: %w", err)
	}

	resStmt, err := tx.Prepare(
		"INSERT INTO results (snapshot_id, kind, namespace, name, source, allowed) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer resStmt.Close() //nolint:errcheck // statement lifetime bounded by tx

	vioStmt, err := tx.Prepare(
		"INSERT INTO violations (result_id, code, severity, message, owner, fix) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing violation insert: %w", err)
	}
	defer vioStmt.Close() //nolint:errcheck // statement lifetime bounded by tx

	for i := range snap.Results {
		r := &snap.Results[i]
		ins, err := resStmt.Exec(snapID, r.Kind, r.Namespace, r.Name, r.Source, r.Decision.Allowed)
		if err != nil {
			return fmt.Errorf("inserting result: %w", err)
		}
		resultID, err := ins.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting result id: %w", err)
		}
		for _, v := range r.Decision.Violations {
			if _, err := vioStmt.Exec(resultID, v.Code, v.Severity, v.Message, v.Owner, v.Fix); err != nil {
				return fmt.Errorf("inserting violation: %w", err)
			}
		}
	}

	return tx.Commit()
}

// List returns the most recent snapshot summaries, ordered newest first.
func (s *Store) List(limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		"SELECT id, at, results_count, denied_count, crit_count, warn_count, error_count FROM snapshots ORDER BY at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var summaries []SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		if err := rows.Scan(&sum.ID, &sum.At, &sum.ResultsCount, &sum.DeniedCount, &sum.CritCount, &sum.WarnCount, &sum.ErrorCount); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Trend returns historical decisions for a specific resource over time.
func (s *Store) Trend(kind, ns, name string, limit int) ([]TrendPoint, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT s.at, r.allowed, COUNT(v.id)
		FROM results r
		JOIN snapshots s ON s.id = r.snapshot_id
		LEFT JOIN violations v ON v.result_id = r.id
		WHERE r.kind = ? AND r.namespace = ? AND r.name = ?
		GROUP BY r.id
		ORDER BY s.at DESC
		LIMIT ?`,
		kind, ns, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.At, &p.Allowed, &p.Violations); err != nil {
			return nil, fmt.Errorf("scanning trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetLatest returns the most recent snapshot with its results, or nil if no snapshots exist.
func (s *Store) GetLatest() (*store.Snapshot, error) {
	var snapID int64
	var at time.Time
	err := s.db.QueryRow("SELECT id, at FROM snapshots ORDER BY at DESC LIMIT 1").Scan(&snapID, &at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	rows, err := s.db.Query(
		"SELECT id, kind, namespace, name, source, allowed FROM results WHERE snapshot_id = ? ORDER BY id",
		snapID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	snap := &store.Snapshot{At: at}
	var resultIDs []int64
	for rows.Next() {
		var id int64
		var r store.Result
		if err := rows.Scan(&id, &r.Kind, &r.Namespace, &r.Name, &r.Source, &r.Decision.Allowed); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		resultIDs = append(resultIDs, id)
		snap.Results = append(snap.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range resultIDs {
		violations, err := s.violationsFor(id)
		if err != nil {
			return nil, err
		}
		snap.Results[i].Decision.Violations = violations
	}
	return snap, nil
}

func (s *Store) violationsFor(resultID int64) ([]store.Violation, error) {
	rows, err := s.db.Query(
		"SELECT code, severity, message, owner, fix FROM violations WHERE result_id = ? ORDER BY id",
		resultID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var violations []store.Violation
	for rows.Next() {
		var v store.Violation
		if err := rows.Scan(&v.Code, &v.Severity, &v.Message, &v.Owner, &v.Fix); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
