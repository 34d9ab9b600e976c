// ABOUTME: SQLite job history for the mixfix server
// ABOUTME: Persists every upload outcome so counters and recent jobs survive restarts
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/mixfix/pkg/loudness"
)

// Job is one processed upload
type Job struct {
	ID        int64                `json:"id"`
	RequestID string               `json:"request_id,omitempty"`
	Name      string               `json:"name"`
	Transport string               `json:"transport"`
	Loudness  loudness.Measurement `json:"lufs"`
	Severity  string               `json:"severity,omitempty"`
	GainDB    float64              `json:"gain_db"`
	Err       string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Failed reports whether the job ended in an error
func (j Job) Failed() bool {
	return j.Err != ""
}

// Store is a SQLite backed job log
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	createJobsTable := `
    CREATE TABLE IF NOT EXISTS jobs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL DEFAULT '',
        name TEXT NOT NULL,
        transport TEXT NOT NULL,
        lufs REAL,
        severity TEXT NOT NULL DEFAULT '',
        gain_db REAL NOT NULL DEFAULT 0,
        error TEXT NOT NULL DEFAULT '',
        created_at INTEGER NOT NULL
    );
    `

	if _, err := db.Exec(createJobsTable); err != nil {
		return fmt.Errorf("error creating jobs table: %w", err)
	}
	return nil
}

// Add stores job and returns it with its ID and timestamp filled in
func (s *Store) Add(job Job) (Job, error) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	var lufs sql.NullFloat64
	if job.Loudness.Defined() {
		lufs = sql.NullFloat64{Float64: job.Loudness.LUFS(), Valid: true}
	}

	result, err := s.db.Exec(
		"INSERT INTO jobs (request_id, name, transport, lufs, severity, gain_db, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		job.RequestID, job.Name, job.Transport, lufs, job.Severity, job.GainDB, job.Err, job.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Job{}, fmt.Errorf("error adding job: %w", err)
	}

	job.ID, err = result.LastInsertId()
	if err != nil {
		return Job{}, fmt.Errorf("error getting job ID: %w", err)
	}
	return job, nil
}

// Recent returns up to limit jobs, newest first
func (s *Store) Recent(limit int) ([]Job, error) {
	rows, err := s.db.Query(`
		SELECT id, request_id, name, transport, lufs, severity, gain_db, error, created_at
		FROM jobs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job     Job
			lufs    sql.NullFloat64
			created int64
		)
		if err := rows.Scan(&job.ID, &job.RequestID, &job.Name, &job.Transport, &lufs, &job.Severity, &job.GainDB, &job.Err, &created); err != nil {
			return nil, fmt.Errorf("error scanning job: %w", err)
		}

		job.Loudness = loudness.Undefined
		if lufs.Valid {
			job.Loudness = loudness.Measurement(lufs.Float64)
		}
		job.CreatedAt = time.UnixMilli(created)
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading jobs: %w", err)
	}
	return jobs, nil
}

// Counts returns how many jobs succeeded and failed
func (s *Store) Counts() (processed, failed int, err error) {
	row := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(error != ''), 0) FROM jobs")

	var total int
	if err := row.Scan(&total, &failed); err != nil {
		return 0, 0, fmt.Errorf("error counting jobs: %w", err)
	}
	return total - failed, failed, nil
}
