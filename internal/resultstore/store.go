// Package resultstore provides SQLite-backed persistence of run
// results, so sweeps can be compared across time without rescanning
// the output directory.
package resultstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Motphys/phys-bench/internal/domain"
)

// Store provides SQLite-backed result persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a finished run's result and returns its row ID
func (s *Store) Record(result domain.Result) (string, error) {
	id := uuid.NewString()
	var dropTime sql.NullFloat64
	if result.DropTime != nil {
		dropTime = sql.NullFloat64{Float64: *result.DropTime, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO results (id, engine, object, task, mjx, dt, status, drop_time, video_path, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		result.Engine,
		string(result.Object),
		string(result.Task),
		result.MJX,
		result.Dt,
		string(result.Status),
		dropTime,
		result.VideoPath,
		result.Timestamp,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListOptions specifies filters for listing results
type ListOptions struct {
	Engine string
	Object domain.ObjectKind
	Status domain.Status
	Limit  int
}

// List returns stored results matching the given options, newest
// first.
func (s *Store) List(opts ListOptions) ([]domain.Result, error) {
	query := `SELECT engine, object, task, mjx, dt, status, drop_time, video_path, timestamp FROM results WHERE 1=1`
	var args []interface{}

	if opts.Engine != "" {
		query += " AND engine = ?"
		args = append(args, opts.Engine)
	}
	if opts.Object != "" {
		query += " AND object = ?"
		args = append(args, string(opts.Object))
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY timestamp DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Latest returns the most recent result for each engine/object/task/
// mjx/dt combination.
func (s *Store) Latest() ([]domain.Result, error) {
	rows, err := s.db.Query(`
		SELECT engine, object, task, mjx, dt, status, drop_time, video_path, MAX(timestamp)
		FROM results
		GROUP BY engine, object, task, mjx, dt
		ORDER BY object, dt, engine
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// BeginSweep records the start of a batch sweep and returns its ID
func (s *Store) BeginSweep(name string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO sweeps (id, name, started_at) VALUES (?, ?, ?)`,
		id, name, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishSweep records a sweep's completion and tallies
func (s *Store) FinishSweep(id string, total, passed int) error {
	_, err := s.db.Exec(`UPDATE sweeps SET finished_at = ?, runs_total = ?, runs_passed = ? WHERE id = ?`,
		time.Now(), total, passed, id)
	return err
}

func scanResult(rows *sql.Rows) (domain.Result, error) {
	var result domain.Result
	var object, task, status string
	var dropTime sql.NullFloat64
	var videoPath sql.NullString

	err := rows.Scan(&result.Engine, &object, &task, &result.MJX, &result.Dt, &status, &dropTime, &videoPath, &result.Timestamp)
	if err != nil {
		return domain.Result{}, err
	}

	result.Object = domain.ObjectKind(object)
	result.Task = domain.TaskKind(task)
	result.Status = domain.Status(status)
	if dropTime.Valid {
		result.DropTime = &dropTime.Float64
	}
	if videoPath.Valid {
		result.VideoPath = videoPath.String
	}
	return result, nil
}
