package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/askoja/toil/pkg/api"
)

// SQLiteHistory is an api.RunHistory backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteHistory struct {
	db *sql.DB
}

// Ensure SQLiteHistory implements RunHistory.
var _ api.RunHistory = (*SQLiteHistory)(nil)

// NewSQLiteHistory initializes the required schema in the given database
// and returns a new SQLiteHistory.
func NewSQLiteHistory(db *sql.DB) (*SQLiteHistory, error) {
	s := &SQLiteHistory{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistory) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			progress INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			error TEXT
		);`,
	)
	return err
}

func (s *SQLiteHistory) SaveRun(rec *api.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, worker_id, name, outcome, progress, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.WorkerID,
		rec.Name,
		string(rec.Outcome),
		rec.Progress,
		timeNano(rec.StartedAt),
		timeNano(rec.FinishedAt),
		rec.Error,
	)
	return err
}

func (s *SQLiteHistory) UpdateRun(rec *api.RunRecord) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET worker_id = ?, name = ?, outcome = ?, progress = ?, started_at = ?, finished_at = ?, error = ?
		WHERE run_id = ?`,
		rec.WorkerID,
		rec.Name,
		string(rec.Outcome),
		rec.Progress,
		timeNano(rec.StartedAt),
		timeNano(rec.FinishedAt),
		rec.Error,
		rec.RunID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrRunNotFound
	}

	return nil
}

func (s *SQLiteHistory) GetRun(runID string) (*api.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT run_id, worker_id, name, outcome, progress, started_at, finished_at, error
		FROM runs
		WHERE run_id = ?`,
		runID,
	)

	rec, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrRunNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteHistory) ListRuns(filter api.RunFilter) ([]*api.RunRecord, error) {
	query := `
		SELECT run_id, worker_id, name, outcome, progress, started_at, finished_at, error
		FROM runs`
	var args []any
	var clauses []string

	if filter.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*api.RunRecord

	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanRun reads one row in the shared column order. Both SQL backends store
// timestamps as Unix nanoseconds so records round-trip exactly; 0 marks the
// zero time (a RUNNING record has no FinishedAt yet).
func scanRun(scan func(dest ...any) error) (*api.RunRecord, error) {
	var rec api.RunRecord
	var outcomeStr string
	var startedAt, finishedAt int64
	var errStr sql.NullString

	if err := scan(&rec.RunID, &rec.WorkerID, &rec.Name, &outcomeStr, &rec.Progress, &startedAt, &finishedAt, &errStr); err != nil {
		return nil, err
	}

	rec.Outcome = api.Outcome(outcomeStr)
	rec.StartedAt = nanoTime(startedAt)
	rec.FinishedAt = nanoTime(finishedAt)
	if errStr.Valid {
		rec.Error = errStr.String
	}

	return &rec, nil
}

// timeNano encodes t for storage. UnixNano is undefined for the zero time,
// so it maps to 0.
func timeNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanoTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
