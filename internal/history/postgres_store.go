package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/askoja/toil/pkg/api"
)

// PostgresHistory is an api.RunHistory backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresHistory struct {
	db *sql.DB
}

// Ensure PostgresHistory implements RunHistory.
var _ api.RunHistory = (*PostgresHistory)(nil)

// NewPostgresHistory initializes the required schema in the given database
// and returns a new PostgresHistory.
func NewPostgresHistory(db *sql.DB) (*PostgresHistory, error) {
	s := &PostgresHistory{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresHistory) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			progress INTEGER NOT NULL,
			started_at BIGINT NOT NULL,
			finished_at BIGINT NOT NULL,
			error TEXT
		);
	`)
	return err
}

func (s *PostgresHistory) SaveRun(rec *api.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, worker_id, name, outcome, progress, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
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

func (s *PostgresHistory) UpdateRun(rec *api.RunRecord) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET worker_id   = $1,
		    name        = $2,
		    outcome     = $3,
		    progress    = $4,
		    started_at  = $5,
		    finished_at = $6,
		    error       = $7
		WHERE run_id = $8
	`,
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

func (s *PostgresHistory) GetRun(runID string) (*api.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT run_id, worker_id, name, outcome, progress, started_at, finished_at, error
		FROM runs
		WHERE run_id = $1
	`, runID)

	rec, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrRunNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresHistory) ListRuns(filter api.RunFilter) ([]*api.RunRecord, error) {
	query := `
		SELECT run_id, worker_id, name, outcome, progress, started_at, finished_at, error
		FROM runs`
	var args []any
	var clauses []string

	if filter.Name != "" {
		args = append(args, filter.Name)
		clauses = append(clauses, fmt.Sprintf("name = $%d", len(args)))
	}
	if filter.Outcome != "" {
		args = append(args, string(filter.Outcome))
		clauses = append(clauses, fmt.Sprintf("outcome = $%d", len(args)))
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
