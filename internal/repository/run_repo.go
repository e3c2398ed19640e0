package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gas_usage/internal/models"

	"github.com/google/uuid"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite { return &RunSQLite{db: db} }

const sqliteTimestampLayout = "2006-01-02 15:04:05"

// Append inserts a new run record. If RunID or StartedAt are empty,
// they're set.
func (r *RunSQLite) Append(ctx context.Context, run models.PipelineRun) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	} else {
		run.StartedAt = run.StartedAt.UTC()
	}

	// All timestamps are stored in the same SQLite TIMESTAMP text format
	// so that the range filters in List compare like with like.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, started_at, kind, range_start, range_end, hours, k, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.Format(sqliteTimestampLayout),
		strings.ToUpper(strings.TrimSpace(run.Kind)),
		run.RangeStart.UTC().Format(sqliteTimestampLayout),
		run.RangeEnd.UTC().Format(sqliteTimestampLayout),
		run.Hours,
		run.K,
		run.Note,
	)

	return err
}

// List returns runs filtered by [from, to] (inclusive) and/or kind,
// ordered ASC by start time.
func (r *RunSQLite) List(ctx context.Context, from, to time.Time, kind string) ([]models.PipelineRun, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimestampLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "started_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimestampLayout))
	}
	if kind = strings.ToUpper(strings.TrimSpace(kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	q := `SELECT id, started_at, kind, range_start, range_end, hours, k, note FROM pipeline_runs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PipelineRun, 0, 64)
	for rows.Next() {
		var run models.PipelineRun
		if err := rows.Scan(
			&run.RunID,
			&run.StartedAt,
			&run.Kind,
			&run.RangeStart,
			&run.RangeEnd,
			&run.Hours,
			&run.K,
			&run.Note,
		); err != nil {
			return nil, err
		}
		run.StartedAt = run.StartedAt.UTC()
		run.RangeStart = run.RangeStart.UTC()
		run.RangeEnd = run.RangeEnd.UTC()
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
