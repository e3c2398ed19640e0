package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"gas_usage/internal/models"
)

func TestRunAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewRunSQLite(db)

	// We don't know the generated id or exact timestamp string, but we can
	// match Exec and argument count.
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO pipeline_runs (id, started_at, kind, range_start, range_end, hours, k, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(),
			"ESTIMATION", sqlmock.AnyArg(), sqlmock.AnyArg(),
			24, 7.97, "trailing window",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(ctx(t), models.PipelineRun{
		// RunID empty -> repo generates
		// StartedAt zero -> repo sets UTC now
		Kind:       "  estimation ",
		RangeStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Hours:      24,
		K:          7.97,
		Note:       "trailing window",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewRunSQLite(db)

	mock.ExpectExec("INSERT INTO pipeline_runs").
		WillReturnError(errors.New("down"))

	err = repo.Append(ctx(t), models.PipelineRun{Kind: models.RunKindCalibration})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunList_FiltersByKindAndRange(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewRunSQLite(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	started := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	// Filters are bound in the stored text format, not as time.Time, so
	// string comparison in SQLite orders correctly.
	mock.ExpectQuery("SELECT id, started_at, kind, range_start, range_end, hours, k, note FROM pipeline_runs WHERE started_at >= \\? AND started_at <= \\? AND kind = \\?").
		WithArgs("2024-03-01 00:00:00", "2024-03-31 00:00:00", "CALIBRATION").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "started_at", "kind", "range_start", "range_end", "hours", "k", "note"}).
			AddRow("run-1", started, "CALIBRATION", from, to, 310, 7.91, "fit ok"))

	out, err := repo.List(ctx(t), from, to, "calibration")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 run, got %d", len(out))
	}
	run := out[0]
	if run.RunID != "run-1" || run.Kind != "CALIBRATION" || run.Hours != 310 || run.K != 7.91 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("unexpected started_at: %v", run.StartedAt)
	}
}

func TestRunList_NoFiltersNoWhere(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewRunSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, started_at, kind, range_start, range_end, hours, k, note FROM pipeline_runs ORDER BY started_at ASC`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "started_at", "kind", "range_start", "range_end", "hours", "k", "note"}))

	out, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no runs, got %d", len(out))
	}
}
