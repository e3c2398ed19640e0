package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"gas_usage/internal/models"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestPrefsSave_UpsertsSingleRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewPrefsSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO model_prefs (id, default_k, default_gas_price, updated_at)
		VALUES (?, ?, ?, ?)
	`)).
		WithArgs(1, 7.97, 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(ctx(t), models.ModelPrefs{
		DefaultK:        7.97,
		DefaultGasPrice: 0.5,
		// UpdatedAt zero -> repo sets UTC now
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestPrefsSave_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewPrefsSQLite(db)

	mock.ExpectExec("INSERT INTO model_prefs").
		WillReturnError(errors.New("down"))

	err = repo.Save(ctx(t), models.ModelPrefs{DefaultK: 5, DefaultGasPrice: 0.4})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestPrefsLoad_ReturnsRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewPrefsSQLite(db)

	updated := time.Date(2024, 10, 7, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, default_k, default_gas_price, updated_at").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "default_k", "default_gas_price", "updated_at"}).
			AddRow(1, 7.97, 0.5, updated))

	p, err := repo.Load(ctx(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ID != 1 || p.DefaultK != 7.97 || p.DefaultGasPrice != 0.5 {
		t.Fatalf("unexpected prefs: %+v", p)
	}
	if !p.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected timestamp: %v", p.UpdatedAt)
	}
}

func TestPrefsLoad_NoRowsMeansZeroValue(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	repo := NewPrefsSQLite(db)

	mock.ExpectQuery("SELECT id, default_k, default_gas_price, updated_at").
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	p, err := repo.Load(ctx(t))
	if err != nil {
		t.Fatalf("no rows must not be an error: %v", err)
	}
	if p.ID != 0 {
		t.Fatalf("expected zero-value prefs, got %+v", p)
	}
}
