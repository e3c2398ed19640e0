package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gas_usage/internal/models"
)

type PrefsSQLite struct {
	db *sql.DB
}

func NewPrefsSQLite(db *sql.DB) *PrefsSQLite {
	return &PrefsSQLite{db: db}
}

// constants and helpers for clarity and reuse
const (
	modelPrefsRowID = 1

	insertOrUpdatePrefsSQL = `
		INSERT INTO model_prefs (id, default_k, default_gas_price, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			default_k=excluded.default_k,
			default_gas_price=excluded.default_gas_price,
			updated_at=excluded.updated_at
	`

	selectPrefsSQL = `
		SELECT id, default_k, default_gas_price, updated_at
		FROM model_prefs WHERE id=?
	`
)

// Save updates or inserts the model_prefs row (id always 1).
func (r *PrefsSQLite) Save(ctx context.Context, p models.ModelPrefs) error {
	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := p.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdatePrefsSQL,
		modelPrefsRowID,
		p.DefaultK,
		p.DefaultGasPrice,
		tsUTC,
	)
	return err
}

// Load fetches the single model_prefs row (id=1). Returns a zero-value
// struct (ID 0) when no defaults have been persisted yet.
func (r *PrefsSQLite) Load(ctx context.Context) (models.ModelPrefs, error) {
	row := r.db.QueryRowContext(ctx, selectPrefsSQL, modelPrefsRowID)

	var p models.ModelPrefs
	if err := row.Scan(
		&p.ID,
		&p.DefaultK,
		&p.DefaultGasPrice,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ModelPrefs{}, nil // no prefs yet
		}
		return models.ModelPrefs{}, err
	}
	p.UpdatedAt = p.UpdatedAt.UTC()

	return p, nil
}
