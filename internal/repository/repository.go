package repository

import (
	"context"
	"database/sql"
	"time"

	"gas_usage/internal/models"
	"gas_usage/internal/repository/db"
)

// InitDB opens the SQLite file and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// PrefsRepo persists the single row of model defaults (coefficient K and
// gas price).
type PrefsRepo interface {
	Save(ctx context.Context, p models.ModelPrefs) error
	Load(ctx context.Context) (models.ModelPrefs, error)
}

// RunRepo is the append-only pipeline-run log with filtered access.
type RunRepo interface {
	Append(ctx context.Context, r models.PipelineRun) error
	List(ctx context.Context, from, to time.Time, kind string) ([]models.PipelineRun, error)
}

type Repository struct {
	PrefsRepo PrefsRepo
	RunRepo   RunRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		PrefsRepo: NewPrefsSQLite(db),
		RunRepo:   NewRunSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
