package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gas_usage/internal/models"
	"gas_usage/internal/repository"
)

// Validation sentinels, matched by the HTTP layer to tell a caller
// mistake apart from a storage failure.
var (
	ErrInvalidK        = errors.New("coefficient k must be > 0")
	ErrInvalidGasPrice = errors.New("gas price must be >= 0")
)

// PrefsService persists the model defaults and falls back to the
// configured seed values when no row has been saved yet.
type PrefsService struct {
	repo     repository.PrefsRepo
	defaults Defaults
}

func NewPrefsService(repo repository.PrefsRepo, defaults Defaults) *PrefsService {
	return &PrefsService{repo: repo, defaults: defaults}
}

func (s *PrefsService) Get(ctx context.Context) (models.ModelPrefs, error) {
	p, err := s.repo.Load(ctx)
	if err != nil {
		return models.ModelPrefs{}, err
	}
	if p.ID == 0 {
		// Nothing persisted yet.
		return models.ModelPrefs{
			ID:              1,
			DefaultK:        s.defaults.K,
			DefaultGasPrice: s.defaults.GasPrice,
		}, nil
	}
	return p, nil
}

// Update overwrites the persisted defaults. Nil fields keep their current
// value, so either coefficient can be changed on its own.
func (s *PrefsService) Update(ctx context.Context, k, gasPrice *float64) (models.ModelPrefs, error) {
	if k != nil && *k <= 0 {
		return models.ModelPrefs{}, fmt.Errorf("%w, got %g", ErrInvalidK, *k)
	}
	if gasPrice != nil && *gasPrice < 0 {
		return models.ModelPrefs{}, fmt.Errorf("%w, got %g", ErrInvalidGasPrice, *gasPrice)
	}

	p, err := s.Get(ctx)
	if err != nil {
		return models.ModelPrefs{}, err
	}
	if k != nil {
		p.DefaultK = *k
	}
	if gasPrice != nil {
		p.DefaultGasPrice = *gasPrice
	}
	p.ID = 1
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, p); err != nil {
		return models.ModelPrefs{}, err
	}
	return p, nil
}
