package service

import (
	"context"
	"fmt"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
	"gas_usage/internal/pipeline"
	"gas_usage/internal/repository"
)

type EstimationService struct {
	pipe     *pipeline.Pipeline
	prefs    Prefs
	runRepo  repository.RunRepo
	defaults Defaults
	log      *logger.Logger
}

func NewEstimationService(pipe *pipeline.Pipeline, prefs Prefs, runRepo repository.RunRepo, defaults Defaults, log *logger.Logger) *EstimationService {
	return &EstimationService{pipe: pipe, prefs: prefs, runRepo: runRepo, defaults: defaults, log: log}
}

// Run executes the estimation pipeline over the requested range and
// applies the gas model. K and gas price fall back to the persisted
// defaults when the request does not supply them; the run is recorded in
// the run log best-effort.
func (s *EstimationService) Run(ctx context.Context, req EstimateRequest) (EstimateResult, error) {
	k, gasPrice, err := s.resolveCoefficients(ctx, req)
	if err != nil {
		return EstimateResult{}, err
	}
	// Reject bad coefficients before touching the source.
	if k <= 0 {
		return EstimateResult{}, fmt.Errorf("%w: coefficient k must be > 0, got %g", pipeline.ErrInvalidConfig, k)
	}
	if gasPrice < 0 {
		return EstimateResult{}, fmt.Errorf("%w: gas price must be >= 0, got %g", pipeline.ErrInvalidConfig, gasPrice)
	}

	rows, stats, err := s.pipe.Run(ctx, pipeline.Config{
		Start:          req.Start.UTC(),
		End:            req.End.UTC(),
		Mode:           pipeline.ModeEstimation,
		GasMeterOffset: s.defaults.GasMeterOffset,
	})
	if err != nil {
		return EstimateResult{}, err
	}

	rows, err = pipeline.ApplyGasModel(rows, k, gasPrice)
	if err != nil {
		return EstimateResult{}, err
	}

	result := EstimateResult{K: k, GasPrice: gasPrice, Stats: stats}
	granularity := req.Granularity
	if granularity == "" {
		granularity = models.GranularityHourly
	}
	if granularity == models.GranularityHourly {
		result.Hourly = rows
	} else {
		periods, err := pipeline.GroupPeriods(rows, granularity)
		if err != nil {
			return EstimateResult{}, err
		}
		result.Periods = periods
	}

	if !req.Background {
		s.recordRun(ctx, req, k, len(rows))
	}
	return result, nil
}

// recordRun appends the run to the log; failures are logged, never fatal.
func (s *EstimationService) recordRun(ctx context.Context, req EstimateRequest, k float64, hours int) {
	if s.runRepo == nil {
		return
	}
	err := s.runRepo.Append(ctx, models.PipelineRun{
		Kind:       models.RunKindEstimation,
		RangeStart: req.Start.UTC(),
		RangeEnd:   req.End.UTC(),
		Hours:      hours,
		K:          k,
	})
	if err != nil && s.log != nil {
		s.log.Warnw("run_log_append_failed", "err", err)
	}
}

// resolveCoefficients picks request overrides first, then the persisted
// defaults (which themselves fall back to configuration).
func (s *EstimationService) resolveCoefficients(ctx context.Context, req EstimateRequest) (float64, float64, error) {
	if req.K != nil && req.GasPrice != nil {
		return *req.K, *req.GasPrice, nil
	}
	p, err := s.prefs.Get(ctx)
	if err != nil {
		return 0, 0, err
	}
	k := p.DefaultK
	gasPrice := p.DefaultGasPrice
	if req.K != nil {
		k = *req.K
	}
	if req.GasPrice != nil {
		gasPrice = *req.GasPrice
	}
	return k, gasPrice, nil
}
