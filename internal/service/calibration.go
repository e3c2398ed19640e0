package service

import (
	"context"
	"fmt"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
	"gas_usage/internal/pipeline"
	"gas_usage/internal/repository"
)

// CalibrationService fits the coefficient K on hours with a full 60
// operational minutes and a metered gas reading.
type CalibrationService struct {
	pipe    *pipeline.Pipeline
	prefs   Prefs
	runRepo repository.RunRepo
	log     *logger.Logger
}

func NewCalibrationService(pipe *pipeline.Pipeline, prefs Prefs, runRepo repository.RunRepo, log *logger.Logger) *CalibrationService {
	return &CalibrationService{pipe: pipe, prefs: prefs, runRepo: runRepo, log: log}
}

func (s *CalibrationService) Calibrate(ctx context.Context, req CalibrateRequest) (models.CalibrationResult, error) {
	rows, _, err := s.pipe.Run(ctx, pipeline.Config{
		Start: req.Start.UTC(),
		End:   req.End.UTC(),
		Mode:  pipeline.ModeCalibration,
	})
	if err != nil {
		return models.CalibrationResult{}, err
	}

	res, err := pipeline.Calibrate(rows)
	if err != nil {
		return models.CalibrationResult{}, err
	}

	if req.SaveAsDefault {
		if _, err := s.prefs.Update(ctx, &res.K, nil); err != nil {
			return models.CalibrationResult{}, fmt.Errorf("save fitted k: %w", err)
		}
	}

	s.recordRun(ctx, req, res)
	return res, nil
}

func (s *CalibrationService) recordRun(ctx context.Context, req CalibrateRequest, res models.CalibrationResult) {
	if s.runRepo == nil {
		return
	}
	note := ""
	if req.SaveAsDefault {
		note = "saved as default"
	}
	err := s.runRepo.Append(ctx, models.PipelineRun{
		Kind:       models.RunKindCalibration,
		RangeStart: req.Start.UTC(),
		RangeEnd:   req.End.UTC(),
		Hours:      res.N,
		K:          res.K,
		Note:       note,
	})
	if err != nil && s.log != nil {
		s.log.Warnw("run_log_append_failed", "err", err)
	}
}
