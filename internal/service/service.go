package service

import (
	"context"
	"time"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
	"gas_usage/internal/pipeline"
	"gas_usage/internal/repository"
	"gas_usage/internal/source"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Estimation runs the full-range estimation pipeline and applies the gas
// model.
type Estimation interface {
	Run(ctx context.Context, req EstimateRequest) (EstimateResult, error)
}

// Calibration runs the 100%-operational-hour pipeline and fits K.
type Calibration interface {
	Calibrate(ctx context.Context, req CalibrateRequest) (models.CalibrationResult, error)
}

// Prefs exposes the persisted model defaults (K, gas price).
type Prefs interface {
	Get(ctx context.Context) (models.ModelPrefs, error)
	Update(ctx context.Context, k, gasPrice *float64) (models.ModelPrefs, error)
}

// RunLog exposes the append-only pipeline-run history with filtering.
type RunLog interface {
	List(ctx context.Context, f RunFilter) ([]models.PipelineRun, error)
}

// Monitoring exposes the latest cached estimation snapshot for the
// websocket stream.
type Monitoring interface {
	Snapshot(ctx context.Context) (models.EstimateSnapshot, error)
}

// Refresher runs the background loop that re-estimates the trailing
// window. Stop via context cancellation in main() for graceful shutdown.
type Refresher interface {
	Run(ctx context.Context, tick time.Duration)
}

// EstimateRequest parameterizes one estimation run. Nil K/GasPrice fall
// back to the persisted defaults.
type EstimateRequest struct {
	Start       time.Time
	End         time.Time
	K           *float64
	GasPrice    *float64
	Granularity models.Granularity // empty means hourly
	// Background marks refresher-driven runs, which are not recorded in
	// the run log (one entry per tick would drown the audit trail).
	Background bool
}

// EstimateResult carries the augmented rows plus the coefficients and
// stats that produced them.
type EstimateResult struct {
	K        float64            `json:"k"`
	GasPrice float64            `json:"gas_price"`
	Hourly   []models.HourlyRow `json:"hourly,omitempty"`
	Periods  []models.PeriodRow `json:"periods,omitempty"`
	Stats    pipeline.Stats     `json:"stats"`
}

// CalibrateRequest parameterizes one calibration run.
type CalibrateRequest struct {
	Start         time.Time
	End           time.Time
	SaveAsDefault bool
}

// RunFilter supports run-log filtering by time range and kind.
type RunFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Kind string    // "", "ESTIMATION", "CALIBRATION"
}

// Defaults seed the model coefficients when no prefs row exists yet and
// shape the background refresher.
type Defaults struct {
	K              float64
	GasPrice       float64
	GasMeterOffset time.Duration
	RefreshWindow  time.Duration
	SnapshotHours  int
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Estimation
	Calibration
	Prefs
	RunLog
	Monitoring
	Refresher
	Authorization
}

// NewService wires the repository layer, the series source and the
// pipeline into concrete services.
func NewService(repos *repository.Repository, src source.RawSeriesSource, log *logger.Logger, signingKey string, defaults Defaults) *Service {
	p := pipeline.New(src, log)
	prefs := NewPrefsService(repos.PrefsRepo, defaults)
	est := NewEstimationService(p, prefs, repos.RunRepo, defaults, log)
	cache := newSnapshotCache()
	return &Service{
		Estimation:    est,
		Calibration:   NewCalibrationService(p, prefs, repos.RunRepo, log),
		Prefs:         prefs,
		RunLog:        NewRunLogService(repos.RunRepo),
		Monitoring:    NewMonitoringService(cache),
		Refresher:     NewRefresherService(est, cache, defaults, log),
		Authorization: NewAuthService(repos.Auth, signingKey),
	}
}
