package models

import "time"

// CalibrationRow compares one fully-operational hour against the fit.
type CalibrationRow struct {
	HourEnd          time.Time `json:"timestamp"`
	BurnerLoadHourly float64   `json:"burner_load_hourly"`
	GasMeasured      float64   `json:"gas_measured_hourly"`
	GasEstimated     float64   `json:"gas_estimated_hourly"`
}

// CalibrationResult is the outcome of one zero-intercept least-squares fit
// of gas ≈ K·load over fully-operational hours. R2 is nil when the measured
// values have no variance; MAPEPct is nil when every measured value is zero.
// Held for the caller's session only, never persisted as-is.
type CalibrationResult struct {
	K       float64          `json:"k"`
	MAE     float64          `json:"mae"`
	RMSE    float64          `json:"rmse"`
	R2      *float64         `json:"r2"`
	MAPEPct *float64         `json:"mape_pct"`
	N       int              `json:"n_points"`
	Rows    []CalibrationRow `json:"comparison,omitempty"`
}
