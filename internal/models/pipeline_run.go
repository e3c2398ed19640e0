package models

import "time"

// Run kinds recorded in the pipeline-run log.
const (
	RunKindEstimation  = "ESTIMATION"
	RunKindCalibration = "CALIBRATION"
)

// PipelineRun is one entry in the append-only run log.
type PipelineRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Kind       string    `json:"kind"` // ESTIMATION | CALIBRATION
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`
	Hours      int       `json:"hours"`
	K          float64   `json:"k"` // coefficient used (estimation) or fitted (calibration)
	Note       string    `json:"note,omitempty"`
}

// EstimateSnapshot is the cached result of the latest background
// estimation over the trailing window, streamed to websocket clients.
type EstimateSnapshot struct {
	GeneratedAt        time.Time   `json:"generated_at"`
	WindowStart        time.Time   `json:"window_start"`
	WindowEnd          time.Time   `json:"window_end"`
	K                  float64     `json:"k"`
	GasPrice           float64     `json:"gas_price"`
	Hours              int         `json:"hours"`
	OperationalMinutes int         `json:"operational_minutes"`
	GasUsageEstTotal   float64     `json:"gas_usage_est_total"`
	CostTotal          float64     `json:"cost_total"`
	LatestHours        []HourlyRow `json:"latest_hours,omitempty"`
}
