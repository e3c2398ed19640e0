package models

import "time"

// HourlyRow is one aggregated calendar hour, labeled by its right
// (closing) edge. BurnerLoadHourly is nil when the hour has no
// operational minutes; GasMeasured is nil when no meter reading matched.
type HourlyRow struct {
	HourEnd            time.Time `json:"timestamp"`
	OperationalMinutes int       `json:"operational_minutes"`
	BurnerLoadHourly   *float64  `json:"burner_load_hourly"`
	GasMeasured        *float64  `json:"gas_measured,omitempty"`
	GasUsageEstHourly  float64   `json:"gas_usage_est_hourly"`
	CostHourly         float64   `json:"cost_hourly"`
}

// FullyOperational reports whether every minute of the hour was operational.
func (r HourlyRow) FullyOperational() bool {
	return r.OperationalMinutes == 60
}

// PeriodRow is a weekly or monthly rollup of hourly rows: estimate, cost
// and operational minutes are summed, the hourly load means are averaged
// unweighted.
type PeriodRow struct {
	PeriodEnd          time.Time `json:"period_end"`
	OperationalMinutes int       `json:"operational_minutes"`
	BurnerLoadHourly   *float64  `json:"burner_load_hourly"`
	GasUsageEstHourly  float64   `json:"gas_usage_est_hourly"`
	CostHourly         float64   `json:"cost_hourly"`
}

// Granularity selects the export/rollup resolution.
type Granularity string

const (
	GranularityHourly  Granularity = "hourly"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityHourly, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}
