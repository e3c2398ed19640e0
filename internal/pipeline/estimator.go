package pipeline

import (
	"errors"
	"fmt"
	"time"

	"gas_usage/internal/models"
)

// ErrInvalidConfig rejects estimator parameters before any computation:
// the coefficient must be positive and the gas price non-negative.
var ErrInvalidConfig = errors.New("invalid model config")

// ApplyGasModel augments every hourly row with
//
//	gas_usage_est_hourly = K × burner_load_hourly × (op_min/60)
//	cost_hourly          = gas_usage_est_hourly × gasPrice
//
// and returns a new slice. An hour with zero operational minutes estimates
// to 0 even though its load mean is undefined: no run-time, no gas.
func ApplyGasModel(rows []models.HourlyRow, k, gasPrice float64) ([]models.HourlyRow, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: coefficient k must be > 0, got %g", ErrInvalidConfig, k)
	}
	if gasPrice < 0 {
		return nil, fmt.Errorf("%w: gas price must be >= 0, got %g", ErrInvalidConfig, gasPrice)
	}

	out := make([]models.HourlyRow, len(rows))
	for i, row := range rows {
		out[i] = row
		est := 0.0
		if row.OperationalMinutes > 0 && row.BurnerLoadHourly != nil {
			opMin := row.OperationalMinutes
			if opMin > MinutesPerHour {
				opMin = MinutesPerHour
			}
			est = k * *row.BurnerLoadHourly * float64(opMin) / MinutesPerHour
		}
		out[i].GasUsageEstHourly = est
		out[i].CostHourly = est * gasPrice
	}
	return out, nil
}

// GroupPeriods rolls hourly rows up to weekly (ISO weeks, Monday start) or
// monthly buckets labeled by their period end. Estimate, cost and
// operational minutes are summed; the hourly load means are averaged
// unweighted, nil when no hour in the period had a defined mean. An hour
// is assigned to the period containing the interval it covers, i.e. by its
// left edge (HourEnd − 1h), so the midnight row closing a period still
// counts toward it.
func GroupPeriods(rows []models.HourlyRow, g models.Granularity) ([]models.PeriodRow, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: unknown granularity %q", ErrInvalidConfig, g)
	}
	if g == models.GranularityHourly {
		return nil, fmt.Errorf("%w: hourly rows need no grouping", ErrInvalidConfig)
	}

	periods := make([]models.PeriodRow, 0)
	idx := make(map[int64]int)
	sums := make(map[int64]*loadMeanAcc)

	for _, row := range rows {
		end := periodEnd(row.HourEnd.UTC().Add(-time.Hour), g)
		key := end.Unix()
		i, ok := idx[key]
		if !ok {
			i = len(periods)
			idx[key] = i
			periods = append(periods, models.PeriodRow{PeriodEnd: end})
			sums[key] = &loadMeanAcc{}
		}
		periods[i].OperationalMinutes += row.OperationalMinutes
		periods[i].GasUsageEstHourly += row.GasUsageEstHourly
		periods[i].CostHourly += row.CostHourly
		if row.BurnerLoadHourly != nil {
			sums[key].add(*row.BurnerLoadHourly)
		}
	}

	for i := range periods {
		if mean, ok := sums[periods[i].PeriodEnd.Unix()].mean(); ok {
			m := mean
			periods[i].BurnerLoadHourly = &m
		}
	}
	return periods, nil
}

type loadMeanAcc struct {
	sum float64
	n   int
}

func (a *loadMeanAcc) add(v float64) {
	a.sum += v
	a.n++
}

func (a *loadMeanAcc) mean() (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	return a.sum / float64(a.n), true
}

// periodEnd returns the exclusive end of the weekly or monthly period
// containing t.
func periodEnd(t time.Time, g models.Granularity) time.Time {
	t = t.UTC()
	if g == models.GranularityMonthly {
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, 1, 0)
	}
	// ISO week: Monday 00:00 start.
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	start := day.AddDate(0, 0, -(weekday - 1))
	return start.AddDate(0, 0, 7)
}
