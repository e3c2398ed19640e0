package pipeline

import (
	"math"
	"time"

	"gas_usage/internal/models"
)

// Mode selects which hours the aggregation stage emits. Estimation and
// calibration share every other stage so both always see identical
// cleaning logic.
type Mode int

const (
	// ModeEstimation keeps every hour in range.
	ModeEstimation Mode = iota
	// ModeCalibration keeps only fully-operational hours (60 minutes).
	ModeCalibration
)

// MinutesPerHour is the nominal minute count of a complete hour bin.
const MinutesPerHour = 60

// hourEnd labels a minute with the right (closing) edge of its hour bin.
// Bins are right-closed: a sample exactly on the hour belongs to the hour
// it closes.
func hourEnd(t time.Time) time.Time {
	t = t.UTC()
	trunc := t.Truncate(time.Hour)
	if trunc.Equal(t) {
		return t
	}
	return trunc.Add(time.Hour)
}

// AggregateHourly resamples cleaned per-minute load and per-minute
// operational flags into one row per hour label present in the range.
// OperationalMinutes counts true flags in (h-1h, h]; BurnerLoadHourly is
// the NaN-aware mean of cleaned load over exactly those operational
// minutes and nil when there are none. Partial hours at the range
// boundary keep whatever minutes they actually contain.
func AggregateHourly(times []time.Time, load []float64, operational []bool, mode Mode) []models.HourlyRow {
	rows := make([]models.HourlyRow, 0)
	if len(times) == 0 {
		return rows
	}

	var (
		label   time.Time
		opCount int
		loadSum float64
		loadN   int
	)

	flush := func() {
		if mode == ModeCalibration && opCount != MinutesPerHour {
			return
		}
		row := models.HourlyRow{HourEnd: label, OperationalMinutes: opCount}
		if loadN > 0 {
			mean := loadSum / float64(loadN)
			row.BurnerLoadHourly = &mean
		}
		rows = append(rows, row)
	}

	for i, t := range times {
		h := hourEnd(t)
		if i == 0 {
			label = h
		} else if !h.Equal(label) {
			flush()
			label = h
			opCount, loadSum, loadN = 0, 0, 0
		}
		if !operational[i] {
			continue
		}
		opCount++
		if v := load[i]; !math.IsNaN(v) {
			loadSum += v
			loadN++
		}
	}
	flush()
	return rows
}
