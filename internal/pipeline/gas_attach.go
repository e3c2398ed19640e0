package pipeline

import (
	"time"

	"gas_usage/internal/models"
)

// AttachGas aligns raw (ungrouped) gas-meter readings onto the hourly
// labels and returns a new slice; the input rows are not mutated. offset
// shifts meter timestamps before matching, resolving the offset between
// the meter's recording convention and the pipeline's hour labels. Hours
// with no matching reading keep GasMeasured nil, never an error. When
// the meter emits duplicate timestamps the first reading wins.
func AttachGas(rows []models.HourlyRow, gas []models.GasReading, offset time.Duration) []models.HourlyRow {
	byInstant := make(map[int64]float64, len(gas))
	for _, g := range gas {
		key := g.Time.Add(offset).UTC().Unix()
		if _, seen := byInstant[key]; !seen {
			byInstant[key] = g.Value
		}
	}

	out := make([]models.HourlyRow, len(rows))
	for i, row := range rows {
		out[i] = row
		if v, ok := byInstant[row.HourEnd.UTC().Unix()]; ok {
			val := v
			out[i].GasMeasured = &val
		}
	}
	return out
}
