package pipeline

import (
	"fmt"
	"math"

	"gas_usage/internal/models"
)

// MinCalibrationRows is the smallest qualifying-hour count a fit accepts.
const MinCalibrationRows = 2

// mapeFloor excludes effectively-zero measured values from MAPE.
const mapeFloor = 1e-9

// CalibrationError reports insufficient or degenerate calibration input,
// carrying the qualifying-row count that was found. The coefficient is
// never silently defaulted.
type CalibrationError struct {
	N      int
	Reason string
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibration failed: %s (qualifying hours: %d)", e.Reason, e.N)
}

// Calibrate fits gas_measured ≈ K × burner_load_hourly by ordinary least
// squares with the intercept constrained to zero:
//
//	K = Σ(load·gas) / Σ(load²)
//
// over the rows that qualify: fully operational (60 minutes) with a
// defined load mean and a measured gas value. Metrics are computed against
// the fitted K on the same filtered set. The fitted coefficient is
// returned for the caller to adopt; no shared state is mutated.
func Calibrate(rows []models.HourlyRow) (models.CalibrationResult, error) {
	loads := make([]float64, 0, len(rows))
	gases := make([]float64, 0, len(rows))
	used := make([]models.HourlyRow, 0, len(rows))
	for _, row := range rows {
		if !row.FullyOperational() || row.BurnerLoadHourly == nil || row.GasMeasured == nil {
			continue
		}
		loads = append(loads, *row.BurnerLoadHourly)
		gases = append(gases, *row.GasMeasured)
		used = append(used, row)
	}

	n := len(used)
	if n < MinCalibrationRows {
		return models.CalibrationResult{}, &CalibrationError{N: n, Reason: "insufficient qualifying hours"}
	}

	var sumGB, sumBB float64
	for i := range loads {
		sumGB += gases[i] * loads[i]
		sumBB += loads[i] * loads[i]
	}
	if sumBB == 0 {
		return models.CalibrationResult{}, &CalibrationError{N: n, Reason: "all-zero burner load"}
	}
	k := sumGB / sumBB

	result := models.CalibrationResult{K: k, N: n, Rows: make([]models.CalibrationRow, 0, n)}

	var absSum, sqSum, gasSum float64
	for i := range loads {
		pred := k * loads[i]
		resid := gases[i] - pred
		absSum += math.Abs(resid)
		sqSum += resid * resid
		gasSum += gases[i]
		result.Rows = append(result.Rows, models.CalibrationRow{
			HourEnd:          used[i].HourEnd,
			BurnerLoadHourly: loads[i],
			GasMeasured:      gases[i],
			GasEstimated:     pred,
		})
	}
	result.MAE = absSum / float64(n)
	result.RMSE = math.Sqrt(sqSum / float64(n))

	// R² vs the zero-intercept prediction; undefined when the measured
	// values carry no variance.
	gasMean := gasSum / float64(n)
	var ssTot float64
	for _, g := range gases {
		ssTot += (g - gasMean) * (g - gasMean)
	}
	if ssTot > 0 {
		r2 := 1 - sqSum/ssTot
		result.R2 = &r2
	}

	// MAPE over rows with a non-zero measured value.
	var mapeSum float64
	mapeN := 0
	for i := range gases {
		if math.Abs(gases[i]) < mapeFloor {
			continue
		}
		mapeSum += math.Abs(gases[i]-k*loads[i]) / math.Abs(gases[i])
		mapeN++
	}
	if mapeN > 0 {
		mape := mapeSum / float64(mapeN) * 100
		result.MAPEPct = &mape
	}

	return result, nil
}
