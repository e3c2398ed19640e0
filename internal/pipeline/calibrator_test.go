package pipeline

import (
	"errors"
	"testing"
	"time"

	"gas_usage/internal/models"
)

func calibrationRows(loads, gases []float64) []models.HourlyRow {
	start := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)
	rows := make([]models.HourlyRow, len(loads))
	for i := range loads {
		rows[i] = models.HourlyRow{
			HourEnd:            start.Add(time.Duration(i) * time.Hour),
			OperationalMinutes: 60,
			BurnerLoadHourly:   fptr(loads[i]),
			GasMeasured:        fptr(gases[i]),
		}
	}
	return rows
}

func TestCalibrate_RecoversExactCoefficient(t *testing.T) {
	// Synthetic noise-free data gas = 3·load must recover K=3 with
	// perfect metrics.
	loads := []float64{40, 55, 70, 85}
	gases := make([]float64, len(loads))
	for i, l := range loads {
		gases[i] = 3 * l
	}

	result, err := Calibrate(calibrationRows(loads, gases))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertFloatEq(t, result.K, 3, 1e-12, "fitted K")
	assertFloatEq(t, result.MAE, 0, 1e-9, "MAE")
	assertFloatEq(t, result.RMSE, 0, 1e-9, "RMSE")
	if result.R2 == nil {
		t.Fatalf("expected R² to be defined")
	}
	assertFloatEq(t, *result.R2, 1, 1e-9, "R²")
	if result.MAPEPct == nil {
		t.Fatalf("expected MAPE to be defined")
	}
	assertFloatEq(t, *result.MAPEPct, 0, 1e-9, "MAPE")
	if result.N != len(loads) {
		t.Fatalf("N: got %d, want %d", result.N, len(loads))
	}
	if len(result.Rows) != len(loads) {
		t.Fatalf("comparison rows: got %d, want %d", len(result.Rows), len(loads))
	}
}

func TestCalibrate_ZeroInterceptFormula(t *testing.T) {
	loads := []float64{10, 20, 5}
	gases := []float64{20, 40, 0}
	result, err := Calibrate(calibrationRows(loads, gases))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// K = Σ(load·gas)/Σ(load²) = (200+800+0)/(100+400+25)
	assertFloatEq(t, result.K, 1000.0/525.0, 1e-12, "zero-intercept K")
	// The gas=0 row must be excluded from MAPE but not from the fit.
	if result.MAPEPct == nil {
		t.Fatalf("expected MAPE over the non-zero rows")
	}
	if result.N != 3 {
		t.Fatalf("all three rows qualify for the fit, got N=%d", result.N)
	}
}

func TestCalibrate_FiltersNonQualifyingRows(t *testing.T) {
	rows := calibrationRows([]float64{40, 60}, []float64{120, 180})
	rows = append(rows,
		models.HourlyRow{ // not fully operational
			HourEnd: time.Date(2024, 2, 2, 1, 0, 0, 0, time.UTC), OperationalMinutes: 59,
			BurnerLoadHourly: fptr(500), GasMeasured: fptr(1),
		},
		models.HourlyRow{ // no measured gas
			HourEnd: time.Date(2024, 2, 2, 2, 0, 0, 0, time.UTC), OperationalMinutes: 60,
			BurnerLoadHourly: fptr(500),
		},
	)

	result, err := Calibrate(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.N != 2 {
		t.Fatalf("expected only the 2 qualifying rows, got N=%d", result.N)
	}
	assertFloatEq(t, result.K, 3, 1e-12, "K over qualifying rows only")
}

func TestCalibrate_InsufficientData(t *testing.T) {
	var calErr *CalibrationError

	_, err := Calibrate(nil)
	if !errors.As(err, &calErr) {
		t.Fatalf("expected CalibrationError for empty input, got %v", err)
	}
	if calErr.N != 0 {
		t.Fatalf("expected reported row count 0, got %d", calErr.N)
	}

	_, err = Calibrate(calibrationRows([]float64{50}, []float64{400}))
	if !errors.As(err, &calErr) {
		t.Fatalf("expected CalibrationError for a single row, got %v", err)
	}
	if calErr.N != 1 {
		t.Fatalf("expected reported row count 1, got %d", calErr.N)
	}
}

func TestCalibrate_AllZeroLoadsDegenerate(t *testing.T) {
	_, err := Calibrate(calibrationRows([]float64{0, 0, 0}, []float64{10, 20, 30}))
	var calErr *CalibrationError
	if !errors.As(err, &calErr) {
		t.Fatalf("expected CalibrationError for all-zero loads, got %v", err)
	}
	if calErr.N != 3 {
		t.Fatalf("expected reported row count 3, got %d", calErr.N)
	}
}

func TestCalibrate_ConstantGasLeavesR2Undefined(t *testing.T) {
	result, err := Calibrate(calibrationRows([]float64{40, 60}, []float64{100, 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.R2 != nil {
		t.Fatalf("R² must be undefined when measured gas has no variance, got %v", *result.R2)
	}
}
