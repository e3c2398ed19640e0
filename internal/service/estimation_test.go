package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gas_usage/internal/models"
	"gas_usage/internal/pipeline"
)

// fakeSeriesSource satisfies source.RawSeriesSource with canned frames.
type fakeSeriesSource struct {
	frame    *models.MinuteFrame
	frameErr error
	gas      []models.GasReading
	gasErr   error
}

func (f *fakeSeriesSource) FetchMinutely(ctx context.Context, channels []string, start, end time.Time) (*models.MinuteFrame, error) {
	return f.frame, f.frameErr
}

func (f *fakeSeriesSource) FetchGasRaw(ctx context.Context, start, end time.Time) ([]models.GasReading, error) {
	return f.gas, f.gasErr
}

// fakePrefs satisfies the Prefs interface.
type fakePrefs struct {
	prefs       models.ModelPrefs
	getErr      error
	updateErr   error
	updatedK    *float64
	updateCalls int
}

func (f *fakePrefs) Get(ctx context.Context) (models.ModelPrefs, error) {
	return f.prefs, f.getErr
}

func (f *fakePrefs) Update(ctx context.Context, k, gasPrice *float64) (models.ModelPrefs, error) {
	f.updateCalls++
	f.updatedK = k
	if f.updateErr != nil {
		return models.ModelPrefs{}, f.updateErr
	}
	if k != nil {
		f.prefs.DefaultK = *k
	}
	if gasPrice != nil {
		f.prefs.DefaultGasPrice = *gasPrice
	}
	return f.prefs, nil
}

// fakeRunRepo satisfies repository.RunRepo.
type fakeRunRepo struct {
	appended  []models.PipelineRun
	appendErr error
	listed    []models.PipelineRun
	listErr   error
	gotFrom   time.Time
	gotTo     time.Time
	gotKind   string
	listCalls int
}

func (f *fakeRunRepo) Append(ctx context.Context, r models.PipelineRun) error {
	f.appended = append(f.appended, r)
	return f.appendErr
}

func (f *fakeRunRepo) List(ctx context.Context, from, to time.Time, kind string) ([]models.PipelineRun, error) {
	f.listCalls++
	f.gotFrom = from
	f.gotTo = to
	f.gotKind = kind
	return f.listed, f.listErr
}

// runningFrame builds n minutes with the burner running at constant load.
func runningFrame(start time.Time, n int, load float64) *models.MinuteFrame {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Minute)
	}
	frame := models.NewMinuteFrame(times)
	ones := make([]float64, n)
	fan := make([]float64, n)
	loads := make([]float64, n)
	for i := 0; i < n; i++ {
		ones[i] = 1
		fan[i] = 30
		loads[i] = load
	}
	frame.SetColumn(models.ChannelSRun, ones)
	frame.SetColumn(models.ChannelFan1SpeedHz, fan)
	frame.SetColumn(models.ChannelFan2SpeedHz, fan)
	frame.SetColumn(models.ChannelBurnerLoad, loads)
	return frame
}

func fp(v float64) *float64 { return &v }

func newEstimationUnderTest(src *fakeSeriesSource, prefs Prefs, runs *fakeRunRepo) *EstimationService {
	return NewEstimationService(pipeline.New(src, nil), prefs, runs, Defaults{}, nil)
}

func TestEstimationRun_RequestOverridesWinOverPrefs(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSeriesSource{frame: runningFrame(start.Add(time.Minute), 60, 50)}
	prefs := &fakePrefs{prefs: models.ModelPrefs{ID: 1, DefaultK: 999, DefaultGasPrice: 999}}
	runs := &fakeRunRepo{}

	svc := newEstimationUnderTest(src, prefs, runs)

	res, err := svc.Run(context.Background(), EstimateRequest{
		Start:    start,
		End:      start.Add(time.Hour),
		K:        fp(2.0),
		GasPrice: fp(0.8),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.K != 2.0 || res.GasPrice != 0.8 {
		t.Fatalf("expected request coefficients, got k=%v price=%v", res.K, res.GasPrice)
	}
	if len(res.Hourly) != 1 {
		t.Fatalf("expected 1 hourly row, got %d", len(res.Hourly))
	}
	if got := res.Hourly[0].GasUsageEstHourly; math.Abs(got-100) > 1e-9 {
		t.Fatalf("estimate: got %v, want 100", got)
	}
	if got := res.Hourly[0].CostHourly; math.Abs(got-80) > 1e-9 {
		t.Fatalf("cost: got %v, want 80", got)
	}

	if len(runs.appended) != 1 {
		t.Fatalf("expected 1 logged run, got %d", len(runs.appended))
	}
	run := runs.appended[0]
	if run.Kind != models.RunKindEstimation || run.Hours != 1 || run.K != 2.0 {
		t.Fatalf("unexpected run entry: %+v", run)
	}
}

func TestEstimationRun_FallsBackToPrefs(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSeriesSource{frame: runningFrame(start.Add(time.Minute), 60, 50)}
	prefs := &fakePrefs{prefs: models.ModelPrefs{ID: 1, DefaultK: 7.97, DefaultGasPrice: 0.5}}

	svc := newEstimationUnderTest(src, prefs, &fakeRunRepo{})

	res, err := svc.Run(context.Background(), EstimateRequest{Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.K != 7.97 || res.GasPrice != 0.5 {
		t.Fatalf("expected persisted defaults, got k=%v price=%v", res.K, res.GasPrice)
	}
}

func TestEstimationRun_RejectsBadCoefficients(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newEstimationUnderTest(&fakeSeriesSource{}, &fakePrefs{}, &fakeRunRepo{})

	_, err := svc.Run(context.Background(), EstimateRequest{
		Start: start, End: start.Add(time.Hour),
		K: fp(0), GasPrice: fp(0.5),
	})
	if !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("k=0 must be rejected, got %v", err)
	}

	_, err = svc.Run(context.Background(), EstimateRequest{
		Start: start, End: start.Add(time.Hour),
		K: fp(2), GasPrice: fp(-0.1),
	})
	if !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Fatalf("negative gas price must be rejected, got %v", err)
	}
}

func TestEstimationRun_WeeklyGranularityReturnsPeriods(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // Monday
	src := &fakeSeriesSource{frame: runningFrame(start.Add(time.Minute), 120, 40)}
	prefs := &fakePrefs{prefs: models.ModelPrefs{ID: 1, DefaultK: 2, DefaultGasPrice: 0.5}}

	svc := newEstimationUnderTest(src, prefs, &fakeRunRepo{})

	res, err := svc.Run(context.Background(), EstimateRequest{
		Start:       start,
		End:         start.Add(2 * time.Hour),
		Granularity: models.GranularityWeekly,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Hourly != nil {
		t.Fatalf("weekly result must not carry hourly rows, got %d", len(res.Hourly))
	}
	if len(res.Periods) != 1 {
		t.Fatalf("expected 1 weekly bucket, got %d", len(res.Periods))
	}
	// Two full hours at load 40: est = 2·40·1 per hour.
	if got := res.Periods[0].GasUsageEstHourly; math.Abs(got-160) > 1e-9 {
		t.Fatalf("weekly estimate: got %v, want 160", got)
	}
}

func TestEstimationRun_BackgroundRunIsNotLogged(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSeriesSource{frame: runningFrame(start.Add(time.Minute), 60, 50)}
	prefs := &fakePrefs{prefs: models.ModelPrefs{ID: 1, DefaultK: 2, DefaultGasPrice: 0.5}}
	runs := &fakeRunRepo{}

	svc := newEstimationUnderTest(src, prefs, runs)

	_, err := svc.Run(context.Background(), EstimateRequest{
		Start: start, End: start.Add(time.Hour), Background: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runs.appended) != 0 {
		t.Fatalf("background runs must not hit the run log, got %d entries", len(runs.appended))
	}
}

func TestEstimationRun_RunLogFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSeriesSource{frame: runningFrame(start.Add(time.Minute), 60, 50)}
	prefs := &fakePrefs{prefs: models.ModelPrefs{ID: 1, DefaultK: 2, DefaultGasPrice: 0.5}}
	runs := &fakeRunRepo{appendErr: errors.New("log table locked")}

	svc := newEstimationUnderTest(src, prefs, runs)

	res, err := svc.Run(context.Background(), EstimateRequest{Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("a run-log failure must not fail the estimate: %v", err)
	}
	if len(res.Hourly) != 1 {
		t.Fatalf("expected 1 hourly row, got %d", len(res.Hourly))
	}
}

func TestEstimationRun_PrefsErrorPropagates(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prefs := &fakePrefs{getErr: errors.New("db down")}
	svc := newEstimationUnderTest(&fakeSeriesSource{}, prefs, &fakeRunRepo{})

	_, err := svc.Run(context.Background(), EstimateRequest{Start: start, End: start.Add(time.Hour)})
	if err == nil || !errors.Is(err, prefs.getErr) {
		t.Fatalf("expected the prefs error, got %v", err)
	}
}
