package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gas_usage/internal/models"
)

// fakeEstimation satisfies the Estimation interface for refresher tests.
type fakeEstimation struct {
	res           EstimateResult
	err           error
	gotStart      time.Time
	gotEnd        time.Time
	gotBackground bool
	calls         int
}

func (f *fakeEstimation) Run(ctx context.Context, req EstimateRequest) (EstimateResult, error) {
	f.calls++
	f.gotStart = req.Start
	f.gotEnd = req.End
	f.gotBackground = req.Background
	return f.res, f.err
}

func TestMonitoringSnapshot_NotReadyBeforeFirstRefresh(t *testing.T) {
	t.Parallel()

	svc := NewMonitoringService(newSnapshotCache())

	_, err := svc.Snapshot(context.Background())
	if !errors.Is(err, ErrSnapshotNotReady) {
		t.Fatalf("expected ErrSnapshotNotReady, got %v", err)
	}
}

func TestMonitoringSnapshot_ReturnsStoredValue(t *testing.T) {
	t.Parallel()

	cache := newSnapshotCache()
	want := models.EstimateSnapshot{K: 7.97, Hours: 24}
	cache.store(want)

	svc := NewMonitoringService(cache)

	got, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.K != want.K || got.Hours != want.Hours {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestRefresherRefresh_PublishesTotalsAndTrailingWindow(t *testing.T) {
	t.Parallel()

	hourly := []models.HourlyRow{
		{HourEnd: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), OperationalMinutes: 60, GasUsageEstHourly: 100, CostHourly: 80},
		{HourEnd: time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), OperationalMinutes: 30, GasUsageEstHourly: 50, CostHourly: 40},
		{HourEnd: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), OperationalMinutes: 0, GasUsageEstHourly: 0, CostHourly: 0},
	}
	est := &fakeEstimation{res: EstimateResult{K: 2, GasPrice: 0.8, Hourly: hourly}}
	cache := newSnapshotCache()

	now := time.Date(2024, 3, 1, 15, 0, 30, 0, time.UTC)
	svc := NewRefresherService(est, cache, Defaults{RefreshWindow: 24 * time.Hour, SnapshotHours: 2}, nil)
	svc.now = func() time.Time { return now }

	svc.refresh(context.Background())

	snap, ok := cache.load()
	if !ok {
		t.Fatalf("expected a published snapshot")
	}
	if snap.Hours != 3 || snap.OperationalMinutes != 90 {
		t.Fatalf("unexpected totals: %+v", snap)
	}
	if math.Abs(snap.GasUsageEstTotal-150) > 1e-9 || math.Abs(snap.CostTotal-120) > 1e-9 {
		t.Fatalf("unexpected sums: est=%v cost=%v", snap.GasUsageEstTotal, snap.CostTotal)
	}
	if len(snap.LatestHours) != 2 || !snap.LatestHours[0].HourEnd.Equal(hourly[1].HourEnd) {
		t.Fatalf("expected the 2 most recent hours, got %+v", snap.LatestHours)
	}

	// The requested window is the trailing RefreshWindow, minute aligned.
	wantEnd := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	if !est.gotEnd.Equal(wantEnd) || !est.gotStart.Equal(wantEnd.Add(-24*time.Hour)) {
		t.Fatalf("unexpected window: %v .. %v", est.gotStart, est.gotEnd)
	}
	if !snap.GeneratedAt.Equal(wantEnd) || !snap.WindowEnd.Equal(wantEnd) {
		t.Fatalf("unexpected snapshot timestamps: %+v", snap)
	}
	if !est.gotBackground {
		t.Fatal("refresher runs must be marked background")
	}
}

func TestRefresherRefresh_KeepsLastSnapshotOnError(t *testing.T) {
	t.Parallel()

	cache := newSnapshotCache()
	cache.store(models.EstimateSnapshot{K: 7.97})

	est := &fakeEstimation{err: errors.New("historian down")}
	svc := NewRefresherService(est, cache, Defaults{RefreshWindow: time.Hour}, nil)

	svc.refresh(context.Background())

	snap, ok := cache.load()
	if !ok || snap.K != 7.97 {
		t.Fatalf("a failed refresh must not clobber the cache, got %+v ok=%v", snap, ok)
	}
}

func TestRefresherRun_RefreshesImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	est := &fakeEstimation{res: EstimateResult{K: 2, GasPrice: 0.8}}
	cache := newSnapshotCache()
	svc := NewRefresherService(est, cache, Defaults{RefreshWindow: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()

	// The first refresh happens before the first tick.
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := cache.load(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no snapshot published before the first tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	if est.calls != 1 {
		t.Fatalf("expected exactly the immediate refresh, got %d calls", est.calls)
	}
}
