package service

import (
	"context"
	"time"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
)

// RefresherService periodically re-estimates the trailing window and
// publishes the result to the snapshot cache.
type RefresherService struct {
	est      Estimation
	cache    *snapshotCache
	defaults Defaults
	log      *logger.Logger
	now      func() time.Time // swappable for tests
}

func NewRefresherService(est Estimation, cache *snapshotCache, defaults Defaults, log *logger.Logger) *RefresherService {
	return &RefresherService{
		est:      est,
		cache:    cache,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
}

// Run ticks at the given interval until ctx is canceled. The first
// refresh happens immediately so websocket clients don't wait a full
// tick for data.
func (s *RefresherService) Run(ctx context.Context, tick time.Duration) {
	s.refresh(ctx)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefresherService) refresh(ctx context.Context) {
	now := s.now().UTC().Truncate(time.Minute)
	start := now.Add(-s.defaults.RefreshWindow)

	res, err := s.est.Run(ctx, EstimateRequest{Start: start, End: now, Background: true})
	if err != nil {
		if s.log != nil {
			s.log.Warnw("snapshot_refresh_failed", "err", err)
		}
		return
	}

	s.cache.store(buildSnapshot(now, start, res, s.defaults.SnapshotHours))
}

// buildSnapshot totals the hourly rows and keeps only the most recent
// maxHours of them for the wire payload.
func buildSnapshot(generatedAt, windowStart time.Time, res EstimateResult, maxHours int) models.EstimateSnapshot {
	snap := models.EstimateSnapshot{
		GeneratedAt: generatedAt,
		WindowStart: windowStart,
		WindowEnd:   generatedAt,
		K:           res.K,
		GasPrice:    res.GasPrice,
		Hours:       len(res.Hourly),
	}
	for _, r := range res.Hourly {
		snap.OperationalMinutes += r.OperationalMinutes
		snap.GasUsageEstTotal += r.GasUsageEstHourly
		snap.CostTotal += r.CostHourly
	}
	rows := res.Hourly
	if maxHours > 0 && len(rows) > maxHours {
		rows = rows[len(rows)-maxHours:]
	}
	snap.LatestHours = rows
	return snap
}
