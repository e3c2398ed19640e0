package service

import (
	"context"
	"errors"
	"sync"

	"gas_usage/internal/models"
)

// ErrSnapshotNotReady is returned before the refresher has produced its
// first estimation of the trailing window.
var ErrSnapshotNotReady = errors.New("snapshot not ready yet")

// snapshotCache holds the latest trailing-window estimate for readers.
type snapshotCache struct {
	mu    sync.RWMutex
	snap  models.EstimateSnapshot
	ready bool
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{}
}

func (c *snapshotCache) store(s models.EstimateSnapshot) {
	c.mu.Lock()
	c.snap = s
	c.ready = true
	c.mu.Unlock()
}

func (c *snapshotCache) load() (models.EstimateSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.ready
}

type MonitoringService struct {
	cache *snapshotCache
}

func NewMonitoringService(cache *snapshotCache) *MonitoringService {
	return &MonitoringService{cache: cache}
}

// Snapshot returns the latest cached trailing-window estimate.
func (s *MonitoringService) Snapshot(_ context.Context) (models.EstimateSnapshot, error) {
	snap, ok := s.cache.load()
	if !ok {
		return models.EstimateSnapshot{}, ErrSnapshotNotReady
	}
	return snap, nil
}
