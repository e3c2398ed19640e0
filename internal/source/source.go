package source

import (
	"context"
	"errors"
	"time"

	"gas_usage/internal/models"
)

// ErrUnavailable marks transport-level failures talking to the series
// store. Surfaced to the caller unmodified; the core never retries.
var ErrUnavailable = errors.New("series source unavailable")

// RawSeriesSource supplies raw per-minute readings for named channels over
// [start, end) and raw (ungrouped) gas-meter readings. Implementations
// must be safe for concurrent reads; both calls block until the full range
// is materialized.
type RawSeriesSource interface {
	FetchMinutely(ctx context.Context, channels []string, start, end time.Time) (*models.MinuteFrame, error)
	FetchGasRaw(ctx context.Context, start, end time.Time) ([]models.GasReading, error)
}
