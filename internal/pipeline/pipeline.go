package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"gas_usage/internal/logger"
	"gas_usage/internal/models"
	"gas_usage/internal/source"
)

// Config are the immutable per-run parameters of one pipeline invocation.
type Config struct {
	Start time.Time
	End   time.Time
	Mode  Mode
	// GasMeterOffset shifts meter timestamps before they are matched to
	// hour labels (meter recording convention vs pipeline labels).
	GasMeterOffset time.Duration
}

// Stats summarizes one invocation for logs and run responses.
type Stats struct {
	MinuteRows int            `json:"minute_rows"`
	Points     map[string]int `json:"points,omitempty"` // finite samples per channel
	Cleaning   CleaningStats  `json:"cleaning"`
	Hours      int            `json:"hours"`
	GasPoints  int            `json:"gas_points"`
	GasMatched int            `json:"gas_matched"`
}

// Pipeline sequences fetch → clean → classify → aggregate → attach gas.
// One invocation processes one bounded range to completion; no state is
// shared between invocations, so concurrent calls are safe as long as the
// source tolerates concurrent reads.
type Pipeline struct {
	src source.RawSeriesSource
	log *logger.Logger
}

// New builds a pipeline over the given source. log may be nil in tests.
func New(src source.RawSeriesSource, log *logger.Logger) *Pipeline {
	return &Pipeline{src: src, log: log}
}

// Run executes the stage chain for cfg. An empty fetch yields an empty
// hourly table, not an error, so callers can render "no data". Estimation
// and calibration share every stage except the aggregation filter.
func (p *Pipeline) Run(ctx context.Context, cfg Config) ([]models.HourlyRow, Stats, error) {
	var stats Stats
	if !cfg.Start.Before(cfg.End) {
		return nil, stats, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidConfig, cfg.Start.Format(time.RFC3339), cfg.End.Format(time.RFC3339))
	}

	raw, err := p.src.FetchMinutely(ctx, models.PipelineChannels(), cfg.Start, cfg.End)
	if err != nil {
		return nil, stats, err
	}
	if raw.Empty() {
		p.logw("pipeline_empty_range", "start", cfg.Start, "end", cfg.End)
		return []models.HourlyRow{}, stats, nil
	}
	stats.MinuteRows = raw.Len()
	stats.Points = countFinite(raw)

	cleaned, cleaningStats := CleanBurnerModule(raw)
	stats.Cleaning = cleaningStats
	if c := cleaningStats.TempCrossCorrelation; c != nil && *c < CrossCheckMinCorrelation {
		p.logw("burner_temp_sensors_disagree", "correlation", *c)
	}

	// Operational status comes from the raw frame on purpose: it reflects
	// actual equipment state, not sensor-corrected load.
	flags := OperationalFlags(raw)

	load, ok := cleaned.Column(models.ChannelBurnerLoad)
	if !ok {
		load = cleaned.MissingColumn()
	}
	rows := AggregateHourly(cleaned.Times, load, flags, cfg.Mode)
	stats.Hours = len(rows)

	gas, err := p.src.FetchGasRaw(ctx, cfg.Start, cfg.End)
	if err != nil {
		return nil, stats, err
	}
	stats.GasPoints = len(gas)
	rows = AttachGas(rows, gas, cfg.GasMeterOffset)
	for _, row := range rows {
		if row.GasMeasured != nil {
			stats.GasMatched++
		}
	}

	p.logw("pipeline_done",
		"mode", cfg.Mode,
		"minute_rows", stats.MinuteRows,
		"hours", stats.Hours,
		"gas_matched", stats.GasMatched,
	)
	return rows, stats, nil
}

func (p *Pipeline) logw(msg string, kv ...interface{}) {
	if p.log != nil {
		p.log.Infow(msg, kv...)
	}
}

func countFinite(frame *models.MinuteFrame) map[string]int {
	counts := make(map[string]int, len(frame.Columns))
	for name, vals := range frame.Columns {
		n := 0
		for _, v := range vals {
			if !math.IsNaN(v) {
				n++
			}
		}
		counts[name] = n
	}
	return counts
}
