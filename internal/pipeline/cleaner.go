package pipeline

import (
	"math"
	"sort"
	"strings"

	"gas_usage/internal/models"
)

// Cleaning thresholds. These come from the plant's historical cleaning
// scripts; their provenance is undocumented, so treat them as named
// configuration constants rather than derived values.
const (
	// MaxTempRatePerMinute is the largest plausible minute-to-minute
	// temperature change (°C/min); faster jumps are sensor glitches.
	MaxTempRatePerMinute = 5.0

	// MaxInterpolationRun bounds how many consecutive repaired minutes
	// may be filled by linear interpolation; longer gaps stay missing.
	MaxInterpolationRun = 3

	// DefaultCapPercentile / FanTempCapPercentile bound the empirical
	// percentile clamp of stage four. Fan-related temperature channels
	// legitimately spike, so they get the wider band.
	DefaultCapPercentile = 99.5
	FanTempCapPercentile = 99.9

	// CrossCheckMinCorrelation is the diagnostic threshold below which
	// the redundant temperature sensors are flagged as disagreeing.
	CrossCheckMinCorrelation = 0.9
)

// physicalLimits are the fixed valid ranges of stage one.
var physicalLimits = map[string][2]float64{
	models.ChannelBurnerLoad:     {0, 100},
	models.ChannelBurnerTemp1:    {0, 200},
	models.ChannelBurnerTemp2:    {0, 200},
	models.ChannelBurnerTempSP:   {0, 200},
	models.ChannelBurnerDivPress: {-10, 10},
}

// rateLimits lists the channels subject to rate-of-change repair (°C/min).
var rateLimits = map[string]float64{
	models.ChannelBurnerTemp1: MaxTempRatePerMinute,
	models.ChannelBurnerTemp2: MaxTempRatePerMinute,
}

// CleaningStats summarizes what each stage touched. Purely informational;
// cleaning anomalies are corrected locally and never raised as errors.
type CleaningStats struct {
	Clamped              map[string]int `json:"clamped,omitempty"`
	RateRepaired         map[string]int `json:"rate_repaired,omitempty"`
	Interpolated         map[string]int `json:"interpolated,omitempty"`
	Capped               map[string]int `json:"capped,omitempty"`
	TempCrossCorrelation *float64       `json:"temp_cross_correlation,omitempty"`
}

func newCleaningStats() CleaningStats {
	return CleaningStats{
		Clamped:      make(map[string]int),
		RateRepaired: make(map[string]int),
		Interpolated: make(map[string]int),
		Capped:       make(map[string]int),
	}
}

// CleanBurnerModule applies the four ordered correction stages to the
// burner-module columns of the frame and returns a new frame of identical
// length and timestamps. Runtime-state columns pass through unmodified;
// no row is ever inserted or removed.
func CleanBurnerModule(frame *models.MinuteFrame) (*models.MinuteFrame, CleaningStats) {
	stats := newCleaningStats()
	if frame.Empty() {
		return models.NewMinuteFrame(frame.Times), stats
	}

	out := models.NewMinuteFrame(frame.Times)
	for name, vals := range frame.Columns {
		out.SetColumn(name, append([]float64(nil), vals...))
	}

	for _, name := range models.BurnerModuleChannels() {
		vals, ok := out.Column(name)
		if !ok {
			continue
		}
		// Stage 1: physical clamp.
		if limit, ok := physicalLimits[name]; ok {
			stats.Clamped[name] = clampRange(vals, limit[0], limit[1])
		}
		// Stage 2: rate-of-change repair with bounded interpolation.
		if maxRate, ok := rateLimits[name]; ok {
			repaired := blankRateViolations(vals, maxRate)
			if repaired > 0 {
				stats.RateRepaired[name] = repaired
				stats.Interpolated[name] = interpolateGaps(vals, MaxInterpolationRun)
			}
		}
	}

	// Stage 3: cross-validation of the redundant temperature sensors.
	// Diagnostic only: never alters a value.
	if t1, ok1 := out.Column(models.ChannelBurnerTemp1); ok1 {
		if t2, ok2 := out.Column(models.ChannelBurnerTemp2); ok2 {
			if corr, ok := pearson(t1, t2); ok {
				stats.TempCrossCorrelation = &corr
			}
		}
	}

	// Stage 4: empirical percentile capping over the requested period.
	for _, name := range models.BurnerModuleChannels() {
		vals, ok := out.Column(name)
		if !ok {
			continue
		}
		stats.Capped[name] = capPercentiles(vals, capPercentileFor(name))
	}

	return out, stats
}

// capPercentileFor returns the upper percentile bound for a channel.
// Fan-related temperature channels use the wider band.
func capPercentileFor(name string) float64 {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "fan") && strings.Contains(lower, "temp") {
		return FanTempCapPercentile
	}
	return DefaultCapPercentile
}

// clampRange clips values into [lo, hi] in place and returns how many
// samples changed. NaN samples are left alone.
func clampRange(vals []float64, lo, hi float64) int {
	n := 0
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		switch {
		case v < lo:
			vals[i] = lo
			n++
		case v > hi:
			vals[i] = hi
			n++
		}
	}
	return n
}

// blankRateViolations replaces samples whose minute-to-minute delta exceeds
// maxRate with NaN and returns the number blanked. Every delta is judged
// against the raw input, not against already-blanked neighbors; deltas
// across missing samples are not evaluated.
func blankRateViolations(vals []float64, maxRate float64) int {
	raw := append([]float64(nil), vals...)
	n := 0
	for i := 1; i < len(raw); i++ {
		if math.IsNaN(raw[i]) || math.IsNaN(raw[i-1]) {
			continue
		}
		if math.Abs(raw[i]-raw[i-1]) > maxRate {
			vals[i] = math.NaN()
			n++
		}
	}
	return n
}

// interpolateGaps fills NaN runs of at most maxRun samples in place and
// returns the number of samples filled. Interior gaps are linearly
// interpolated between their anchors; gaps touching the series edge take
// the nearest valid value. Longer gaps remain missing.
func interpolateGaps(vals []float64, maxRun int) int {
	filled := 0
	i := 0
	for i < len(vals) {
		if !math.IsNaN(vals[i]) {
			i++
			continue
		}
		start := i
		for i < len(vals) && math.IsNaN(vals[i]) {
			i++
		}
		run := i - start
		if run > maxRun {
			continue
		}
		hasLeft := start > 0
		hasRight := i < len(vals)
		switch {
		case hasLeft && hasRight:
			left := vals[start-1]
			right := vals[i]
			step := (right - left) / float64(run+1)
			for j := 0; j < run; j++ {
				vals[start+j] = left + step*float64(j+1)
			}
		case hasLeft:
			for j := 0; j < run; j++ {
				vals[start+j] = vals[start-1]
			}
		case hasRight:
			for j := 0; j < run; j++ {
				vals[start+j] = vals[i]
			}
		default:
			continue // all-NaN series, nothing to anchor on
		}
		filled += run
	}
	return filled
}

// capPercentiles clips vals into their own empirical
// [100-upperPct, upperPct] percentile range and returns the number of
// samples changed. No-op when fewer than two finite samples exist.
func capPercentiles(vals []float64, upperPct float64) int {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) < 2 {
		return 0
	}
	sort.Float64s(finite)
	lo := quantile(finite, (100-upperPct)/100)
	hi := quantile(finite, upperPct/100)
	return clampRange(vals, lo, hi)
}

// quantile computes the q-th quantile (0..1) of sorted values using
// linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	idx := int(math.Floor(pos))
	if idx >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(idx)
	return sorted[idx] + frac*(sorted[idx+1]-sorted[idx])
}

// pearson computes the correlation of two series over minutes where both
// are present. Returns false when fewer than two pairs exist or either
// side has no variance.
func pearson(a, b []float64) (float64, bool) {
	var n float64
	var sumA, sumB float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		n++
		sumA += a[i]
		sumB += b[i]
	}
	if n < 2 {
		return 0, false
	}
	meanA := sumA / n
	meanB := sumB / n
	var cov, varA, varB float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varA*varB), true
}
