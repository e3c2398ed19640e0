package models

import (
	"math"
	"time"
)

// Channel names as stored in the series source (one unit per channel).
const (
	ChannelSRun           = "s_run"
	ChannelFan1SpeedHz    = "fan1_speed_hz"
	ChannelFan2SpeedHz    = "fan2_speed_hz"
	ChannelBurnerLoad     = "burner_load"
	ChannelBurnerTemp1    = "burner_temp1"
	ChannelBurnerTemp2    = "burner_temp2"
	ChannelBurnerTempSP   = "burner_temp_sp"
	ChannelBurnerDivPress = "burner_div_press"
)

// RuntimeStateChannels drive the operational flag and are used raw,
// bypassing all cleaning stages.
func RuntimeStateChannels() []string {
	return []string{ChannelSRun, ChannelFan1SpeedHz, ChannelFan2SpeedHz}
}

// BurnerModuleChannels receive the four-stage cleaning.
func BurnerModuleChannels() []string {
	return []string{
		ChannelBurnerLoad,
		ChannelBurnerTemp1,
		ChannelBurnerTemp2,
		ChannelBurnerTempSP,
		ChannelBurnerDivPress,
	}
}

// PipelineChannels is the full set fetched for one pipeline run.
func PipelineChannels() []string {
	return append(RuntimeStateChannels(), BurnerModuleChannels()...)
}

// MinuteFrame is a column-oriented table of one-minute samples.
// All columns share Times (minute-aligned, strictly increasing);
// a missing sample is NaN.
type MinuteFrame struct {
	Times   []time.Time
	Columns map[string][]float64
}

// NewMinuteFrame allocates a frame over the given timestamps with no columns.
func NewMinuteFrame(times []time.Time) *MinuteFrame {
	return &MinuteFrame{Times: times, Columns: make(map[string][]float64)}
}

// Len returns the number of minute rows.
func (f *MinuteFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Times)
}

// Empty reports whether the frame holds no rows.
func (f *MinuteFrame) Empty() bool {
	return f.Len() == 0
}

// Column returns the values for a channel, or false if the channel is absent.
func (f *MinuteFrame) Column(name string) ([]float64, bool) {
	if f == nil || f.Columns == nil {
		return nil, false
	}
	vals, ok := f.Columns[name]
	return vals, ok
}

// SetColumn stores a column; its length must match the frame's timestamps.
func (f *MinuteFrame) SetColumn(name string, vals []float64) {
	if f.Columns == nil {
		f.Columns = make(map[string][]float64)
	}
	f.Columns[name] = vals
}

// MissingColumn returns an all-NaN column of the frame's length.
func (f *MinuteFrame) MissingColumn() []float64 {
	vals := make([]float64, f.Len())
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}

// GasReading is one raw (ungrouped) gas-meter point.
type GasReading struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}
