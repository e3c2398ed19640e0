package pipeline

import (
	"math"

	"gas_usage/internal/models"
)

// OperationalFlags derives the per-minute running flag from the raw
// runtime-state channels: s_run > 0 AND fan1 > 0 AND fan2 > 0. It must be
// fed the uncleaned frame; operational status reflects actual equipment
// state, not sensor-corrected load. A missing sample counts as not
// running. When s_run is present, an absent fan channel does not
// constrain the flag (a fan may simply not be wired). When s_run itself
// is absent, it is reconstructed as fan1 AND fan2, and a missing fan
// reconstructs to "off": with no runtime channel at all, nothing proves
// the burner ran, so every minute is non-operational.
func OperationalFlags(frame *models.MinuteFrame) []bool {
	flags := make([]bool, frame.Len())

	sRun, hasSRun := frame.Column(models.ChannelSRun)
	fan1, hasFan1 := frame.Column(models.ChannelFan1SpeedHz)
	fan2, hasFan2 := frame.Column(models.ChannelFan2SpeedHz)

	if !hasSRun && !(hasFan1 && hasFan2) {
		return flags
	}

	on := func(vals []float64, i int) bool {
		return !math.IsNaN(vals[i]) && vals[i] > 0
	}
	for i := range flags {
		running := true
		if hasSRun {
			running = on(sRun, i)
		}
		if running && hasFan1 {
			running = on(fan1, i)
		}
		if running && hasFan2 {
			running = on(fan2, i)
		}
		flags[i] = running
	}
	return flags
}
