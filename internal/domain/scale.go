package domain

import (
	"fmt"
	"math"
)

// ceilKp rounds a Kp value up to the whole step used by the NOAA G-scale.
func ceilKp(kp float64) int {
	return int(math.Ceil(kp))
}

// ColorForKp returns the dashboard hex color for a Kp value. NaN maps to gray.
func ColorForKp(kp float64) string {
	if math.IsNaN(kp) {
		return "gray"
	}
	switch k := ceilKp(kp); {
	case k < 5:
		return "#00b050"
	case k == 5:
		return "#ffff00"
	case k == 6:
		return "#ffc000"
	case k == 7:
		return "#ff0000"
	case k == 8 || k == 9:
		return "#7f0000"
	default:
		return "#3f3f3f"
	}
}

// NOAAScale maps Kp onto the NOAA geomagnetic storm scale (G0–G5).
func NOAAScale(kp float64) string {
	switch k := ceilKp(kp); {
	case k < 5:
		return "G0"
	case k >= 5 && k <= 9:
		return fmt.Sprintf("G%d", k-4)
	default:
		return "Unknown"
	}
}

// StormDescription returns a human-readable label for a Kp value.
func StormDescription(kp float64) string {
	switch NOAAScale(kp) {
	case "G0":
		return "No geomagnetic storm"
	case "G1":
		return "Minor geomagnetic storm (G1)"
	case "G2":
		return "Moderate geomagnetic storm (G2)"
	case "G3":
		return "Strong geomagnetic storm (G3)"
	case "G4":
		return "Severe geomagnetic storm (G4)"
	case "G5":
		return "Extreme geomagnetic storm (G5)"
	default:
		return "Unknown"
	}
}

// IsStormCondition reports whether kp is at or above the G1 storm level.
func IsStormCondition(kp float64) bool {
	return kp >= StormKp
}

// ActiveStorm reports whether any of the four most recent samples is at
// storm level. Samples must be in chronological order.
func ActiveStorm(samples []KpSample) bool {
	start := len(samples) - 4
	if start < 0 {
		start = 0
	}
	for _, s := range samples[start:] {
		if IsStormCondition(s.Value) {
			return true
		}
	}
	return false
}

// AuroraVisibilityLatitude approximates the lowest geomagnetic latitude at
// which aurora may be seen: ~70° at Kp 1 falling to a floor of 40°.
func AuroraVisibilityLatitude(kp float64) float64 {
	return math.Max(40, 70-(kp-1)*3.75)
}

// AuroraVisibility describes whether aurora may be visible from latitude
// (positive north, negative south) at the given Kp.
func AuroraVisibility(kp, latitude float64) (bool, string) {
	abs := math.Abs(latitude)
	limit := AuroraVisibilityLatitude(kp)
	if abs >= limit {
		return true, fmt.Sprintf("Aurora may be visible at your latitude (%.1f°)", abs)
	}
	return false, fmt.Sprintf("Aurora is unlikely to be visible at your latitude (%.1f°). "+
		"Typically visible above %.1f° during current conditions.", abs, limit)
}
