// Package domain models planetary Kp readings, alert subscribers, and the
// decision rules that gate geomagnetic storm notifications.
//
// # Data Source
//
// Kp readings come from the NOAA Space Weather Prediction Center (SWPC)
// products feed at https://services.swpc.noaa.gov/products/. The planetary
// K-index product is a JSON array of arrays: a header row followed by data
// rows of strings:
//
//	["time_tag", "kp", "a_running", "station_count"]
//	["2024-05-10 21:00:00.000", "8.67", "207", "8"]
//
// The last row is the current reading. Time tags are UTC without a zone
// suffix. The forecast product uses the same layout with an "observed"
// column ("observed", "estimated", "predicted") and a NOAA G-scale column.
//
// # Kp Conventions
//
// Kp is a quasi-logarithmic 0–9 scale published in thirds (0, 0.33, 0.67, ...).
// Values at or above 5 indicate storm conditions and map onto the NOAA
// geomagnetic storm scale by rounding up:
//
//	Kp < 5  G0 (none)
//	Kp 5    G1 (minor)
//	Kp 6    G2 (moderate)
//	Kp 7    G3 (strong)
//	Kp 8    G4 (severe)
//	Kp 9    G5 (extreme)
//
// A reading outside [0, 9] or a non-numeric value is never treated as a zero
// reading; it is rejected with [ErrInvalidReading].
//
// # Alert Decisions
//
// Each subscriber carries a threshold (default 5) and the time of the last
// notification sent to them. [Decide] checks, in order: threshold met,
// contact address present, cooldown elapsed. The cooldown is time-based; it is
// not reset when Kp drops back below the threshold.
//
// In-app viewers use [ThresholdLatch] instead, which fires once per upward
// crossing and re-arms when Kp falls below the threshold.
package domain
