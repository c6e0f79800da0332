package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	// MinKp and MaxKp bound the usable planetary K-index range.
	MinKp = 0.0
	MaxKp = 9.0

	// StormKp is the Kp value at which NOAA declares a G1 geomagnetic storm.
	StormKp = 5.0
)

// KpReading is a single planetary Kp observation.
type KpReading struct {
	Value      float64   `json:"kp"`
	ObservedAt time.Time `json:"observed_at"`
}

// Validate reports ErrInvalidReading when the value is NaN, infinite, or
// outside [MinKp, MaxKp].
func (r KpReading) Validate() error {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("%w: non-numeric value", ErrInvalidReading)
	}
	if r.Value < MinKp || r.Value > MaxKp {
		return fmt.Errorf("%w: %.2f outside [%g, %g]", ErrInvalidReading, r.Value, MinKp, MaxKp)
	}
	return nil
}

// KpSample is one row of the planetary K-index series.
type KpSample struct {
	KpReading
	ARunning     float64 `json:"a_running"`
	StationCount int     `json:"station_count"`
}

// ForecastStatus distinguishes observed rows from model output in the forecast product.
type ForecastStatus string

const (
	ForecastObserved  ForecastStatus = "observed"
	ForecastEstimated ForecastStatus = "estimated"
	ForecastPredicted ForecastStatus = "predicted"
)

// KpForecast is one 3-hour slot of the planetary K-index forecast.
type KpForecast struct {
	TimeTag   time.Time      `json:"time_tag"`
	Kp        float64        `json:"kp"`
	Status    ForecastStatus `json:"status"`
	NOAAScale string         `json:"noaa_scale"`
}

// SpaceWeatherAlert is a bulletin from the SWPC alerts product.
type SpaceWeatherAlert struct {
	ProductID     string `json:"product_id"`
	IssueDatetime string `json:"issue_datetime"`
	Message       string `json:"message"`
}
