package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

func sampleAt(v float64, hour int) domain.KpSample {
	return domain.KpSample{KpReading: domain.KpReading{Value: v, ObservedAt: time.Date(2024, 5, 10, hour, 0, 0, 0, time.UTC)}}
}

func TestPrintStatus(t *testing.T) {
	series := []domain.KpSample{sampleAt(4, 9), sampleAt(5.67, 12), sampleAt(7.67, 15), sampleAt(8.67, 18)}
	forecast := []domain.KpForecast{
		{TimeTag: time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC), Kp: 8.33, Status: domain.ForecastEstimated, NOAAScale: "G4"},
		{TimeTag: time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), Kp: 6, Status: domain.ForecastPredicted},
	}
	alerts := []domain.SpaceWeatherAlert{
		{ProductID: "K07A", IssueDatetime: "2024-05-10 17:40:01.283", Message: "Space Weather Message Code: ALTK07\r\nSerial Number: 1"},
		{ProductID: "K06A", IssueDatetime: "2024-05-10 16:00:00.000", Message: "older"},
	}
	lat := 52.2

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, series, forecast, alerts, &lat, 1))
	out := buf.String()

	assert.Contains(t, out, "8.67 (observed 2024-05-10T18:00:00Z)")
	assert.Contains(t, out, "G5, Extreme geomagnetic storm (G5)")
	assert.Contains(t, out, "Active storm:")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "Aurora may be visible at your latitude (52.2°)")
	assert.Contains(t, out, "May 11 00:00  6")
	assert.Contains(t, out, "G2")
	assert.Contains(t, out, "Space Weather Message Code: ALTK07")
	assert.NotContains(t, out, "Serial Number")
	assert.NotContains(t, out, "older")
}

func TestPrintStatus_NoExtras(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, []domain.KpSample{sampleAt(2.33, 3)}, nil, nil, nil, 3))
	out := buf.String()

	assert.Contains(t, out, "G0, No geomagnetic storm")
	assert.NotContains(t, out, "Forecast")
	assert.NotContains(t, out, "SWPC alerts")
	assert.NotContains(t, out, "At ")
}
