package noaa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

var errNoRows = errors.New("feed returned no data rows")

// SWPC timestamps are UTC without a zone designator.
var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseTimeTag(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time tag %q", s)
}

// The products are published either as a header row followed by positional
// string rows, or as an array of keyed objects. Both are accepted.
func decodeRows(body []byte, columns []string) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	first := bytes.TrimSpace(raw[0])
	if len(first) > 0 && first[0] == '{' {
		rows := make([]map[string]any, 0, len(raw))
		for _, r := range raw {
			var m map[string]any
			if err := json.Unmarshal(r, &m); err != nil {
				return nil, fmt.Errorf("decode row: %w", err)
			}
			rows = append(rows, m)
		}
		return rows, nil
	}

	// Positional form: first row is the header.
	rows := make([]map[string]any, 0, len(raw)-1)
	for _, r := range raw[1:] {
		var cells []any
		if err := json.Unmarshal(r, &cells); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		m := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				m[col] = cells[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// cell returns the first present value among keys, matching case-insensitively.
func cell(row map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	for _, k := range keys {
		for rk, v := range row {
			if strings.EqualFold(rk, k) && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

var kpColumns = []string{"time_tag", "kp", "a_running", "station_count"}

// parseLatestKp parses only the final row, which is the current reading.
// Earlier rows are not inspected.
func parseLatestKp(body []byte) (domain.KpSample, error) {
	rows, err := decodeRows(body, kpColumns)
	if err != nil {
		return domain.KpSample{}, err
	}
	if len(rows) == 0 {
		return domain.KpSample{}, errNoRows
	}
	last := len(rows) - 1
	s, err := parseKpRow(rows[last])
	if err != nil {
		return domain.KpSample{}, fmt.Errorf("row %d: %w", last, err)
	}
	return s, nil
}

// parseKpSeries parses every row, skipping rows that cannot be read. The
// returned errors describe the skipped rows.
func parseKpSeries(body []byte) ([]domain.KpSample, []error, error) {
	rows, err := decodeRows(body, kpColumns)
	if err != nil {
		return nil, nil, err
	}

	samples := make([]domain.KpSample, 0, len(rows))
	var skipped []error
	for i, row := range rows {
		s, err := parseKpRow(row)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped, nil
}

func parseKpRow(row map[string]any) (domain.KpSample, error) {
	tag, ok := cell(row, "time_tag")
	if !ok {
		return domain.KpSample{}, errors.New("missing time_tag")
	}
	observed, err := parseTimeTag(toString(tag))
	if err != nil {
		return domain.KpSample{}, err
	}

	kpCell, ok := cell(row, "kp", "Kp")
	if !ok {
		return domain.KpSample{}, fmt.Errorf("%w: missing kp", domain.ErrInvalidReading)
	}
	kp, err := toFloat(kpCell)
	if err != nil || math.IsNaN(kp) {
		return domain.KpSample{}, fmt.Errorf("%w: %v", domain.ErrInvalidReading, err)
	}

	s := domain.KpSample{KpReading: domain.KpReading{Value: kp, ObservedAt: observed}}
	if v, ok := cell(row, "a_running"); ok {
		s.ARunning, _ = toFloat(v)
	}
	if v, ok := cell(row, "station_count"); ok {
		n, _ := toFloat(v)
		s.StationCount = int(n)
	}
	return s, nil
}

func parseForecast(body []byte) ([]domain.KpForecast, error) {
	rows, err := decodeRows(body, []string{"time_tag", "kp", "observed", "noaa_scale"})
	if err != nil {
		return nil, err
	}

	out := make([]domain.KpForecast, 0, len(rows))
	for i, row := range rows {
		status := domain.ForecastStatus(strings.ToLower(toString(first(row, "observed"))))
		if status != domain.ForecastEstimated && status != domain.ForecastPredicted {
			continue
		}

		tag, err := parseTimeTag(toString(first(row, "time_tag")))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		kpCell, ok := cell(row, "kp", "Kp")
		if !ok {
			return nil, fmt.Errorf("row %d: missing kp", i)
		}
		kp, err := toFloat(kpCell)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		out = append(out, domain.KpForecast{
			TimeTag:   tag,
			Kp:        kp,
			Status:    status,
			NOAAScale: toString(first(row, "noaa_scale")),
		})
	}
	return out, nil
}

func first(row map[string]any, key string) any {
	v, _ := cell(row, key)
	return v
}
