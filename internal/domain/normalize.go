package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// epochMillisThreshold separates epoch seconds (at most 10 digits) from
// epoch milliseconds.
const epochMillisThreshold = 1e10

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// ParseRawRecord converts a feed record into an EarthquakeEvent. It never
// fails: every field goes through its tolerant normalization exactly once.
func ParseRawRecord(rec RawQuakeRecord) EarthquakeEvent {
	return EarthquakeEvent{
		Location:   strings.TrimSpace(rec.Location),
		Magnitude:  ParseMagnitude(rec.Level),
		DepthKm:    NormalizeDepth(rec.Depth),
		OccurredAt: ParseTimestamp(rec.CreatedAt),
		Lat:        ParseCoordinate(rec.Latitude),
		Lon:        ParseCoordinate(rec.Longitude),
	}
}

// ParseRawRecords converts a whole feed page, preserving order.
func ParseRawRecords(recs []RawQuakeRecord) []EarthquakeEvent {
	events := make([]EarthquakeEvent, len(recs))
	for i := range recs {
		events[i] = ParseRawRecord(recs[i])
	}
	return events
}

// ParseMagnitude coerces a magnitude to a number. Unparseable input yields
// NaN, which downstream computations propagate instead of rejecting.
func ParseMagnitude(v any) float64 {
	return coerceFloat(v)
}

// NormalizeDepth coerces a focal depth and replaces 0 or non-numeric values
// with DefaultDepthKm.
func NormalizeDepth(v any) float64 {
	d := coerceFloat(v)
	if !isFinite(d) || d == 0 {
		return DefaultDepthKm
	}
	return d
}

// ParseCoordinate coerces a latitude or longitude, returning 0 on failure.
func ParseCoordinate(v any) float64 {
	f := coerceFloat(v)
	if !isFinite(f) {
		return 0
	}
	return f
}

// ParseTimestamp interprets epoch seconds, epoch milliseconds or a calendar
// string (UTC+8 when no offset is given). It returns the zero time when the
// value is not usable.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case float64:
		if !isFinite(t) {
			return time.Time{}
		}
		return fromEpoch(int64(t))
	case int:
		return fromEpoch(int64(t))
	case int64:
		return fromEpoch(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpoch(n)
		}
		return ParseTimestamp(coerceFloat(t))
	case string:
		return parseTimestampString(t)
	default:
		return time.Time{}
	}
}

func parseTimestampString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpoch(n)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, Beijing); err == nil {
			return ts.In(Beijing)
		}
	}
	return time.Time{}
}

func fromEpoch(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n < epochMillisThreshold {
		return time.Unix(n, 0).In(Beijing)
	}
	return time.UnixMilli(n).In(Beijing)
}

// coerceFloat mirrors loose numeric coercion: empty strings are 0, anything
// unparseable is NaN.
func coerceFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
