package domain

import "time"

// Beijing is the fixed UTC+8 zone every calendar computation uses.
var Beijing = time.FixedZone("UTC+8", 8*60*60)

// DefaultDepthKm replaces an unknown (0 or non-numeric) focal depth.
const DefaultDepthKm = 10.0

// RawQuakeRecord is one record of the upstream JSON feed. Numeric fields are
// kept untyped because the feed emits them as numbers or strings.
type RawQuakeRecord struct {
	Location  string `json:"location"`
	Level     any    `json:"level"`
	Depth     any    `json:"depth"`
	CreatedAt any    `json:"created_at"`
	Latitude  any    `json:"latitude"`
	Longitude any    `json:"longitude"`
}

// EarthquakeEvent is a normalized report. OccurredAt is zero when the feed had
// no usable timestamp.
type EarthquakeEvent struct {
	Location   string    `json:"location"`
	Magnitude  float64   `json:"magnitude"`
	DepthKm    float64   `json:"depth_km"`
	OccurredAt time.Time `json:"occurred_at"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
}

// HasTimestamp reports whether the event can be placed on the calendar.
func (e EarthquakeEvent) HasTimestamp() bool {
	return !e.OccurredAt.IsZero()
}

// IsoseismalRing is a contour of constant estimated intensity around an epicenter.
type IsoseismalRing struct {
	Level    int     `json:"level"`
	RadiusKm float64 `json:"radius_km"`
	Color    string  `json:"color"`
}

// Point is a WGS-84 coordinate in map (lon, lat) order.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Polygon is a closed ring of points: the first and last points are equal.
type Polygon []Point

// RingOverlay pairs a ring with the polygon that draws it.
type RingOverlay struct {
	Ring    IsoseismalRing `json:"ring"`
	Polygon Polygon        `json:"polygon"`
}

// HistoricalQuake is a record of the static historical catalog. Depth may be
// a number or the string "不明" (unknown).
type HistoricalQuake struct {
	Epicenter string `json:"epicenter"`
	Magnitude any    `json:"magnitude"`
	Depth     any    `json:"depth"`
	Lat       any    `json:"lat"`
	Lng       any    `json:"lng"`
	Time      string `json:"time"`
}
