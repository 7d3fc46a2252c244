package domain

import "math"

const (
	// EarthRadiusKm is the mean radius of the spherical earth model.
	EarthRadiusKm = 6371.0

	// DefaultCircleSegments is the number of segments used when none is given.
	DefaultCircleSegments = 70
)

// CirclePolygon approximates the geodesic circle of radiusKm around
// (centerLat, centerLon) with segments+1 points in (lon, lat) order. The last
// point is always equal to the first, so the ring is closed regardless of
// floating-point drift. Longitudes are unwrapped against the previous point
// and normalized into [-180, 180).
func CirclePolygon(centerLat, centerLon, radiusKm float64, segments int) Polygon {
	if segments <= 0 {
		segments = DefaultCircleSegments
	}

	lat1 := toRadians(centerLat)
	lon1 := toRadians(centerLon)
	angular := radiusKm / EarthRadiusKm

	sinLat1, cosLat1 := math.Sin(lat1), math.Cos(lat1)
	sinAng, cosAng := math.Sin(angular), math.Cos(angular)

	points := make(Polygon, 0, segments+1)
	var prevLon float64
	for i := 0; i <= segments; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(segments)

		lat2 := math.Asin(sinLat1*cosAng + cosLat1*sinAng*math.Cos(bearing))
		lon2 := lon1 + math.Atan2(
			math.Sin(bearing)*sinAng*cosLat1,
			cosAng-sinLat1*math.Sin(lat2),
		)

		lat := clamp(toDegrees(lat2), -90, 90)
		lon := toDegrees(lon2)
		if i > 0 {
			switch delta := lon - prevLon; {
			case delta > 180:
				lon -= 360
			case delta < -180:
				lon += 360
			}
		}
		lon = normalizeLongitude(lon)

		points = append(points, Point{Lon: lon, Lat: lat})
		prevLon = lon
	}

	points[len(points)-1] = points[0]
	return points
}

// normalizeLongitude maps any longitude into [-180, 180).
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	// lon+360 can round up to exactly 360 for tiny negative values.
	if lon >= 360 {
		lon -= 360
	}
	return lon - 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
