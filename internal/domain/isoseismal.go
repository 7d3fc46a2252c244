package domain

import "math"

// intensityPalette colors intensity levels 1..12; higher levels reuse the last entry.
var intensityPalette = [...]string{
	"#E3F2FD", "#00BCD4", "#2ECC71", "#6AB045",
	"#B8C400", "#FFB300", "#FF8C00", "#FF4500",
	"#D60000", "#B40000", "#9D00FF", "#800080",
}

// ringLevelSpan is how many levels below the maximum intensity rings are drawn for.
const ringLevelSpan = 8

// IsoseismalRings returns the rings of an event ordered outer to inner:
// largest radius (lowest level) first, so inner rings draw on top. Radii
// shrink as the level rises, so ascending levels already give that order.
//
// The maximum intensity uses depthKm as given; the radius inversion clamps the
// depth to at least DefaultDepthKm. The two depth rules are intentionally
// separate.
func IsoseismalRings(magnitude, depthKm float64) []IsoseismalRing {
	maxI := MaxIntensity(magnitude, depthKm)
	if !isFinite(maxI) {
		return []IsoseismalRing{}
	}

	start := max(1, int(math.Ceil(maxI-ringLevelSpan)))
	end := int(math.Ceil(maxI))
	if end < start {
		return []IsoseismalRing{}
	}

	rings := make([]IsoseismalRing, 0, end-start+1)
	for level := start; level <= end; level++ {
		rings = append(rings, IsoseismalRing{
			Level:    level,
			RadiusKm: IsoseismalRadius(level, magnitude, depthKm),
			Color:    LevelColor(level),
		})
	}
	return rings
}

// IsoseismalRadius inverts the attenuation law for one intensity level.
// It returns 0 when the level is not reached at the surface.
func IsoseismalRadius(level int, magnitude, depthKm float64) float64 {
	depth := ClampRingDepth(depthKm)
	exponent := (1.5*magnitude - float64(level) + 2.4) / 3.5
	power := math.Pow(10, exponent)
	radiusSquared := power*power - depth*depth
	if radiusSquared < 0 || math.IsNaN(radiusSquared) {
		return 0
	}
	return math.Sqrt(radiusSquared)
}

// ClampRingDepth raises any depth below DefaultDepthKm (and NaN) to DefaultDepthKm.
func ClampRingDepth(depthKm float64) float64 {
	if math.IsNaN(depthKm) || depthKm < DefaultDepthKm {
		return DefaultDepthKm
	}
	return depthKm
}

// LevelColor returns the palette color for an intensity level.
func LevelColor(level int) string {
	idx := min(level-1, len(intensityPalette)-1)
	if idx < 0 {
		idx = 0
	}
	return intensityPalette[idx]
}
