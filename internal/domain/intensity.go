package domain

import (
	"math"
	"strconv"
)

// shallowDepthLimitKm is the boundary between the shallow and deep regimes
// of the attenuation law.
const shallowDepthLimitKm = 40.0

// MaxIntensity estimates the epicentral intensity for a magnitude and focal
// depth, rounded to one decimal. A depth of 0 or a non-finite depth is
// treated as DefaultDepthKm. Magnitude is not validated.
func MaxIntensity(magnitude, depthKm float64) float64 {
	if !isFinite(depthKm) || depthKm == 0 {
		depthKm = DefaultDepthKm
	}

	var intensity float64
	if depthKm <= shallowDepthLimitKm {
		intensity = 0.24 + 1.29*magnitude
	} else {
		intensity = 1.5*magnitude - 3.5*math.Log10(depthKm) + 4.5
	}
	return roundTenth(intensity)
}

// roundTenth rounds the exact binary value of v to one decimal, ties away
// from zero. Scaling by 10 first would round twice: 11.85 is stored as
// 11.8499..., which must round down.
func roundTenth(v float64) float64 {
	if !isFinite(v) {
		return v
	}
	if isTenthTie(v) {
		return math.Round(v*10) / 10
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}

// isTenthTie reports whether v lies exactly halfway between two tenths.
// Only fractions .25 and .75 can do so in binary, and v*10 is exact for them.
func isTenthTie(v float64) bool {
	_, frac := math.Modf(math.Abs(v))
	return frac == 0.25 || frac == 0.75
}
