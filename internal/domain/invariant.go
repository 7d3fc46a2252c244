package domain

import (
	"errors"
	"fmt"
)

// ErrInvariant marks an internal invariant violation. Tolerant domain paths
// (coercion, clamping, dropped events) never return it.
var ErrInvariant = errors.New("internal invariant violation")

// CheckRingOrder verifies rings run outer to inner: levels strictly increasing
// and radii non-increasing.
func CheckRingOrder(rings []IsoseismalRing) error {
	for i := 1; i < len(rings); i++ {
		prev, cur := rings[i-1], rings[i]
		if cur.Level <= prev.Level || cur.RadiusKm > prev.RadiusKm {
			return fmt.Errorf("%w: ring %d (level %d, %.3f km) after level %d (%.3f km)",
				ErrInvariant, i, cur.Level, cur.RadiusKm, prev.Level, prev.RadiusKm)
		}
	}
	return nil
}

// CheckBucketOrder verifies bucket keys are unique and strictly descending.
func CheckBucketOrder(buckets []AggregationBucket) error {
	for i := 1; i < len(buckets); i++ {
		if buckets[i].Key >= buckets[i-1].Key {
			return fmt.Errorf("%w: bucket %q at %d is not older than %q",
				ErrInvariant, buckets[i].Key, i, buckets[i-1].Key)
		}
	}
	return nil
}

// CheckPolygonClosed verifies a polygon has at least two points and ends where it starts.
func CheckPolygonClosed(p Polygon) error {
	if len(p) < 2 {
		return fmt.Errorf("%w: polygon has %d points", ErrInvariant, len(p))
	}
	if p[0] != p[len(p)-1] {
		return fmt.Errorf("%w: polygon is not closed", ErrInvariant)
	}
	return nil
}
