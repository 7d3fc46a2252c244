// Package geojson renders isoseismal overlays for map clients.
package geojson

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/quake-overlay-service/internal/domain"
)

// Ring styling shared by every overlay feature.
const (
	FillOpacity   = 0.2
	StrokeOpacity = 0.8
	StrokeWidth   = 1.5
)

// FeatureCollection converts ring overlays, outer ring first, into a
// collection of polygon features. The collection's bbox covers every ring.
func FeatureCollection(overlays []domain.RingOverlay) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var bound orb.Bound
	for i, o := range overlays {
		poly := orb.Polygon{toRing(o.Polygon)}
		f := geojson.NewFeature(poly)
		f.Properties["level"] = o.Ring.Level
		f.Properties["radius_km"] = o.Ring.RadiusKm
		f.Properties["fillColor"] = o.Ring.Color
		f.Properties["fillOpacity"] = FillOpacity
		f.Properties["strokeColor"] = o.Ring.Color
		f.Properties["strokeOpacity"] = StrokeOpacity
		f.Properties["strokeWidth"] = StrokeWidth
		fc.Append(f)

		if i == 0 {
			bound = poly.Bound()
		} else {
			bound = bound.Union(poly.Bound())
		}
	}

	if len(overlays) > 0 {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

func toRing(p domain.Polygon) orb.Ring {
	ring := make(orb.Ring, len(p))
	for i, pt := range p {
		ring[i] = orb.Point{pt.Lon, pt.Lat}
	}
	return ring
}
