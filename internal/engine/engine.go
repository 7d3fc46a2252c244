// Package engine wraps the pure seismic computations with explicit caches,
// invariant checks, logging, and metrics.
package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/quake-overlay-service/internal/cache"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// Options configures an Engine.
type Options struct {
	Cache    cache.Options
	Segments int
}

// maxAggregations bounds the aggregation cache when the configured policy is
// unbounded. Its keys change with every feed refresh and every new day.
const maxAggregations = 64

// quakeKey identifies an (M, D) pair. A NaN depth shares the key of the
// 10 km default it normalizes to under both depth rules.
type quakeKey struct {
	magnitude float64
	depthKm   float64
}

func newQuakeKey(magnitude, depthKm float64) quakeKey {
	if math.IsNaN(depthKm) {
		depthKm = domain.DefaultDepthKm
	}
	return quakeKey{magnitude: magnitude, depthKm: depthKm}
}

// cacheable reports whether a magnitude can serve as a map key. NaN never
// compares equal, so NaN keys would only ever miss.
func cacheable(magnitude float64) bool {
	return !math.IsNaN(magnitude)
}

// Engine memoizes intensity, ring, and aggregation results per process.
type Engine struct {
	intensity    *cache.Cache[quakeKey, float64]
	rings        *cache.Cache[quakeKey, []domain.IsoseismalRing]
	aggregations *cache.Cache[string, domain.Aggregation]
	segments     int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New creates an Engine whose caches follow opts.Cache. An unbounded policy
// still caps the aggregation cache at maxAggregations entries.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	intensity, err := cache.New[quakeKey, float64]("intensity", opts.Cache, metrics)
	if err != nil {
		return nil, err
	}
	rings, err := cache.New[quakeKey, []domain.IsoseismalRing]("rings", opts.Cache, metrics)
	if err != nil {
		return nil, err
	}
	aggregations, err := cache.New[string, domain.Aggregation]("aggregation", aggregationCacheOptions(opts.Cache), metrics)
	if err != nil {
		return nil, err
	}

	segments := opts.Segments
	if segments <= 0 {
		segments = domain.DefaultCircleSegments
	}

	return &Engine{
		intensity:    intensity,
		rings:        rings,
		aggregations: aggregations,
		segments:     segments,
		logger:       logger,
		metrics:      metrics,
	}, nil
}

func aggregationCacheOptions(opts cache.Options) cache.Options {
	if opts.Policy == cache.PolicyLRU {
		return opts
	}
	return cache.Options{Policy: cache.PolicyLRU, MaxEntries: maxAggregations}
}

// MaxIntensity returns the cached estimated maximum intensity for a quake.
func (e *Engine) MaxIntensity(magnitude, depthKm float64) float64 {
	if !cacheable(magnitude) {
		return domain.MaxIntensity(magnitude, depthKm)
	}
	return e.intensity.GetOrCompute(newQuakeKey(magnitude, depthKm), func() float64 {
		return domain.MaxIntensity(magnitude, depthKm)
	})
}

// Rings returns the cached isoseismal rings for a quake, outer to inner.
// The returned slice is shared and must not be modified.
func (e *Engine) Rings(magnitude, depthKm float64) ([]domain.IsoseismalRing, error) {
	compute := func() ([]domain.IsoseismalRing, error) {
		rings := domain.IsoseismalRings(magnitude, depthKm)
		if err := domain.CheckRingOrder(rings); err != nil {
			e.invariantViolated("rings", err, "magnitude", magnitude, "depth_km", depthKm)
			return nil, fmt.Errorf("rings for M%.1f at %.1f km: %w", magnitude, depthKm, err)
		}
		return rings, nil
	}
	if !cacheable(magnitude) {
		return compute()
	}
	return e.rings.GetOrTry(newQuakeKey(magnitude, depthKm), compute)
}

// Circle returns a closed geodesic polygon. segments <= 0 uses the engine default.
func (e *Engine) Circle(lat, lon, radiusKm float64, segments int) domain.Polygon {
	if segments <= 0 {
		segments = e.segments
	}
	return domain.CirclePolygon(lat, lon, radiusKm, segments)
}

// Overlay pairs every isoseismal ring of a quake with its polygon around the
// epicenter, outer ring first.
func (e *Engine) Overlay(lat, lon, magnitude, depthKm float64, segments int) ([]domain.RingOverlay, error) {
	rings, err := e.Rings(magnitude, depthKm)
	if err != nil {
		return nil, err
	}

	overlays := make([]domain.RingOverlay, 0, len(rings))
	for _, r := range rings {
		overlays = append(overlays, domain.RingOverlay{
			Ring:    r,
			Polygon: e.Circle(lat, lon, r.RadiusKm, segments),
		})
	}
	return overlays, nil
}

// Aggregate returns the cached day or month aggregation of events as of
// today. Dropped and excluded events are logged and counted on each miss.
func (e *Engine) Aggregate(events []domain.EarthquakeEvent, granularity domain.Granularity, today time.Time) (domain.Aggregation, error) {
	key := aggregationKey(events, granularity, today)
	return e.aggregations.GetOrTry(key, func() (domain.Aggregation, error) {
		agg := domain.Aggregate(events, granularity, today)
		if err := domain.CheckBucketOrder(agg.Buckets); err != nil {
			e.invariantViolated("buckets", err, "granularity", granularity.String())
			return domain.Aggregation{}, fmt.Errorf("aggregate by %s: %w", granularity, err)
		}

		e.metrics.AggregationRuns.WithLabelValues(granularity.String()).Inc()
		if agg.Dropped > 0 {
			e.metrics.AggregationDropped.Add(float64(agg.Dropped))
			e.logger.Debug("events outside aggregation range",
				"granularity", granularity.String(),
				"dropped", agg.Dropped,
				"buckets", len(agg.Buckets),
			)
		}
		if agg.Excluded > 0 {
			e.metrics.AggregationExcluded.Add(float64(agg.Excluded))
			e.logger.Debug("events without usable timestamp",
				"granularity", granularity.String(),
				"excluded", agg.Excluded,
			)
		}
		return agg, nil
	})
}

// Chart filters events by region, aggregates them for the period's
// granularity, and windows the result for the chart renderer.
func (e *Engine) Chart(events []domain.EarthquakeEvent, period domain.Period, region domain.Region, today time.Time) (domain.Chart, error) {
	filtered := domain.FilterRegion(events, region)
	agg, err := e.Aggregate(filtered, period.Granularity(), today)
	if err != nil {
		return domain.Chart{}, err
	}
	return domain.BuildChart(agg, period, today)
}

// OnThisDay returns catalog quakes that happened on today's month and day,
// each with its estimated maximum intensity.
func (e *Engine) OnThisDay(catalog []domain.HistoricalQuake, today time.Time) []domain.Anniversary {
	matches, skipped := domain.OnThisDay(catalog, today)
	if skipped > 0 {
		e.logger.Debug("catalog records without readable date", "skipped", skipped)
	}

	out := make([]domain.Anniversary, 0, len(matches))
	for _, q := range matches {
		a := domain.Anniversary{Quake: q}
		if mi := e.MaxIntensity(domain.ParseMagnitude(q.Magnitude), domain.NormalizeDepth(q.Depth)); !math.IsNaN(mi) {
			a.MaxIntensity = &mi
		}
		out = append(out, a)
	}
	return out
}

func (e *Engine) invariantViolated(check string, err error, args ...any) {
	e.metrics.InvariantViolations.WithLabelValues(check).Inc()
	e.logger.Error("invariant violated", append([]any{"check", check, "error", err}, args...)...)
}

// aggregationKey hashes everything Aggregate reads from its inputs: each
// event's magnitude and timestamp plus the granularity and today's date.
func aggregationKey(events []domain.EarthquakeEvent, granularity domain.Granularity, today time.Time) string {
	h := sha256.New()
	var buf [8]byte
	for _, ev := range events {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(ev.Magnitude))
		h.Write(buf[:])
		ts := int64(math.MinInt64)
		if ev.HasTimestamp() {
			ts = ev.OccurredAt.UnixNano()
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(ts))
		h.Write(buf[:])
	}
	fmt.Fprintf(h, "|%s|%s|%d", granularity, domain.DayKey(today), len(events))
	return hex.EncodeToString(h.Sum(nil))
}
