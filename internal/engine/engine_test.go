package engine

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-overlay-service/internal/cache"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

var today = time.Date(2025, time.January, 1, 12, 0, 0, 0, domain.Beijing)

func newTestEngine(t *testing.T, opts Options) (*Engine, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	e, err := New(opts, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	require.NoError(t, err)
	return e, metrics
}

func event(loc string, magnitude float64, at time.Time) domain.EarthquakeEvent {
	return domain.EarthquakeEvent{Location: loc, Magnitude: magnitude, DepthKm: 10, OccurredAt: at}
}

func TestNew_InvalidCacheOptions(t *testing.T) {
	_, err := New(Options{Cache: cache.Options{Policy: cache.PolicyLRU}}, slog.Default(), observability.NewMetricsForTesting())
	require.ErrorIs(t, err, cache.ErrInvalidOptions)
}

func TestMaxIntensity_KnownValues(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	assert.InDelta(t, 9.5, e.MaxIntensity(7.2, 15), 1e-9)
	assert.InDelta(t, 6.5, e.MaxIntensity(6.0, 100), 1e-9)
	assert.InDelta(t, e.MaxIntensity(5.0, 10), e.MaxIntensity(5.0, 0), 1e-9)
}

func TestMaxIntensity_Cached(t *testing.T) {
	e, metrics := newTestEngine(t, Options{})

	first := e.MaxIntensity(6.0, 100)
	second := e.MaxIntensity(6.0, 100)

	assert.InDelta(t, first, second, 0)
	assert.Equal(t, 1, e.intensity.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("intensity", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("intensity", "miss")), 0)
}

func TestMaxIntensity_NaNDepthSharesDefaultKey(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	e.MaxIntensity(5.5, 10)
	e.MaxIntensity(5.5, math.NaN())

	assert.Equal(t, 1, e.intensity.Len())
}

func TestMaxIntensity_NaNMagnitudeBypassesCache(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	assert.True(t, math.IsNaN(e.MaxIntensity(math.NaN(), 10)))
	assert.Equal(t, 0, e.intensity.Len())
}

func TestRings_OuterFirstAndCached(t *testing.T) {
	e, metrics := newTestEngine(t, Options{})

	rings, err := e.Rings(6.0, 10)
	require.NoError(t, err)
	require.Len(t, rings, 8)

	assert.Equal(t, 1, rings[0].Level)
	assert.Equal(t, 8, rings[len(rings)-1].Level)
	require.NoError(t, domain.CheckRingOrder(rings))

	again, err := e.Rings(6.0, 10)
	require.NoError(t, err)
	if diff := cmp.Diff(rings, again); diff != "" {
		t.Errorf("cached rings mismatch (-first +second):\n%s", diff)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("rings", "hit")), 0)
}

func TestRings_LRUPolicyEvicts(t *testing.T) {
	e, _ := newTestEngine(t, Options{Cache: cache.Options{Policy: cache.PolicyLRU, MaxEntries: 2}})

	for _, m := range []float64{4.0, 5.0, 6.0} {
		_, err := e.Rings(m, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.rings.Len())
}

func TestOverlay_PolygonPerRing(t *testing.T) {
	e, _ := newTestEngine(t, Options{Segments: 36})

	overlays, err := e.Overlay(30.0, 103.0, 6.5, 12, 0)
	require.NoError(t, err)

	rings, err := e.Rings(6.5, 12)
	require.NoError(t, err)
	require.Len(t, overlays, len(rings))

	for i, o := range overlays {
		assert.Equal(t, rings[i], o.Ring)
		assert.Len(t, o.Polygon, 37)
		assert.NoError(t, domain.CheckPolygonClosed(o.Polygon))
	}
}

func TestOverlay_ExplicitSegmentsOverrideDefault(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	overlays, err := e.Overlay(0, 0, 5.0, 10, 12)
	require.NoError(t, err)
	require.NotEmpty(t, overlays)
	assert.Len(t, overlays[0].Polygon, 13)

	assert.Len(t, e.Circle(0, 0, 50, 0), domain.DefaultCircleSegments+1)
}

func TestAggregate_SameDayExample(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	events := []domain.EarthquakeEvent{
		event("四川宜宾", 4.0, today.Add(-2*time.Hour)),
		event("日本本州", 6.2, today.Add(-time.Hour)),
	}

	agg, err := e.Aggregate(events, domain.GranularityDay, today)
	require.NoError(t, err)

	want := []domain.AggregationBucket{{Key: "2025-01-01", Counts: [domain.BandCount]int{1, 0, 1, 0}}}
	if diff := cmp.Diff(want, agg.Buckets); diff != "" {
		t.Errorf("buckets mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_CachedByContent(t *testing.T) {
	e, metrics := newTestEngine(t, Options{})

	events := []domain.EarthquakeEvent{event("四川宜宾", 4.0, today.Add(-48*time.Hour))}

	_, err := e.Aggregate(events, domain.GranularityDay, today)
	require.NoError(t, err)
	_, err = e.Aggregate([]domain.EarthquakeEvent{events[0]}, domain.GranularityDay, today)
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AggregationRuns.WithLabelValues("day")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("aggregation", "hit")), 0)

	_, err = e.Aggregate(events, domain.GranularityMonth, today)
	require.NoError(t, err)
	_, err = e.Aggregate(events, domain.GranularityDay, today.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 3, e.aggregations.Len())
}

func TestAggregate_CacheBoundedUnderUnboundedPolicy(t *testing.T) {
	e, _ := newTestEngine(t, Options{Cache: cache.Options{Policy: cache.PolicyUnbounded}})

	events := []domain.EarthquakeEvent{event("四川宜宾", 4.0, today.Add(-48*time.Hour))}
	for i := range maxAggregations + 10 {
		_, err := e.Aggregate(events, domain.GranularityDay, today.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	assert.Equal(t, maxAggregations, e.aggregations.Len())

	for _, m := range []float64{4.0, 5.0, 6.0} {
		e.MaxIntensity(m, 10)
	}
	assert.Equal(t, 3, e.intensity.Len())
}

func TestAggregate_CacheFollowsConfiguredLRU(t *testing.T) {
	e, _ := newTestEngine(t, Options{Cache: cache.Options{Policy: cache.PolicyLRU, MaxEntries: 2}})

	events := []domain.EarthquakeEvent{event("四川宜宾", 4.0, today.Add(-48*time.Hour))}
	for i := range 5 {
		_, err := e.Aggregate(events, domain.GranularityDay, today.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, e.aggregations.Len())
}

func TestAggregate_CountsDroppedAndExcluded(t *testing.T) {
	e, metrics := newTestEngine(t, Options{})

	events := []domain.EarthquakeEvent{
		event("四川宜宾", 4.0, today),
		event("日本本州", 5.0, today.AddDate(0, 0, 3)),
		{Location: "新疆", Magnitude: 3.0},
	}

	agg, err := e.Aggregate(events, domain.GranularityDay, today)
	require.NoError(t, err)

	assert.Equal(t, 1, agg.Dropped)
	assert.Equal(t, 1, agg.Excluded)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AggregationDropped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AggregationExcluded), 0)
}

func TestChart_RegionFilter(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	events := []domain.EarthquakeEvent{
		event("四川宜宾", 4.0, today),
		event("黑龙江鹤岗", 5.1, today),
		event("日本本州东海岸", 6.2, today),
	}

	tests := []struct {
		region domain.Region
		want   [domain.BandCount]int
	}{
		{domain.RegionGlobal, [domain.BandCount]int{1, 1, 1, 0}},
		{domain.RegionDomestic, [domain.BandCount]int{1, 1, 0, 0}},
		{domain.RegionForeign, [domain.BandCount]int{0, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(string(tt.region), func(t *testing.T) {
			chart, err := e.Chart(events, domain.Period7Days, tt.region, today)
			require.NoError(t, err)
			require.Len(t, chart.Labels, 7)
			assert.Equal(t, "1-1", chart.Labels[6])

			var got [domain.BandCount]int
			for b, s := range chart.Series {
				got[b] = s.Data[6]
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOnThisDay_AttachesIntensity(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	catalog := []domain.HistoricalQuake{
		{Epicenter: "甘肃古浪", Magnitude: "8.0", Depth: 0, Time: "1927-05-23 06:32"},
		{Epicenter: "河北唐山", Magnitude: 7.8, Depth: 11, Time: "1976/1/1 03:42"},
		{Epicenter: "unknown", Magnitude: 5, Time: "n/a"},
	}

	got := e.OnThisDay(catalog, today)
	require.Len(t, got, 1)
	assert.Equal(t, "河北唐山", got[0].Quake.Epicenter)
	require.NotNil(t, got[0].MaxIntensity)
	assert.InDelta(t, 10.3, *got[0].MaxIntensity, 1e-9)
}

func TestOnThisDay_UnreadableMagnitude(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	catalog := []domain.HistoricalQuake{{Epicenter: "云南", Magnitude: "约6级", Time: "1833-01-01"}}

	got := e.OnThisDay(catalog, today)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].MaxIntensity)
}
