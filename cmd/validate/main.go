// Command validate runs integrity checks over a saved earthquake feed and,
// optionally, the historical catalog. It verifies record normalization,
// isoseismal ring ordering, polygon closure, aggregation bucket accounting,
// and chart windowing, then reports pass/fail per phase.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed data/cenc_spot_infos.json \
//	  -catalog data/Historical_earthquakes.json \
//	  -today 2025-01-01
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-overlay-service/internal/adapter/feed"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/engine"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// validateSegments keeps polygon checks fast on large feeds.
const validateSegments = 36

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to a saved feed JSON")
	catalogPath := flag.String("catalog", "", "optional path to the historical catalog JSON")
	todayStr := flag.String("today", "", "calendar day to validate against, YYYY-MM-DD in UTC+8 (default: now)")
	flag.Parse()

	if *feedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*feedPath, *catalogPath, *todayStr); code != 0 {
		os.Exit(code)
	}
}

func run(feedPath, catalogPath, todayStr string) int {
	if todayStr != "" {
		day, err := time.ParseInLocation("2006-01-02", todayStr, domain.Beijing)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: parse -today: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(day.Add(12 * time.Hour)))
		defer domain.SetClock(nil)
	}
	today := domain.Now()

	fmt.Println("=== Quake Overlay Integrity Validation ===")
	fmt.Println()

	records, err := feed.LoadRecordsFile(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		return 1
	}

	var catalog []domain.HistoricalQuake
	if catalogPath != "" {
		catalog, err = feed.LoadCatalog(catalogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
			return 1
		}
	}

	eng, err := engine.New(engine.Options{Segments: validateSegments}, slog.Default(), observability.NewMetrics())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: create engine: %v\n", err)
		return 1
	}

	events := domain.ParseRawRecords(records)

	// ── Run validation phases ──
	phases := []*phase{
		validateNormalization(records, events),
		validateRings(eng, events),
		validatePolygons(eng, events),
		validateAggregation(eng, events, today),
		validateCharts(eng, events, today),
	}
	if catalog != nil {
		phases = append(phases, validateCatalog(eng, catalog, today))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d feed, %d catalog; today %s\n", len(records), len(catalog), domain.DayKey(today))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Normalization ──
// Every feed record must yield a usable magnitude, depth, and timestamp.

func validateNormalization(records []domain.RawQuakeRecord, events []domain.EarthquakeEvent) *phase {
	p := &phase{name: "Phase 1: Normalization (feed records)"}

	if len(records) != len(events) {
		p.errorf("parsed %d events from %d records", len(events), len(records))
	}
	for i, e := range events {
		if math.IsNaN(e.Magnitude) {
			p.errorf("record %d (%s): unreadable magnitude %v", i, e.Location, records[i].Level)
		}
		if e.DepthKm <= 0 || math.IsNaN(e.DepthKm) {
			p.errorf("record %d (%s): depth %g after normalization", i, e.Location, e.DepthKm)
		}
		if !e.HasTimestamp() {
			p.errorf("record %d (%s): unreadable timestamp %v", i, e.Location, records[i].CreatedAt)
		}
		if e.Lat < -90 || e.Lat > 90 {
			p.errorf("record %d (%s): latitude %g out of range", i, e.Location, e.Lat)
		}
	}
	return p
}

// ── Phase 2: Isoseismal rings ──
// Rings must run outer to inner and stop at the rounded-up maximum intensity.

func validateRings(eng *engine.Engine, events []domain.EarthquakeEvent) *phase {
	p := &phase{name: "Phase 2: Isoseismal Rings (ordering)"}

	for i, e := range events {
		if math.IsNaN(e.Magnitude) {
			continue
		}
		rings, err := eng.Rings(e.Magnitude, e.DepthKm)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		maxI := eng.MaxIntensity(e.Magnitude, e.DepthKm)
		if maxI >= 1 && len(rings) == 0 {
			p.errorf("record %d: M%.1f I=%.1f produced no rings", i, e.Magnitude, maxI)
		}
		for _, r := range rings {
			if r.Level < 1 || float64(r.Level) > math.Ceil(maxI) {
				p.errorf("record %d: ring level %d outside [1, %g]", i, r.Level, math.Ceil(maxI))
			}
			if r.RadiusKm < 0 || math.IsNaN(r.RadiusKm) {
				p.errorf("record %d: ring level %d radius %g", i, r.Level, r.RadiusKm)
			}
			if r.Color != domain.LevelColor(r.Level) {
				p.errorf("record %d: ring level %d color %s", i, r.Level, r.Color)
			}
		}
	}
	return p
}

// ── Phase 3: Polygons ──
// Every ring polygon must be closed, sized segments+1, and inside lon/lat bounds.

func validatePolygons(eng *engine.Engine, events []domain.EarthquakeEvent) *phase {
	p := &phase{name: "Phase 3: Geodesic Polygons (closure)"}

	for i, e := range events {
		if math.IsNaN(e.Magnitude) {
			continue
		}
		overlays, err := eng.Overlay(e.Lat, e.Lon, e.Magnitude, e.DepthKm, 0)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		for _, o := range overlays {
			if len(o.Polygon) != validateSegments+1 {
				p.errorf("record %d level %d: %d points", i, o.Ring.Level, len(o.Polygon))
			}
			if err := domain.CheckPolygonClosed(o.Polygon); err != nil {
				p.errorf("record %d level %d: %v", i, o.Ring.Level, err)
			}
			for _, pt := range o.Polygon {
				if pt.Lon < -180 || pt.Lon >= 180 || pt.Lat < -90 || pt.Lat > 90 {
					p.errorf("record %d level %d: point (%g, %g) out of bounds", i, o.Ring.Level, pt.Lon, pt.Lat)
					break
				}
			}
		}
	}
	return p
}

// ── Phase 4: Aggregation ──
// Buckets must be strictly descending, include today, and account for every event.

func validateAggregation(eng *engine.Engine, events []domain.EarthquakeEvent, today time.Time) *phase {
	p := &phase{name: "Phase 4: Aggregation (bucket accounting)"}

	for _, g := range []domain.Granularity{domain.GranularityDay, domain.GranularityMonth} {
		agg, err := eng.Aggregate(events, g, today)
		if err != nil {
			p.errorf("%s: %v", g, err)
			continue
		}
		if len(agg.Buckets) == 0 {
			p.errorf("%s: no buckets", g)
			continue
		}

		// Month buckets keep months of future-dated events, so only the day
		// range is guaranteed to start at today.
		if g == domain.GranularityDay && agg.Buckets[0].Key != domain.DayKey(today) {
			p.errorf("%s: first bucket %s, expected %s", g, agg.Buckets[0].Key, domain.DayKey(today))
		}
		if g == domain.GranularityMonth && !hasBucket(agg.Buckets, domain.MonthKey(today)) {
			p.errorf("%s: no bucket for current month %s", g, domain.MonthKey(today))
		}

		counted := 0
		for _, b := range agg.Buckets {
			for _, n := range b.Counts {
				counted += n
			}
		}
		if total := counted + agg.Dropped + agg.Excluded; total != len(events) {
			p.errorf("%s: %d counted + %d dropped + %d excluded != %d events",
				g, counted, agg.Dropped, agg.Excluded, len(events))
		}
		if agg.Dropped > 0 {
			fmt.Printf("  Note: %s aggregation dropped %d event(s) dated after today\n", g, agg.Dropped)
		}
	}
	return p
}

func hasBucket(buckets []domain.AggregationBucket, key string) bool {
	for _, b := range buckets {
		if b.Key == key {
			return true
		}
	}
	return false
}

// ── Phase 5: Charts ──
// Each period window must be chronological with one value per label per band.

func validateCharts(eng *engine.Engine, events []domain.EarthquakeEvent, today time.Time) *phase {
	p := &phase{name: "Phase 5: Chart Windows (7d/30d/12m)"}

	for _, period := range []domain.Period{domain.Period7Days, domain.Period30Days, domain.Period12Months} {
		for _, region := range []domain.Region{domain.RegionGlobal, domain.RegionDomestic, domain.RegionForeign} {
			chart, err := eng.Chart(events, period, region, today)
			if err != nil {
				p.errorf("%s/%s: %v", period, region, err)
				continue
			}
			checkChart(p, chart, region)
		}
	}
	return p
}

func checkChart(p *phase, c domain.Chart, region domain.Region) {
	if c.Period.Granularity() == domain.GranularityDay && len(c.Labels) != c.Period.Window() {
		p.errorf("%s/%s: %d labels, expected %d", c.Period, region, len(c.Labels), c.Period.Window())
	}
	if len(c.Labels) > c.Period.Window() {
		p.errorf("%s/%s: %d labels exceeds window %d", c.Period, region, len(c.Labels), c.Period.Window())
	}
	for i := 1; i < len(c.Keys); i++ {
		if c.Keys[i] <= c.Keys[i-1] {
			p.errorf("%s/%s: keys not chronological at %d (%s after %s)", c.Period, region, i, c.Keys[i], c.Keys[i-1])
		}
	}
	for b, s := range c.Series {
		if len(s.Data) != len(c.Labels) {
			p.errorf("%s/%s: series %d has %d values for %d labels", c.Period, region, b, len(s.Data), len(c.Labels))
		}
		if s.Label != domain.BandLabel(domain.MagnitudeBand(b)) {
			p.errorf("%s/%s: series %d labelled %q", c.Period, region, b, s.Label)
		}
	}
}

// ── Phase 6: Historical catalog ──
// Every catalog record must carry a readable date; today's matches must carry an intensity.

func validateCatalog(eng *engine.Engine, catalog []domain.HistoricalQuake, today time.Time) *phase {
	p := &phase{name: "Phase 6: Historical Catalog (dates)"}

	_, skipped := domain.OnThisDay(catalog, today)
	if skipped > 0 {
		p.errorf("%d of %d catalog records have no readable date", skipped, len(catalog))
	}

	matches := eng.OnThisDay(catalog, today)
	fmt.Printf("  Note: %d catalog quake(s) on %s\n", len(matches), today.Format("01-02"))
	for _, m := range matches {
		if m.MaxIntensity == nil {
			p.errorf("%s (%s): unreadable magnitude %v", m.Quake.Epicenter, m.Quake.Time, m.Quake.Magnitude)
		}
	}
	return p
}
