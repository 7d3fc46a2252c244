// Command chartdump reads a saved earthquake feed and prints the 7-day,
// 30-day, and 12-month magnitude-band charts as of a fixed day. It runs the
// same engine the service uses, so its output matches the stats endpoint.
//
// Usage:
//
//	go run ./cmd/chartdump \
//	  -feed data/cenc_spot_infos.json \
//	  -today 2025-01-01 \
//	  -region domestic \
//	  -granularity month \
//	  -out data/charts_250101.json
//
// -granularity additionally prints every bucket of the full day or month
// aggregation, not just the charted window.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-overlay-service/internal/adapter/feed"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/engine"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

var periods = []domain.Period{domain.Period7Days, domain.Period30Days, domain.Period12Months}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedPath := flag.String("feed", "", "path to a saved feed JSON (array, {data:[...]} or {data:{spot_infos:[...]}})")
	todayStr := flag.String("today", "", "calendar day to chart up to, YYYY-MM-DD in UTC+8 (default: now)")
	regionStr := flag.String("region", "global", "region filter: global, domestic, foreign")
	granularityStr := flag.String("granularity", "", "optionally print the full aggregation: day or month")
	out := flag.String("out", "", "optional output path for the charts as JSON")
	flag.Parse()

	if *feedPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -feed")
	}

	region, err := domain.ParseRegion(*regionStr)
	if err != nil {
		return err
	}
	var granularity domain.Granularity
	if *granularityStr != "" {
		if granularity, err = domain.ParseGranularity(*granularityStr); err != nil {
			return err
		}
	}

	// Freeze "today" so repeated runs over the same file agree.
	if *todayStr != "" {
		day, err := time.ParseInLocation("2006-01-02", *todayStr, domain.Beijing)
		if err != nil {
			return fmt.Errorf("parse -today: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(day.Add(12 * time.Hour)))
		defer domain.SetClock(nil)
	}
	today := domain.Now()

	records, err := feed.LoadRecordsFile(*feedPath)
	if err != nil {
		return err
	}
	events := domain.ParseRawRecords(records)
	log.Printf("%s: %d records, charting up to %s (%s)", *feedPath, len(events), domain.DayKey(today), region)

	eng, err := engine.New(engine.Options{}, slog.Default(), observability.NewMetrics())
	if err != nil {
		return err
	}

	charts := make(map[domain.Period]domain.Chart, len(periods))
	for _, p := range periods {
		chart, err := eng.Chart(events, p, region, today)
		if err != nil {
			return fmt.Errorf("chart %s: %w", p, err)
		}
		charts[p] = chart
		printChart(chart)
	}

	if *granularityStr != "" {
		agg, err := eng.Aggregate(domain.FilterRegion(events, region), granularity, today)
		if err != nil {
			return fmt.Errorf("aggregate by %s: %w", granularity, err)
		}
		printAggregation(agg)
	}

	printStats(eng, domain.FilterRegion(events, region))

	if *out != "" {
		if err := writeJSON(*out, charts); err != nil {
			return fmt.Errorf("writing charts: %w", err)
		}
		log.Printf("wrote charts: %s", *out)
	}
	return nil
}

func printChart(c domain.Chart) {
	fmt.Printf("\n=== %s (dropped=%d, excluded=%d) ===\n", c.Period, c.Dropped, c.Excluded)
	fmt.Printf("%-8s", "")
	for _, s := range c.Series {
		fmt.Printf("%10s", s.Label)
	}
	fmt.Println()

	for i, label := range c.Labels {
		fmt.Printf("%-8s", label)
		for _, s := range c.Series {
			fmt.Printf("%10d", s.Data[i])
		}
		fmt.Println()
	}
}

func printAggregation(agg domain.Aggregation) {
	fmt.Printf("\n=== %s aggregation, %d buckets (dropped=%d, excluded=%d) ===\n",
		agg.Granularity, len(agg.Buckets), agg.Dropped, agg.Excluded)
	fmt.Printf("%-12s", "")
	for b := range domain.BandCount {
		fmt.Printf("%10s", domain.BandLabel(domain.MagnitudeBand(b)))
	}
	fmt.Println()

	for _, bucket := range agg.Buckets {
		fmt.Printf("%-12s", bucket.Key)
		for _, n := range bucket.Counts {
			fmt.Printf("%10d", n)
		}
		fmt.Println()
	}
}

func printStats(eng *engine.Engine, events []domain.EarthquakeEvent) {
	var bands [domain.BandCount]int
	var domestic, undated int
	for _, e := range events {
		bands[domain.ClassifyMagnitude(e.Magnitude)]++
		if domain.IsDomestic(e.Location) {
			domestic++
		}
		if !e.HasTimestamp() {
			undated++
		}
	}

	fmt.Println("\n=== Stats ===")
	fmt.Printf("Total: %d (domestic=%d, foreign=%d, undated=%d)\n", len(events), domestic, len(events)-domestic, undated)
	for b, n := range bands {
		fmt.Printf("  %-8s %d\n", domain.BandLabel(domain.MagnitudeBand(b)), n)
	}

	strongest := strongestEvents(events, 5)
	if len(strongest) == 0 {
		return
	}
	fmt.Println("\nStrongest events:")
	for _, e := range strongest {
		rings, err := eng.Rings(e.Magnitude, e.DepthKm)
		if err != nil {
			fmt.Printf("  M%.1f %s: %v\n", e.Magnitude, e.Location, err)
			continue
		}
		outer := 0.0
		if len(rings) > 0 {
			outer = rings[0].RadiusKm
		}
		fmt.Printf("  M%.1f %-24s depth=%gkm I=%.1f rings=%d outer=%.1fkm %s\n",
			e.Magnitude, e.Location, e.DepthKm, eng.MaxIntensity(e.Magnitude, e.DepthKm),
			len(rings), outer, e.OccurredAt.Format(time.DateTime))
	}
}

// strongestEvents returns up to n events with a readable magnitude, strongest first.
func strongestEvents(events []domain.EarthquakeEvent, n int) []domain.EarthquakeEvent {
	valid := make([]domain.EarthquakeEvent, 0, len(events))
	for _, e := range events {
		if !math.IsNaN(e.Magnitude) {
			valid = append(valid, e)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Magnitude != valid[j].Magnitude {
			return valid[i].Magnitude > valid[j].Magnitude
		}
		return strings.Compare(valid[i].Location, valid[j].Location) < 0
	})
	return valid[:min(n, len(valid))]
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
