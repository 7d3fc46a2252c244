package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Granularity is the calendar unit of an aggregation bucket.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMonth
)

func (g Granularity) String() string {
	switch g {
	case GranularityDay:
		return "day"
	case GranularityMonth:
		return "month"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// ParseGranularity accepts "day" or "month".
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "day":
		return GranularityDay, nil
	case "month":
		return GranularityMonth, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

// MagnitudeBand is one of the four fixed histogram classes.
type MagnitudeBand int

const (
	BandBelow5 MagnitudeBand = iota
	Band5
	Band6
	Band7Plus

	// BandCount is the number of magnitude bands.
	BandCount = 4
)

// ClassifyMagnitude maps a magnitude to its band. NaN falls into BandBelow5.
func ClassifyMagnitude(magnitude float64) MagnitudeBand {
	switch {
	case magnitude >= 7:
		return Band7Plus
	case magnitude >= 6:
		return Band6
	case magnitude >= 5:
		return Band5
	default:
		return BandBelow5
	}
}

// AggregationBucket counts events per magnitude band for one calendar unit.
type AggregationBucket struct {
	Key    string         `json:"bucket_key"`
	Counts [BandCount]int `json:"counts"`
}

// Aggregation is the result of one aggregation run. Buckets are ordered most
// recent first. Dropped counts events whose bucket fell outside the bucket set;
// Excluded counts events without a usable timestamp.
type Aggregation struct {
	Granularity Granularity         `json:"granularity"`
	Buckets     []AggregationBucket `json:"buckets"`
	Dropped     int                 `json:"dropped"`
	Excluded    int                 `json:"excluded"`
}

// Aggregate buckets events by UTC+8 calendar day or month up to and
// including today.
//
// Day buckets cover every day from the earliest event date through today with
// no gaps. Month buckets are the distinct months present in the events plus
// the current month. The result depends only on the events and today.
func Aggregate(events []EarthquakeEvent, granularity Granularity, today time.Time) Aggregation {
	agg := Aggregation{Granularity: granularity}

	dated := make([]EarthquakeEvent, 0, len(events))
	for _, e := range events {
		if !e.HasTimestamp() {
			agg.Excluded++
			continue
		}
		dated = append(dated, e)
	}

	var keyOf func(time.Time) string
	switch granularity {
	case GranularityMonth:
		agg.Buckets = monthBuckets(dated, today)
		keyOf = MonthKey
	default:
		agg.Granularity = GranularityDay
		agg.Buckets = dayBuckets(dated, today)
		keyOf = DayKey
	}

	index := make(map[string]int, len(agg.Buckets))
	for i, b := range agg.Buckets {
		index[b.Key] = i
	}

	for _, e := range dated {
		i, ok := index[keyOf(e.OccurredAt)]
		if !ok {
			agg.Dropped++
			continue
		}
		agg.Buckets[i].Counts[ClassifyMagnitude(e.Magnitude)]++
	}
	return agg
}

// DayKey formats the UTC+8 calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.In(Beijing).Format(dayKeyLayout)
}

// MonthKey formats the UTC+8 calendar month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.In(Beijing).Format(monthKeyLayout)
}

func dayBuckets(events []EarthquakeEvent, today time.Time) []AggregationBucket {
	end := startOfDay(today)
	start := end
	for _, e := range events {
		if d := startOfDay(e.OccurredAt); d.Before(start) {
			start = d
		}
	}

	// UTC+8 has no DST, so every calendar day is exactly 24h.
	days := int(end.Sub(start) / (24 * time.Hour))
	buckets := make([]AggregationBucket, days+1)
	for i := range buckets {
		buckets[i].Key = end.AddDate(0, 0, -i).Format(dayKeyLayout)
	}
	return buckets
}

func monthBuckets(events []EarthquakeEvent, today time.Time) []AggregationBucket {
	seen := map[string]struct{}{MonthKey(today): {}}
	for _, e := range events {
		seen[MonthKey(e.OccurredAt)] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	buckets := make([]AggregationBucket, len(keys))
	for i, k := range keys {
		buckets[i].Key = k
	}
	return buckets
}

func startOfDay(t time.Time) time.Time {
	t = t.In(Beijing)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Beijing)
}
