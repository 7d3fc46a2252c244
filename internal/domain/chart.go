package domain

import (
	"fmt"
	"time"
)

// Period selects a chart window.
type Period string

const (
	Period7Days    Period = "7d"
	Period30Days   Period = "30d"
	Period12Months Period = "12m"
)

// ParsePeriod validates a chart period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Period7Days, Period30Days, Period12Months:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Granularity returns the bucket unit the period is built from.
func (p Period) Granularity() Granularity {
	if p == Period12Months {
		return GranularityMonth
	}
	return GranularityDay
}

// Window returns the number of buckets shown for the period.
func (p Period) Window() int {
	switch p {
	case Period30Days:
		return 30
	case Period12Months:
		return 12
	default:
		return 7
	}
}

// ChartSeries is the data of one magnitude band.
type ChartSeries struct {
	Label           string `json:"label"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
	Data            []int  `json:"data"`
}

// Chart is what the chart renderer consumes: chronological labels and exactly
// one series per magnitude band, in band order.
type Chart struct {
	Period   Period                 `json:"period"`
	Keys     []string               `json:"keys"`
	Labels   []string               `json:"labels"`
	Series   [BandCount]ChartSeries `json:"datasets"`
	Dropped  int                    `json:"dropped"`
	Excluded int                    `json:"excluded"`
}

var bandStyles = [BandCount]struct {
	label, background, border string
}{
	{"≤4.9", "rgba(56, 235, 86, 0.7)", "rgba(56, 235, 86, 1.0)"},
	{"5.0-5.9", "rgba(54, 162, 235, 0.7)", "rgba(54, 162, 235, 1)"},
	{"6.0-6.9", "rgba(255, 159, 64, 0.7)", "rgba(255, 159, 64, 1)"},
	{"≥7.0", "rgba(255, 99, 132, 0.7)", "rgba(255, 99, 132, 1)"},
}

// BandLabel returns the display label of a magnitude band.
func BandLabel(b MagnitudeBand) string {
	return bandStyles[b].label
}

// BuildChart takes the trailing window of an aggregation and puts it in
// chronological order. Day windows always have exactly Window() entries,
// zero-filled for days before the first event. Month windows hold at most
// Window() entries labelled by their month key.
func BuildChart(agg Aggregation, period Period, today time.Time) (Chart, error) {
	if agg.Granularity != period.Granularity() {
		return Chart{}, fmt.Errorf("period %s needs %s buckets, got %s", period, period.Granularity(), agg.Granularity)
	}

	chart := Chart{Period: period, Dropped: agg.Dropped, Excluded: agg.Excluded}
	for b := range bandStyles {
		chart.Series[b] = ChartSeries{
			Label:           bandStyles[b].label,
			BackgroundColor: bandStyles[b].background,
			BorderColor:     bandStyles[b].border,
		}
	}

	var window []AggregationBucket
	if period.Granularity() == GranularityDay {
		window = dayWindow(agg.Buckets, period.Window(), today)
	} else {
		window = monthWindow(agg.Buckets, period.Window())
	}

	chart.Keys = make([]string, len(window))
	chart.Labels = make([]string, len(window))
	for b := range chart.Series {
		chart.Series[b].Data = make([]int, len(window))
	}
	for i, bucket := range window {
		chart.Keys[i] = bucket.Key
		chart.Labels[i] = chartLabel(bucket.Key, period)
		for b, n := range bucket.Counts {
			chart.Series[b].Data[i] = n
		}
	}
	return chart, nil
}

func dayWindow(buckets []AggregationBucket, size int, today time.Time) []AggregationBucket {
	byKey := make(map[string][BandCount]int, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b.Counts
	}

	end := startOfDay(today)
	window := make([]AggregationBucket, size)
	for i := range window {
		key := end.AddDate(0, 0, -(size - 1 - i)).Format(dayKeyLayout)
		window[i] = AggregationBucket{Key: key, Counts: byKey[key]}
	}
	return window
}

func monthWindow(buckets []AggregationBucket, size int) []AggregationBucket {
	n := min(size, len(buckets))
	window := make([]AggregationBucket, n)
	for i := 0; i < n; i++ {
		window[n-1-i] = buckets[i]
	}
	return window
}

func chartLabel(key string, period Period) string {
	if period.Granularity() == GranularityMonth {
		return key
	}
	d, err := time.ParseInLocation(dayKeyLayout, key, Beijing)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%d-%d", int(d.Month()), d.Day())
}
