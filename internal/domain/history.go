package domain

import (
	"regexp"
	"strconv"
	"time"
)

// catalogDateRe finds a YYYY-M-D or YYYY/M/D date inside a catalog time field.
var catalogDateRe = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)

// Anniversary is a historical quake that happened on today's month and day.
// MaxIntensity is nil when the catalog magnitude is unreadable.
type Anniversary struct {
	Quake        HistoricalQuake `json:"quake"`
	MaxIntensity *float64        `json:"max_intensity"`
}

// OnThisDay returns the catalog records whose month and day match today in
// UTC+8, in catalog order, along with the number of records skipped because
// their time field could not be read.
func OnThisDay(catalog []HistoricalQuake, today time.Time) (matches []HistoricalQuake, skipped int) {
	today = today.In(Beijing)
	month, day := int(today.Month()), today.Day()

	matches = []HistoricalQuake{}
	for _, q := range catalog {
		m, d, ok := catalogMonthDay(q.Time)
		if !ok {
			skipped++
			continue
		}
		if m == month && d == day {
			matches = append(matches, q)
		}
	}
	return matches, skipped
}

func catalogMonthDay(s string) (month, day int, ok bool) {
	parts := catalogDateRe.FindStringSubmatch(s)
	if len(parts) != 4 {
		return 0, 0, false
	}
	month, errM := strconv.Atoi(parts[2])
	day, errD := strconv.Atoi(parts[3])
	if errM != nil || errD != nil {
		return 0, 0, false
	}
	return month, day, true
}
