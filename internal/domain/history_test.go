package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []HistoricalQuake{
	{Epicenter: "河北唐山", Magnitude: 7.8, Depth: 11, Time: "1976-07-28 03:42:53"},
	{Epicenter: "四川汶川", Magnitude: 8.0, Depth: 14, Time: "2008-05-12 14:28:04"},
	{Epicenter: "河北丰南", Magnitude: "7.1", Depth: "不明", Time: "1976/7/28 18:45"},
	{Epicenter: "山西洪洞", Magnitude: 8.0, Depth: "不明", Time: "公元1303年9月25日"},
	{Epicenter: "甘肃海原", Magnitude: 8.5, Depth: 17, Time: "1920-12-16 20:05"},
}

func TestOnThisDay(t *testing.T) {
	today := time.Date(2026, 7, 28, 10, 0, 0, 0, Beijing)

	matches, skipped := OnThisDay(testCatalog, today)

	require.Len(t, matches, 2)
	assert.Equal(t, "河北唐山", matches[0].Epicenter)
	assert.Equal(t, "河北丰南", matches[1].Epicenter)
	assert.Equal(t, 1, skipped)
}

func TestOnThisDay_UsesUTC8Date(t *testing.T) {
	// 20:00 UTC on July 27 is already July 28 in UTC+8.
	today := time.Date(2026, 7, 27, 20, 0, 0, 0, time.UTC)

	matches, _ := OnThisDay(testCatalog, today)

	assert.Len(t, matches, 2)
}

func TestOnThisDay_NoMatches(t *testing.T) {
	matches, skipped := OnThisDay(testCatalog, time.Date(2026, 1, 2, 9, 0, 0, 0, Beijing))

	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Equal(t, 1, skipped)
}

func TestOnThisDay_EmptyCatalog(t *testing.T) {
	matches, skipped := OnThisDay(nil, Now())

	assert.Empty(t, matches)
	assert.Zero(t, skipped)
}

func TestCatalogMonthDay(t *testing.T) {
	tests := []struct {
		in         string
		month, day int
		ok         bool
	}{
		{"2008-05-12 14:28:04", 5, 12, true},
		{"1976/7/28", 7, 28, true},
		{"about 1556-1-23 night", 1, 23, true},
		{"公元1303年9月25日", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		m, d, ok := catalogMonthDay(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.month, m, tt.in)
		assert.Equal(t, tt.day, d, tt.in)
	}
}
