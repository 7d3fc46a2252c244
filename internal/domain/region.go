package domain

import (
	"fmt"
	"strings"
)

// Region restricts which events feed the statistics.
type Region string

const (
	RegionGlobal   Region = "global"
	RegionDomestic Region = "domestic"
	RegionForeign  Region = "foreign"
)

// provinces are the province-level divisions a domestic location starts with.
var provinces = []string{
	"北京", "天津", "上海", "重庆", "河北", "河南", "山东", "山西", "湖北", "湖南",
	"广东", "广西", "福建", "黑龙江", "吉林", "辽宁", "内蒙古", "陕西", "宁夏", "甘肃",
	"新疆", "青海", "西藏", "贵州", "四川", "云南", "江西", "江苏", "浙江", "台湾",
	"海南", "香港", "澳门", "安徽",
}

// ParseRegion validates a region name. The empty string means global.
func ParseRegion(s string) (Region, error) {
	switch r := Region(s); r {
	case "":
		return RegionGlobal, nil
	case RegionGlobal, RegionDomestic, RegionForeign:
		return r, nil
	default:
		return "", fmt.Errorf("unknown region %q", s)
	}
}

// IsDomestic reports whether a location label starts with a province name.
func IsDomestic(location string) bool {
	location = strings.TrimSpace(location)
	for _, p := range provinces {
		if strings.HasPrefix(location, p) {
			return true
		}
	}
	return false
}

// FilterRegion returns the events of a region, preserving order. Events with
// an empty location count as foreign.
func FilterRegion(events []EarthquakeEvent, region Region) []EarthquakeEvent {
	if region == RegionGlobal || region == "" {
		return events
	}

	out := make([]EarthquakeEvent, 0, len(events))
	for _, e := range events {
		if IsDomestic(e.Location) == (region == RegionDomestic) {
			out = append(out, e)
		}
	}
	return out
}
