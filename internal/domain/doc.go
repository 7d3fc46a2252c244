// Package domain models earthquake report data and the numerical core that
// turns it into map overlays and chart statistics.
//
// # Data Source
//
// Reports originate from the China Earthquake Networks Center (CENC) quick
// report feed, deserialized upstream into flat JSON records. Each record
// carries a free-text location, a magnitude ("level"), a focal depth in km and
// a creation timestamp ("created_at"). Values arrive as JSON numbers or as
// strings, depending on the feed revision.
//
// # Feed Conventions
//
// Timestamps:
//
//	Epoch values with at most 10 digits are seconds, longer values are
//	milliseconds. Calendar dates are always taken in China Standard Time
//	(fixed UTC+8, no DST), see [Beijing].
//
// Depth:
//
//	0 or a non-numeric value means "not reported". It is normalized to
//	[DefaultDepthKm] once, at the boundary ([NormalizeDepth]).
//
// Location:
//
//	Domestic reports start with a province-level name, e.g. "四川甘孜州泸定县".
//	Foreign reports start with a country or sea region.
//
// # Attenuation Law
//
// Epicentral intensity follows a two-regime empirical law:
//
//	depth <= 40 km: I = 0.24 + 1.29*M
//	depth >  40 km: I = 1.5*M - 3.5*log10(depth) + 4.5
//
// Isoseismal radii invert the hypocentral form of the same law:
//
//	R(I) = sqrt((10^((1.5*M - I + 2.4) / 3.5))^2 - depth^2)
//
// where depth is clamped to at least 10 km. A negative radicand means the
// intensity is not reached at the surface and the radius is 0.
//
// # Magnitude Bands
//
// Chart statistics classify every event into one of four bands:
//
//	<5.0 | 5.0-5.9 | 6.0-6.9 | >=7.0
package domain
