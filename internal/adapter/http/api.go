package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/quake-overlay-service/internal/adapter/geojson"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/engine"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// maxSegments bounds the segments query parameter.
const maxSegments = 720

// Accepted magnitude range. Far outside it the attenuation law overflows and
// the response could not be encoded.
const (
	minMagnitude = -3.0
	maxMagnitude = 12.0
)

var errNoSource = errors.New("no event feed configured")

// API serves the overlay engine over JSON. Events and catalog are optional;
// endpoints that need a missing one answer 503.
type API struct {
	engine  *engine.Engine
	events  domain.EventSource
	catalog []domain.HistoricalQuake
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAPI creates the API handlers. Pass a nil events source or catalog to
// disable the statistics or history endpoints.
func NewAPI(eng *engine.Engine, events domain.EventSource, catalog []domain.HistoricalQuake, logger *slog.Logger, metrics *observability.Metrics) *API {
	return &API{
		engine:  eng,
		events:  events,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
	}
}

type route struct {
	pattern string
	name    string
	handler http.Handler
}

func (r route) path() string {
	_, path, _ := strings.Cut(r.pattern, " ")
	return path
}

func (a *API) routes() []route {
	return []route{
		{"GET /api/v1/intensity", "intensity", http.HandlerFunc(a.handleIntensity)},
		{"GET /api/v1/rings", "rings", http.HandlerFunc(a.handleRings)},
		{"GET /api/v1/isoseismal", "isoseismal", http.HandlerFunc(a.handleIsoseismal)},
		{"GET /api/v1/stats", "stats", http.HandlerFunc(a.handleStats)},
		{"GET /api/v1/history/today", "history", http.HandlerFunc(a.handleHistory)},
	}
}

type intensityResponse struct {
	Magnitude    float64 `json:"magnitude"`
	DepthKm      float64 `json:"depth_km"`
	MaxIntensity float64 `json:"max_intensity"`
}

type ringsResponse struct {
	intensityResponse
	Rings []domain.IsoseismalRing `json:"rings"`
}

type historyResponse struct {
	Date    string               `json:"date"`
	Count   int                  `json:"count"`
	Matches []domain.Anniversary `json:"matches"`
}

func (a *API) handleIntensity(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuake(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, intensityResponse{
		Magnitude:    q.magnitude,
		DepthKm:      q.depthKm,
		MaxIntensity: a.engine.MaxIntensity(q.magnitude, q.depthKm),
	})
}

func (a *API) handleRings(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuake(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rings, err := a.engine.Rings(q.magnitude, q.depthKm)
	if err != nil {
		a.writeError(w, r, statusFor(err), err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, ringsResponse{
		intensityResponse: intensityResponse{
			Magnitude:    q.magnitude,
			DepthKm:      q.depthKm,
			MaxIntensity: a.engine.MaxIntensity(q.magnitude, q.depthKm),
		},
		Rings: rings,
	})
}

func (a *API) handleIsoseismal(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuake(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	lat, err := requiredFloat(r, "lat")
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if lat < -90 || lat > 90 {
		a.writeError(w, r, http.StatusBadRequest, fmt.Errorf("lat %g out of range [-90, 90]", lat))
		return
	}
	segments, err := optionalInt(r, "segments")
	if err != nil || segments < 0 || segments > maxSegments {
		a.writeError(w, r, http.StatusBadRequest, fmt.Errorf("segments must be an integer in [0, %d]", maxSegments))
		return
	}

	overlays, err := a.engine.Overlay(lat, lon, q.magnitude, q.depthKm, segments)
	if err != nil {
		a.writeError(w, r, statusFor(err), err)
		return
	}
	a.write(w, r, http.StatusOK, "application/geo+json", geojson.FeatureCollection(overlays))
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	region, err := domain.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	events, err := a.fetchEvents(r.Context())
	if err != nil {
		a.writeError(w, r, statusFor(err), err)
		return
	}

	chart, err := a.engine.Chart(events, period, region, domain.Now())
	if err != nil {
		a.writeError(w, r, statusFor(err), err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, chart)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil {
		a.writeError(w, r, http.StatusServiceUnavailable, errors.New("no historical catalog configured"))
		return
	}
	today := domain.Now()
	matches := a.engine.OnThisDay(a.catalog, today)
	a.writeJSON(w, r, http.StatusOK, historyResponse{
		Date:    today.Format("01-02"),
		Count:   len(matches),
		Matches: matches,
	})
}

func (a *API) fetchEvents(ctx context.Context) ([]domain.EarthquakeEvent, error) {
	if a.events == nil {
		return nil, errNoSource
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	events, err := a.events.FetchEvents(ctx)
	if err != nil {
		return nil, &feedError{err: err}
	}
	return events, nil
}

// feedError marks failures of the upstream feed.
type feedError struct{ err error }

func (e *feedError) Error() string { return "fetch events: " + e.err.Error() }
func (e *feedError) Unwrap() error { return e.err }

func statusFor(err error) int {
	var fe *feedError
	switch {
	case errors.Is(err, errNoSource):
		return http.StatusServiceUnavailable
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type quakeParams struct {
	magnitude float64
	depthKm   float64
}

// parseQuake reads magnitude (required) and depth (optional; absent or 0
// means unknown). Any finite depth is passed on, negative included: the
// domain raises shallow depths to the default for ring radii.
func parseQuake(r *http.Request) (quakeParams, error) {
	m, err := requiredFloat(r, "magnitude")
	if err != nil {
		return quakeParams{}, err
	}
	d, err := optionalFloat(r, "depth")
	if err != nil {
		return quakeParams{}, err
	}
	if m < minMagnitude || m > maxMagnitude {
		return quakeParams{}, fmt.Errorf("magnitude %g out of range [%g, %g]", m, minMagnitude, maxMagnitude)
	}
	return quakeParams{magnitude: m, depthKm: d}, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}
	return parseFinite(name, s)
}

func optionalFloat(r *http.Request, name string) (float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, nil
	}
	return parseFinite(name, s)
}

func parseFinite(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("query parameter %q: %q is not a finite number", name, s)
	}
	return f, nil
}

func optionalInt(r *http.Request, name string) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrInvariant) {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, "api request failed",
			"path", r.URL.Path,
			"status", status,
			"request_id", requestID(r.Context()),
			"error", err,
		)
	}
	a.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	a.write(w, r, status, "application/json", v)
}

// write encodes v before touching the response so an encoding failure can
// still be answered with a 500.
func (a *API) write(w http.ResponseWriter, r *http.Request, status int, contentType string, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		a.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}
