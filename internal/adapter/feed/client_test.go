package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	testAppID         = "test-app"
)

const sampleFeed = `[
	{"location":"四川宜宾市筠连县","level":"4.2","depth":"10","created_at":1735689600000,"latitude":"28.1","longitude":"104.5"},
	{"location":"日本本州东海岸附近海域","level":6.1,"depth":0,"created_at":"2024-12-31 08:00:00","latitude":37.5,"longitude":141.9}
]`

func testClient(url string, opts ClientOptions) (*Client, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return &Client{
		url:        url,
		appID:      opts.AppID,
		pageSize:   opts.PageSize,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    metrics,
	}, metrics
}

func TestClient_FetchEvents_Array(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL, ClientOptions{})
	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "四川宜宾市筠连县", events[0].Location)
	assert.InDelta(t, 4.2, events[0].Magnitude, 1e-9)
	assert.InDelta(t, 10.0, events[0].DepthKm, 1e-9)
	assert.Equal(t, "2025-01-01", domain.DayKey(events[0].OccurredAt))
	assert.InDelta(t, 28.1, events[0].Lat, 1e-9)

	assert.InDelta(t, domain.DefaultDepthKm, events[1].DepthKm, 1e-9, "depth 0 means unknown")
	assert.Equal(t, "2024-12-31", domain.DayKey(events[1].OccurredAt))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FeedRequests.WithLabelValues("success")), 0)
}

func TestClient_FetchRecords_CENCQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get(headerContentType), contentTypeJSON)

		var q listQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, 1, q.AlarmType)
		assert.Equal(t, testAppID, q.AppID)
		assert.Equal(t, 1100, q.PageQuery.PageSize)
		assert.Positive(t, q.Timestamp)

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"code":0,"data":{"spot_infos":` + sampleFeed + `}}`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, ClientOptions{AppID: testAppID, PageSize: 1100})
	records, err := c.FetchRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, json.Number("1735689600000"), records[0].CreatedAt)
}

func TestClient_FetchEvents_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL, ClientOptions{})
	_, err := c.FetchEvents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "maintenance")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FeedRequests.WithLabelValues("error")), 0)
}

func TestClient_FetchEvents_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL, ClientOptions{})
	_, err := c.FetchEvents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_FetchEvents_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := testClient(srv.URL, ClientOptions{})
	_, err := c.FetchEvents(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeRecords_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"bare array", sampleFeed, 2, false},
		{"empty array", ` [] `, 0, false},
		{"data array", `{"data":` + sampleFeed + `}`, 2, false},
		{"spot infos", `{"data":{"spot_infos":[]}}`, 0, false},
		{"missing data", `{"code":500}`, 0, true},
		{"null data", `{"data":null}`, 0, true},
		{"data without spot infos", `{"data":{"total":3}}`, 0, true},
		{"scalar data", `{"data":42}`, 0, true},
		{"empty body", ``, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	body := `[{"epicenter":"河北唐山","magnitude":7.8,"depth":11,"lat":39.6,"lng":118.2,"time":"1976-07-28 03:42"},
	          {"epicenter":"西藏察隅","magnitude":"8.5","depth":"不明","time":"1950/8/15"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "河北唐山", catalog[0].Epicenter)
	assert.Equal(t, "不明", catalog[1].Depth)
	assert.InDelta(t, domain.DefaultDepthKm, domain.NormalizeDepth(catalog[1].Depth), 0)
}

func TestLoadRecordsFile_Missing(t *testing.T) {
	_, err := LoadRecordsFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open feed file")
}
