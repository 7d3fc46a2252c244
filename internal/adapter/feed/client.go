// Package feed adapts HTTP and file earthquake feeds to domain.EventSource.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// Client implements domain.EventSource against an HTTP JSON earthquake feed.
//
// Without an app ID it issues a plain GET. With one it POSTs the CENC
// event-list query, which answers with {"data":{"spot_infos":[...]}}.
type Client struct {
	url        string
	appID      string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// ClientOptions configures the optional CENC list query.
type ClientOptions struct {
	AppID    string
	PageSize int
}

// NewClient creates a feed client.
func NewClient(url string, timeout time.Duration, opts ClientOptions, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		url:      url,
		appID:    opts.AppID,
		pageSize: opts.PageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchEvents downloads the feed and normalizes every record.
func (c *Client) FetchEvents(ctx context.Context) ([]domain.EarthquakeEvent, error) {
	records, err := c.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ParseRawRecords(records), nil
}

// FetchRecords downloads the feed without normalizing it.
func (c *Client) FetchRecords(ctx context.Context) ([]domain.RawQuakeRecord, error) {
	start := time.Now()
	records, err := c.doRequest(ctx)
	c.metrics.FeedAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		c.logger.Warn("feed request failed", "url", c.url, "error", err)
		return nil, err
	}
	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	c.logger.Debug("feed fetched", "records", len(records), "duration", time.Since(start))
	return records, nil
}

func (c *Client) doRequest(ctx context.Context) ([]domain.RawQuakeRecord, error) {
	req, err := c.newRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	records, err := DecodeRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}

func (c *Client) newRequest(ctx context.Context) (*http.Request, error) {
	if c.appID == "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := json.Marshal(listQuery{
		AlarmType: 1,
		PageQuery: pageQuery{PageNo: 1, PageSize: c.pageSize},
		AppID:     c.appID,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return req, nil
}

// CENC event-list request types.

type listQuery struct {
	AlarmType int       `json:"alarm_type"`
	PageQuery pageQuery `json:"page_query"`
	AppID     string    `json:"app_id"`
	Timestamp int64     `json:"_t"`
}

type pageQuery struct {
	PageNo   int `json:"page_no"`
	PageSize int `json:"page_size"`
}
