package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// CachedSource wraps an EventSource and reuses its last successful result
// until the TTL elapses.
type CachedSource struct {
	inner   domain.EventSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu        sync.Mutex
	events    []domain.EarthquakeEvent
	fetchedAt time.Time
	lastErr   error
}

// NewCachedSource creates a TTL cache decorator around a source.
func NewCachedSource(inner domain.EventSource, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

// FetchEvents returns the cached events while they are fresh. Otherwise it
// fetches from the inner source while holding the lock, so concurrent
// callers share one fetch. Failures are not cached.
func (s *CachedSource) FetchEvents(ctx context.Context) ([]domain.EarthquakeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events != nil && s.clock.Since(s.fetchedAt) < s.ttl {
		s.metrics.FeedCache.WithLabelValues("hit").Inc()
		return s.events, nil
	}
	s.metrics.FeedCache.WithLabelValues("miss").Inc()

	events, err := s.inner.FetchEvents(ctx)
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	if events == nil {
		events = []domain.EarthquakeEvent{}
	}
	s.events = events
	s.fetchedAt = s.clock.Now()
	s.lastErr = nil
	return events, nil
}

// CheckReadiness returns nil unless the most recent fetch failed and no
// earlier result is cached.
func (s *CachedSource) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil && s.events == nil {
		return errors.Join(errors.New("event feed unavailable"), s.lastErr)
	}
	return nil
}
