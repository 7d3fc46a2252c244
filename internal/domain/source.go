package domain

import "context"

// EventSource supplies the current list of earthquake reports, newest first.
type EventSource interface {
	FetchEvents(ctx context.Context) ([]EarthquakeEvent, error)
}
