// Package feed turns the booking backend's payloads (JSON schedule or an
// iCalendar export of the room) into model.BookingRecord values.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"kioskgrid/internal/config"
	appLog "kioskgrid/internal/log"
	"kioskgrid/internal/model"
)

// Source delivers the current booking records for the range [from, to).
// Sources that cannot filter by range may return more.
type Source interface {
	Bookings(ctx context.Context, from, to time.Time) ([]model.BookingRecord, error)
}

// NewSource builds the Source selected by cfg.Feed.Kind.
func NewSource(cfg *config.Config) (Source, error) {
	if cfg.Feed.URL == "" {
		return nil, fmt.Errorf("feed: no url configured")
	}
	fetcher := NewFetcher(cfg.Feed.CacheDir, cfg.Feed.Timeout)
	loc := cfg.Location()

	switch cfg.Feed.Kind {
	case config.FeedICS:
		return &ICSSource{Fetcher: fetcher, URL: cfg.Feed.URL, Location: loc}, nil
	default:
		return &JSONSource{Fetcher: fetcher, URL: cfg.Feed.URL, RoomID: cfg.Feed.RoomID, Location: loc}, nil
	}
}

// JSONSource polls the booking backend's schedule endpoint.
type JSONSource struct {
	Fetcher  *Fetcher
	URL      string
	RoomID   string
	Location *time.Location
}

func (s *JSONSource) Bookings(ctx context.Context, _, _ time.Time) ([]model.BookingRecord, error) {
	u, err := s.requestURL()
	if err != nil {
		return nil, err
	}
	res, err := s.Fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	records, entryErrs, err := DecodeSchedule(res.Body, s.Location)
	if err != nil {
		return nil, err
	}
	for _, e := range entryErrs {
		appLog.Warn("feed entry skipped", "err", e)
	}
	appLog.Debug("feed decoded", "records", len(records), "skipped", len(entryErrs), "from_cache", res.FromCache)
	return records, nil
}

func (s *JSONSource) requestURL() (string, error) {
	if s.RoomID == "" {
		return s.URL, nil
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("feed: parse url: %w", err)
	}
	q := u.Query()
	q.Set("room_id", s.RoomID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
