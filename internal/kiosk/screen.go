// Package kiosk owns the live schedule screen: it refreshes bookings from a
// feed, keeps the day window current and serves consistent snapshots to
// readers.
package kiosk

import (
	"context"
	"errors"
	"sync"
	"time"

	"kioskgrid/internal/config"
	"kioskgrid/internal/feed"
	appLog "kioskgrid/internal/log"
	"kioskgrid/internal/metrics"
	"kioskgrid/internal/model"
	"kioskgrid/internal/schedule"
)

// Screen pairs a grid with the last booking batch projected onto it.
//
// All mutation (refresh, day rollover) and every read go through mu, so a
// reader never sees a half-projected grid.
type Screen struct {
	// refreshMu serializes whole fetch-then-project passes so a slow fetch
	// can never overwrite a newer batch.
	refreshMu sync.Mutex

	mu sync.RWMutex

	grid        *schedule.Grid
	bookings    []model.BookingRecord
	stats       schedule.ProjectStats
	lastRefresh time.Time

	source feed.Source
	label  string
	now    func() time.Time
}

// Option customizes a Screen.
type Option func(*Screen)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Screen) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBusyLabel sets the label written into occupied cells.
func WithBusyLabel(label string) Option {
	return func(s *Screen) { s.label = label }
}

// NewScreen builds an empty screen anchored at the current date.
func NewScreen(gcfg schedule.GridConfig, src feed.Source, opts ...Option) (*Screen, error) {
	if src == nil {
		return nil, errors.New("kiosk: nil feed source")
	}
	s := &Screen{
		source: src,
		label:  schedule.DefaultBusyLabel,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	g, err := schedule.NewGrid(gcfg, s.now())
	if err != nil {
		return nil, err
	}
	s.grid = g
	return s, nil
}

// NewScreenFromConfig builds a screen with the grid shape and label of cfg.
func NewScreenFromConfig(cfg *config.Config, src feed.Source, opts ...Option) (*Screen, error) {
	gcfg := schedule.GridConfig{
		HourStart:  cfg.HourStart,
		HourEnd:    cfg.HourEnd,
		WindowSize: cfg.WindowDays,
		DayNames:   schedule.DayNamesFor(cfg.DayNames),
		Location:   cfg.Location(),
	}
	opts = append([]Option{WithBusyLabel(cfg.BusyLabel)}, opts...)
	return NewScreen(gcfg, src, opts...)
}

// Refresh fetches a new booking batch and re-projects the grid, rolling the
// window first if the date changed. On a feed error the previous projection
// stays on screen and the error is returned.
func (s *Screen) Refresh(ctx context.Context) (schedule.ProjectStats, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now()
	from, to := s.fetchRange(now)

	records, err := s.source.Bookings(ctx, from, to)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(metrics.ResultError).Inc()
		appLog.Error("refresh failed; keeping previous grid", err)
		return schedule.ProjectStats{}, err
	}
	metrics.FeedFetches.WithLabelValues(metrics.ResultOK).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.roll(now); err != nil {
		return schedule.ProjectStats{}, err
	}
	s.bookings = records
	s.project()
	s.lastRefresh = now
	metrics.LastRefresh.Set(float64(now.Unix()))

	appLog.Info("grid refreshed",
		"records", s.stats.Total,
		"projected", s.stats.Projected,
		"skipped", s.stats.Skipped(),
		"collisions", s.stats.Collisions,
		"anchor", s.grid.Anchor().String(),
	)
	return s.stats, nil
}

// Tick keeps the window anchored at today. When the civil date changed it
// rolls the window and re-projects the last batch, so bookings for days that
// are still visible move to their new columns without waiting for a fetch.
func (s *Screen) Tick() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rolled, err := s.roll(s.now())
	if err != nil || !rolled {
		return false, err
	}
	s.project()
	return true, nil
}

func (s *Screen) roll(now time.Time) (bool, error) {
	rolled, err := s.grid.RollWindow(now)
	if err != nil {
		return false, err
	}
	if rolled {
		metrics.WindowRolls.Inc()
		appLog.Info("day window rolled", "anchor", s.grid.Anchor().String())
	}
	return rolled, nil
}

// project must be called with mu held.
func (s *Screen) project() {
	s.stats = schedule.Project(s.grid, s.bookings, schedule.WithBusyLabel(s.label))
	metrics.ObserveProjection(
		s.stats.Projected,
		s.stats.Unconfirmed,
		s.stats.Malformed,
		s.stats.OutOfWindow,
		s.stats.Collisions,
		s.stats.Projected-s.stats.Collisions,
	)
}

// fetchRange is the span of the window the grid will show after rolling to now.
func (s *Screen) fetchRange(now time.Time) (time.Time, time.Time) {
	s.mu.RLock()
	loc := s.grid.Location()
	cols := s.grid.Cols()
	s.mu.RUnlock()

	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, cols)
}

// View is a consistent, detached picture of the screen at one instant.
type View struct {
	Now         time.Time
	Grid        schedule.GridSnapshot
	Current     *schedule.Slot
	Stats       schedule.ProjectStats
	LastRefresh time.Time
	Location    *time.Location
}

// View snapshots the grid and resolves the current slot under one lock.
func (s *Screen) View() View {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Now:         now.In(s.grid.Location()),
		Grid:        s.grid.Snapshot(),
		Stats:       s.stats,
		LastRefresh: s.lastRefresh,
		Location:    s.grid.Location(),
	}
	if slot, ok := schedule.CurrentSlot(s.grid, now); ok {
		v.Current = &slot
	}
	return v
}

// BookingsAt returns the confirmed bookings of the last batch that fall in
// slot, in feed order. A free or out-of-range slot yields an empty slice.
func (s *Screen) BookingsAt(slot schedule.Slot) []model.BookingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BookingRecord, 0)
	for _, b := range s.bookings {
		if !b.Valid() || !b.Confirmed {
			continue
		}
		if at, ok := s.grid.Locate(b.Start); ok && at == slot {
			out = append(out, b)
		}
	}
	return out
}

// CurrentSlot resolves the slot containing now.
func (s *Screen) CurrentSlot() (schedule.Slot, bool) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.CurrentSlot(s.grid, now)
}
