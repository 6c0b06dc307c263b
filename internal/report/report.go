// Package report runs one vacancy computation: feed and registry in,
// vacancy matrix out.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomvac/internal/config"
	"roomvac/internal/grid"
	"roomvac/internal/ics"
	appLog "roomvac/internal/log"
	"roomvac/internal/registry"
)

// Report is the immutable result of a single run.
type Report struct {
	Rooms       []string
	Hours       []time.Time
	Index       grid.Index
	Matrix      grid.Matrix
	Location    *time.Location
	RangeStart  time.Time
	RangeEnd    time.Time
	GeneratedAt time.Time
	EventCount  int
}

// FeedFetcher is satisfied by *ics.Fetcher.
type FeedFetcher interface {
	FetchOne(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// RoomLoader returns the tracked rooms in registry order.
type RoomLoader func() ([]string, error)

// Service builds reports and, for serve mode, keeps the latest one.
type Service struct {
	source    ics.Source
	fetcher   FeedFetcher
	rooms     RoomLoader
	loc       *time.Location
	startHour int
	endHour   int
	ttl       time.Duration
	clock     func() time.Time

	mu     sync.RWMutex
	latest *Report
}

// Options configures a Service. Zero StartHour/EndHour select 7..24.
type Options struct {
	Source    ics.Source
	Fetcher   FeedFetcher
	Rooms     RoomLoader
	Location  *time.Location
	StartHour int
	EndHour   int
	TTL       time.Duration
	Clock     func() time.Time
}

// NewService constructs a Service.
func NewService(opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.StartHour == 0 && opts.EndHour == 0 {
		opts.StartHour, opts.EndHour = 7, 24
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		source:    opts.Source,
		fetcher:   opts.Fetcher,
		rooms:     opts.Rooms,
		loc:       opts.Location,
		startHour: opts.StartHour,
		endHour:   opts.EndHour,
		ttl:       opts.TTL,
		clock:     opts.Clock,
	}
}

// FromConfig wires a Service to the configured feed and registry.
func FromConfig(cfg *config.Config) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	regPath, regOpts := cfg.Registry.Path, cfg.RegistryOptions()
	return NewService(Options{
		Source:    ics.Source{ID: cfg.Feed.ID, URL: cfg.Feed.URL},
		Fetcher:   ics.NewFetcher(cfg.FeedTimeout()),
		Rooms:     func() ([]string, error) { return registry.Load(regPath, regOpts) },
		Location:  loc,
		StartHour: cfg.Window.StartHour,
		EndHour:   cfg.Window.EndHour,
		TTL:       cfg.CacheTTL(),
	}), nil
}

// Build runs the whole pipeline for the day containing now. Feed and
// registry failures are returned; malformed events are only logged.
func (s *Service) Build(ctx context.Context, now time.Time) (Report, error) {
	res, err := s.fetcher.FetchOne(ctx, s.source)
	if err != nil {
		return Report{}, fmt.Errorf("feed %s: %w", s.source.ID, err)
	}
	rooms, err := s.rooms()
	if err != nil {
		return Report{}, err
	}

	now = now.In(s.loc)
	begin, end, err := grid.Window(now, s.startHour, s.endHour)
	if err != nil {
		return Report{}, err
	}

	events := ics.ParseFeed(res.Source, res.Body, s.loc)
	inWindow := ics.ClipToWindow(events, begin, end)

	hours := grid.HoursBetween(begin, end)
	idx := grid.NewIndex(rooms, hours)
	m := grid.BuildIndexed(idx, inWindow)

	appLog.Info("report built",
		"rooms", len(rooms),
		"hours", len(hours),
		"events", len(events),
		"events_in_window", len(inWindow),
		"range_start", begin.Format(time.RFC3339),
		"range_end", end.Format(time.RFC3339),
	)

	return Report{
		Rooms:       rooms,
		Hours:       hours,
		Index:       idx,
		Matrix:      m,
		Location:    s.loc,
		RangeStart:  begin,
		RangeEnd:    end,
		GeneratedAt: now,
		EventCount:  len(inWindow),
	}, nil
}

// Refresh rebuilds the report for the current time. On failure the
// previous report stays in place.
func (s *Service) Refresh(ctx context.Context) (Report, error) {
	r, err := s.Build(ctx, s.clock())
	if err != nil {
		appLog.Error("report refresh failed; keeping previous report", err, "feed", s.source.ID)
		return Report{}, err
	}
	s.mu.Lock()
	s.latest = &r
	s.mu.Unlock()
	return r, nil
}

// Current returns the latest report, rebuilding it when none exists, when
// it is older than the TTL, or when it belongs to a previous day. A stale
// report is still returned if the rebuild fails.
func (s *Service) Current(ctx context.Context) (Report, error) {
	now := s.clock().In(s.loc)

	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest != nil && !s.expired(latest, now) {
		return *latest, nil
	}

	r, err := s.Refresh(ctx)
	if err != nil {
		if latest != nil {
			return *latest, nil
		}
		return Report{}, err
	}
	return r, nil
}

func (s *Service) expired(r *Report, now time.Time) bool {
	y1, m1, d1 := r.GeneratedAt.In(s.loc).Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return true
	}
	return s.ttl > 0 && now.Sub(r.GeneratedAt) >= s.ttl
}
