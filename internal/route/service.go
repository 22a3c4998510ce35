package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves raw departures for one transport mode.
//
// Implementations absorb upstream failures: an unreachable upstream yields an
// empty slice and a nil error. A returned error is treated like an empty
// result and logged.
type Fetcher interface {
	// Mode returns the transport mode this fetcher serves.
	Mode() Mode

	// Fetch returns raw records in a fixed, reproducible order.
	Fetch(ctx context.Context) ([]RawRecord, error)
}

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	// Fetchers are queried concurrently; their output is merged in this order.
	Fetchers []Fetcher

	// Normalizer converts raw records (optional, defaults to a random-priced normalizer).
	Normalizer *Normalizer

	// Fallback produces the synthetic timetable (optional, defaults to wall-clock time).
	Fallback *FallbackGenerator

	// MaxPerMode caps records per mode (default: 10).
	MaxPerMode int

	// FetchTimeout bounds each fetcher; records collected before it expires
	// are kept. Default: DefaultFetchTimeout
	FetchTimeout time.Duration

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records aggregation counters (optional).
	Metrics *Metrics
}

// Service aggregates routes from all fetchers.
type Service struct {
	fetchers   []Fetcher
	normalizer *Normalizer
	fallback   *FallbackGenerator
	maxPerMode int
	fetchLimit time.Duration
	logger     zerolog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) (*Service, error) {
	for i, f := range cfg.Fetchers {
		if f == nil {
			return nil, fmt.Errorf("%w: fetcher %d is nil", ErrInvalidConfig, i)
		}
	}
	if cfg.FetchTimeout < 0 {
		return nil, fmt.Errorf("%w: fetch timeout must not be negative, got %s", ErrInvalidConfig, cfg.FetchTimeout)
	}
	if cfg.MaxPerMode < 0 {
		return nil, fmt.Errorf("%w: max per mode must not be negative, got %d", ErrInvalidConfig, cfg.MaxPerMode)
	}

	maxPerMode := cfg.MaxPerMode
	if maxPerMode == 0 {
		maxPerMode = DefaultMaxPerMode
	}

	fetchLimit := cfg.FetchTimeout
	if fetchLimit == 0 {
		fetchLimit = DefaultFetchTimeout
	}

	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}

	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewFallbackGenerator(nil)
	}

	return &Service{
		fetchers:   cfg.Fetchers,
		normalizer: normalizer,
		fallback:   fallback,
		maxPerMode: maxPerMode,
		fetchLimit: fetchLimit,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer(instrumentationName),
	}, nil
}

// GetRoutes returns the current route list. It never returns an empty slice.
func (s *Service) GetRoutes(ctx context.Context) []RouteRecord {
	return s.Aggregate(ctx).Routes
}

// Aggregate runs every fetcher, merges the normalized output and substitutes
// the fallback timetable when nothing usable came back. A result is either
// entirely live or entirely fallback.
func (s *Service) Aggregate(ctx context.Context) Result {
	ctx, span := s.tracer.Start(ctx, "route.GetRoutes")
	defer span.End()

	batches := s.fetchAll(ctx)

	var merged []RouteRecord
	for _, batch := range batches {
		for i, raw := range batch {
			merged = append(merged, s.normalizer.Normalize(raw, i))
		}
	}
	merged = DedupeAndCap(merged, s.maxPerMode)

	result := Result{Routes: merged, Source: SourceLive}
	if len(merged) == 0 {
		s.logger.Warn().
			Int("fetchers", len(s.fetchers)).
			Msg("no live routes available, serving fallback timetable")
		result = Result{Routes: s.fallback.Generate(), Source: SourceFallback}
	}

	span.SetAttributes(
		attribute.Int("routes.count", len(result.Routes)),
		attribute.String("routes.source", string(result.Source)),
	)
	s.metrics.recordAggregation(ctx, result.Source)

	s.logger.Debug().
		Int("routes", len(result.Routes)).
		Str("source", string(result.Source)).
		Msg("routes aggregated")

	return result
}

// fetchAll runs all fetchers concurrently and waits for every one of them.
// Batches are returned in fetcher order; a failed fetcher leaves a nil batch.
func (s *Service) fetchAll(ctx context.Context) [][]RawRecord {
	batches := make([][]RawRecord, len(s.fetchers))

	var g errgroup.Group
	for i, f := range s.fetchers {
		i, f := i, f
		g.Go(func() error {
			batches[i] = s.fetchOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	return batches
}

func (s *Service) fetchOne(ctx context.Context, f Fetcher) (records []RawRecord) {
	mode := f.Mode()
	ctx, cancel := context.WithTimeout(ctx, s.fetchLimit)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "route.Fetch",
		trace.WithAttributes(attribute.String("mode", string(mode))),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().
				Str("mode", string(mode)).
				Interface("panic", p).
				Msg("fetcher panicked")
			s.metrics.recordFetch(ctx, mode, 0, true)
			records = nil
		}
	}()

	records, err := f.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("mode", string(mode)).
			Msg("fetcher failed, mode contributes no routes")
		span.RecordError(err)
		s.metrics.recordFetch(ctx, mode, 0, true)
		return nil
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	s.metrics.recordFetch(ctx, mode, len(records), false)
	return records
}

// FindRoute looks id up in a fresh aggregation. It returns ErrRouteNotFound
// when no record matches.
func (s *Service) FindRoute(ctx context.Context, id string) (RouteRecord, error) {
	for _, r := range s.GetRoutes(ctx) {
		if r.ID == id {
			return r, nil
		}
	}
	return RouteRecord{}, fmt.Errorf("%w: %s", ErrRouteNotFound, id)
}

// ResolveRoute looks id up and applies the placeholder policy on a miss. The
// boolean reports whether the route was actually found.
func (s *Service) ResolveRoute(ctx context.Context, id string) (RouteRecord, bool) {
	r, err := s.FindRoute(ctx, id)
	if errors.Is(err, ErrRouteNotFound) {
		s.logger.Debug().Str("route_id", id).Msg("route not found, serving placeholder")
		return PlaceholderRoute(id), false
	}
	return r, true
}

// GetRouteByID returns the route with the given id, or the placeholder route
// when it cannot be resolved.
func (s *Service) GetRouteByID(ctx context.Context, id string) RouteRecord {
	r, _ := s.ResolveRoute(ctx, id)
	return r
}
