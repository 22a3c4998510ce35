package route_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeboard/routeboard/internal/route"
)

// mockFetcher is a mock mode fetcher for testing.
type mockFetcher struct {
	mode    route.Mode
	records []route.RawRecord
	err     error
	delay   time.Duration
	panics  bool

	mu    sync.Mutex
	calls int
}

func (m *mockFetcher) Mode() route.Mode {
	return m.mode
}

func (m *mockFetcher) Fetch(ctx context.Context) ([]route.RawRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panics {
		panic("upstream exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func rawBus(n int) []route.RawRecord {
	out := make([]route.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, route.RawRecord{
			Mode: route.ModeBus,
			Fields: map[string]any{
				"line":                 fmt.Sprintf("%d", 10+i),
				"direction":            "City Centre",
				"aimed_departure_time": fmt.Sprintf("10:%02d", i),
			},
			Context: map[string]string{route.ContextStopID: "stop-a"},
		})
	}
	return out
}

func rawTrain(n int) []route.RawRecord {
	out := make([]route.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, route.RawRecord{
			Mode: route.ModeTrain,
			Fields: map[string]any{
				"train_uid":               fmt.Sprintf("T%03d", i),
				"destination_name":        "Leeds",
				"expected_departure_time": fmt.Sprintf("11:%02d", i),
			},
			Context: map[string]string{route.ContextStopID: "MAN"},
		})
	}
	return out
}

func newTestService(t *testing.T, fetchers ...route.Fetcher) *route.Service {
	t.Helper()
	svc, err := route.NewService(route.ServiceConfig{
		Fetchers:   fetchers,
		Normalizer: route.NewNormalizer(fixedRand(0.25)),
		Fallback:   route.NewFallbackGenerator(clockAt(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func countModes(routes []route.RouteRecord) map[route.Mode]int {
	counts := map[route.Mode]int{}
	for _, r := range routes {
		counts[r.Mode]++
	}
	return counts
}

func TestNewService_RejectsNilFetcher(t *testing.T) {
	_, err := route.NewService(route.ServiceConfig{
		Fetchers: []route.Fetcher{&mockFetcher{mode: route.ModeBus}, nil},
		Logger:   zerolog.Nop(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrInvalidConfig))
}

func TestNewService_RejectsNegativeCap(t *testing.T) {
	_, err := route.NewService(route.ServiceConfig{MaxPerMode: -1, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, route.ErrInvalidConfig)
}

func TestService_GetRoutes_MergesBusThenTrain(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus, records: rawBus(3)}
	train := &mockFetcher{mode: route.ModeTrain, records: rawTrain(2)}
	svc := newTestService(t, bus, train)

	result := svc.Aggregate(context.Background())

	assert.Equal(t, route.SourceLive, result.Source)
	require.Len(t, result.Routes, 5)
	for i, r := range result.Routes {
		if i < 3 {
			assert.Equal(t, route.ModeBus, r.Mode)
		} else {
			assert.Equal(t, route.ModeTrain, r.Mode)
		}
	}
	assert.Equal(t, "bus-stop-a-10-1000", result.Routes[0].ID)
	assert.Equal(t, "train-man-t000", result.Routes[3].ID)
}

func TestService_GetRoutes_FallbackWhenBothEmpty(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus}
	train := &mockFetcher{mode: route.ModeTrain}
	svc := newTestService(t, bus, train)

	result := svc.Aggregate(context.Background())

	assert.Equal(t, route.SourceFallback, result.Source)
	require.Len(t, result.Routes, 20)
	assert.Equal(t, map[route.Mode]int{route.ModeBus: 10, route.ModeTrain: 10}, countModes(result.Routes))

	assert.Equal(t, route.ModeBus, result.Routes[0].Mode)
	assert.Equal(t, route.StatusActive, result.Routes[0].Status)
	assert.Equal(t, route.ModeTrain, result.Routes[10].Mode)
	assert.Equal(t, route.StatusActive, result.Routes[10].Status)
}

func TestService_GetRoutes_FallbackWhenBothFail(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus, err: errors.New("connection refused")}
	train := &mockFetcher{mode: route.ModeTrain, panics: true}
	svc := newTestService(t, bus, train)

	routes := svc.GetRoutes(context.Background())

	require.NotEmpty(t, routes)
	assert.Equal(t, "bus-mock-0", routes[0].ID)
}

func TestService_GetRoutes_CapsBusAndSkipsFailedTrain(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus, records: rawBus(15)}
	train := &mockFetcher{mode: route.ModeTrain, err: errors.New("upstream down")}
	svc := newTestService(t, bus, train)

	result := svc.Aggregate(context.Background())

	assert.Equal(t, route.SourceLive, result.Source)
	assert.Len(t, result.Routes, 10)
	assert.Equal(t, map[route.Mode]int{route.ModeBus: 10}, countModes(result.Routes))
	for _, r := range result.Routes {
		assert.NotContains(t, r.ID, "mock")
	}
}

func TestService_GetRoutes_DuplicateIDsRemoved(t *testing.T) {
	dup := rawBus(2)
	dup = append(dup, dup[0])
	bus := &mockFetcher{mode: route.ModeBus, records: dup}
	svc := newTestService(t, bus)

	routes := svc.GetRoutes(context.Background())

	assert.Len(t, routes, 2)
}

func TestService_GetRoutes_RunsFetchersConcurrently(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus, records: rawBus(1), delay: 200 * time.Millisecond}
	train := &mockFetcher{mode: route.ModeTrain, records: rawTrain(1), delay: 200 * time.Millisecond}
	svc := newTestService(t, bus, train)

	start := time.Now()
	routes := svc.GetRoutes(context.Background())
	elapsed := time.Since(start)

	assert.Len(t, routes, 2)
	assert.Less(t, elapsed, 390*time.Millisecond)
}

func TestService_GetRoutes_StalledFetcherIsCutOff(t *testing.T) {
	bus := &mockFetcher{mode: route.ModeBus, records: rawBus(2)}
	train := &mockFetcher{mode: route.ModeTrain, records: rawTrain(2), delay: 5 * time.Second}
	svc, err := route.NewService(route.ServiceConfig{
		Fetchers:     []route.Fetcher{bus, train},
		Normalizer:   route.NewNormalizer(fixedRand(0.25)),
		FetchTimeout: 100 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	start := time.Now()
	result := svc.Aggregate(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, route.SourceLive, result.Source)
	assert.Equal(t, map[route.Mode]int{route.ModeBus: 2}, countModes(result.Routes))
}

func TestNewService_RejectsNegativeFetchTimeout(t *testing.T) {
	_, err := route.NewService(route.ServiceConfig{FetchTimeout: -time.Second, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, route.ErrInvalidConfig)
}

func TestService_GetRoutes_NoFetchers(t *testing.T) {
	svc := newTestService(t)

	routes := svc.GetRoutes(context.Background())

	assert.Len(t, routes, 20)
}

func TestService_GetRoutes_Properties(t *testing.T) {
	scenarios := map[string][]route.Fetcher{
		"live": {
			&mockFetcher{mode: route.ModeBus, records: rawBus(12)},
			&mockFetcher{mode: route.ModeTrain, records: rawTrain(12)},
		},
		"bus only": {
			&mockFetcher{mode: route.ModeBus, records: append(rawBus(4), route.RawRecord{Mode: route.ModeBus})},
			&mockFetcher{mode: route.ModeTrain, err: errors.New("boom")},
		},
		"fallback": {
			&mockFetcher{mode: route.ModeBus},
			&mockFetcher{mode: route.ModeTrain},
		},
	}

	for name, fetchers := range scenarios {
		t.Run(name, func(t *testing.T) {
			result := newTestService(t, fetchers...).Aggregate(context.Background())

			require.NotEmpty(t, result.Routes)

			ids := map[string]bool{}
			mock := 0
			for _, r := range result.Routes {
				assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
				ids[r.ID] = true

				unknownTime := r.Departure == route.Unknown || r.Arrival == route.Unknown
				assert.Equal(t, unknownTime, r.Duration == route.Unknown, "duration of %s", r.ID)
				assert.GreaterOrEqual(t, r.Price, 0.0)

				if strings.Contains(r.ID, "-mock-") {
					mock++
				}
			}

			for mode, n := range countModes(result.Routes) {
				assert.LessOrEqual(t, n, 10, "mode %s", mode)
			}

			if result.Source == route.SourceFallback {
				assert.Equal(t, len(result.Routes), mock)
			} else {
				assert.Zero(t, mock)
			}
		})
	}
}

func TestService_FindRoute(t *testing.T) {
	svc := newTestService(t,
		&mockFetcher{mode: route.ModeBus, records: rawBus(2)},
		&mockFetcher{mode: route.ModeTrain, records: rawTrain(2)},
	)

	r, err := svc.FindRoute(context.Background(), "train-man-t001")
	require.NoError(t, err)
	assert.Equal(t, "Train to Leeds", r.Title)

	_, err = svc.FindRoute(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, route.ErrRouteNotFound)
}

func TestService_GetRouteByID_Placeholder(t *testing.T) {
	svc := newTestService(t, &mockFetcher{mode: route.ModeBus}, &mockFetcher{mode: route.ModeTrain})

	r, found := svc.ResolveRoute(context.Background(), "does-not-exist")
	assert.False(t, found)
	assert.Equal(t, "does-not-exist", r.ID)

	r = svc.GetRouteByID(context.Background(), "does-not-exist")
	assert.Equal(t, route.ModeBus, r.Mode)
	assert.Equal(t, "09:00", r.Departure)
	assert.Equal(t, "10:30", r.Arrival)
	assert.Equal(t, "1h 30m", r.Duration)
	assert.Equal(t, 12.50, r.Price)
}

func TestService_GetRouteByID_FallbackRecord(t *testing.T) {
	svc := newTestService(t, &mockFetcher{mode: route.ModeBus}, &mockFetcher{mode: route.ModeTrain})

	r, found := svc.ResolveRoute(context.Background(), "train-mock-3")
	assert.True(t, found)
	assert.Equal(t, route.ModeTrain, r.Mode)
	assert.Equal(t, route.StatusScheduled, r.Status)
}
