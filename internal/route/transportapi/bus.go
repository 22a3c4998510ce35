package transportapi

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/routeboard/routeboard/internal/route"
)

// MaxStops bounds how many nearby stops one bus fetch queries.
const MaxStops = 10

// BusFetcherConfig holds configuration for the bus fetcher.
type BusFetcherConfig struct {
	Client *Client

	// Lat and Lon are the point whose nearby stops are queried.
	Lat float64
	Lon float64

	// MaxRecords stops the fetch early once reached. Default: route.DefaultMaxPerMode
	MaxRecords int

	Logger zerolog.Logger
}

// BusFetcher collects live bus departures from the stops nearest a fixed point.
type BusFetcher struct {
	client     *Client
	lat, lon   float64
	maxRecords int
	logger     zerolog.Logger
}

// NewBusFetcher validates cfg and creates a bus fetcher.
func NewBusFetcher(cfg BusFetcherConfig) (*BusFetcher, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: bus fetcher needs a client", route.ErrInvalidConfig)
	}
	if !validCoordinate(cfg.Lat, cfg.Lon) {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, cfg.Lat, cfg.Lon)
	}
	if cfg.MaxRecords < 0 {
		return nil, fmt.Errorf("%w: max records must not be negative", route.ErrInvalidConfig)
	}
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = route.DefaultMaxPerMode
	}

	return &BusFetcher{
		client:     cfg.Client,
		lat:        cfg.Lat,
		lon:        cfg.Lon,
		maxRecords: cfg.MaxRecords,
		logger:     cfg.Logger.With().Str("provider", cfg.Client.Name()).Str("mode", "bus").Logger(),
	}, nil
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Mode implements route.Fetcher.
func (f *BusFetcher) Mode() route.Mode {
	return route.ModeBus
}

// Fetch looks up nearby stops and walks their live boards in order until
// enough departures are collected. A failing stop is skipped; an unreachable
// upstream yields no records and a nil error.
func (f *BusFetcher) Fetch(ctx context.Context) ([]route.RawRecord, error) {
	stops, err := f.client.NearbyStops(ctx, f.lat, f.lon)
	if err != nil {
		f.logger.Warn().Err(err).Msg("nearby stop lookup failed, no bus departures")
		return []route.RawRecord{}, nil
	}
	if len(stops) > MaxStops {
		stops = stops[:MaxStops]
	}

	records := make([]route.RawRecord, 0, f.maxRecords)
	var errs []error

	for _, stop := range stops {
		if len(records) >= f.maxRecords {
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if stop.ATCOCode == "" {
			continue
		}

		board, err := f.client.BusDepartures(ctx, stop.ATCOCode)
		if err != nil {
			f.logger.Warn().Err(err).Str("stop", stop.ATCOCode).Msg("skipping bus stop")
			errs = append(errs, err)
			continue
		}

		name := stop.Name
		if board.Name != "" {
			name = board.Name
		}
		stopContext := map[string]string{
			route.ContextStopID:   stop.ATCOCode,
			route.ContextStopName: name,
			route.ContextLocality: stop.Locality,
		}

		for _, entry := range board.Entries() {
			if len(records) >= f.maxRecords {
				break
			}
			records = append(records, route.RawRecord{
				Mode:    route.ModeBus,
				Fields:  entry,
				Context: stopContext,
			})
		}
	}

	f.logger.Debug().Int("stops", len(stops)).Int("records", len(records)).Msg("bus fetch complete")

	if len(records) == 0 && len(errs) > 0 {
		f.logger.Warn().Err(errors.Join(errs...)).Int("stops", len(stops)).Msg("no bus departures from any stop")
	}
	return records, nil
}
