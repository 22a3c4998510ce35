package transportapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/routeboard/routeboard/internal/route"
)

// MaxStationsPerCall bounds how many configured stations one train fetch queries.
const MaxStationsPerCall = 3

// DefaultStations is the default station list (CRS codes).
var DefaultStations = []string{"PAD", "EUS", "KGX", "LST", "VIC", "WAT", "MAN", "BHM", "LDS"}

// TrainFetcherConfig holds configuration for the train fetcher.
type TrainFetcherConfig struct {
	Client *Client

	// Stations are CRS codes; only the first MaxStationsPerCall are queried.
	Stations []string

	// MaxRecords stops the fetch early once reached. Default: route.DefaultMaxPerMode
	MaxRecords int

	Logger zerolog.Logger
}

// TrainFetcher collects live departures from a fixed set of stations.
type TrainFetcher struct {
	client     *Client
	stations   []string
	maxRecords int
	logger     zerolog.Logger
}

// NewTrainFetcher validates cfg and creates a train fetcher.
func NewTrainFetcher(cfg TrainFetcherConfig) (*TrainFetcher, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: train fetcher needs a client", route.ErrInvalidConfig)
	}
	if cfg.MaxRecords < 0 {
		return nil, fmt.Errorf("%w: max records must not be negative", route.ErrInvalidConfig)
	}
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = route.DefaultMaxPerMode
	}

	stations := make([]string, 0, MaxStationsPerCall)
	for _, s := range cfg.Stations {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		stations = append(stations, s)
		if len(stations) == MaxStationsPerCall {
			break
		}
	}
	if len(stations) == 0 {
		return nil, ErrNoStations
	}

	return &TrainFetcher{
		client:     cfg.Client,
		stations:   stations,
		maxRecords: cfg.MaxRecords,
		logger:     cfg.Logger.With().Str("provider", cfg.Client.Name()).Str("mode", "train").Logger(),
	}, nil
}

// Stations returns the stations queried per fetch.
func (f *TrainFetcher) Stations() []string {
	return append([]string(nil), f.stations...)
}

// Mode implements route.Fetcher.
func (f *TrainFetcher) Mode() route.Mode {
	return route.ModeTrain
}

// Fetch walks the station boards in order until enough departures are
// collected. A failing station is skipped; if every station fails the result
// is empty and the error nil.
func (f *TrainFetcher) Fetch(ctx context.Context) ([]route.RawRecord, error) {
	records := make([]route.RawRecord, 0, f.maxRecords)
	var errs []error

	for _, code := range f.stations {
		if len(records) >= f.maxRecords {
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		board, err := f.client.TrainDepartures(ctx, code)
		if err != nil {
			f.logger.Warn().Err(err).Str("station", code).Msg("skipping station")
			errs = append(errs, err)
			continue
		}

		name := board.StationName
		if name == "" {
			name = code
		}
		stationContext := map[string]string{
			route.ContextStopID:   code,
			route.ContextStopName: name,
			route.ContextLocality: name,
		}

		for _, entry := range board.Entries() {
			if len(records) >= f.maxRecords {
				break
			}
			records = append(records, route.RawRecord{
				Mode:    route.ModeTrain,
				Fields:  entry,
				Context: stationContext,
			})
		}
	}

	f.logger.Debug().Int("stations", len(f.stations)).Int("records", len(records)).Msg("train fetch complete")

	if len(records) == 0 && len(errs) > 0 {
		f.logger.Warn().Err(errors.Join(errs...)).Int("stations", len(f.stations)).Msg("no train departures from any station")
	}
	return records, nil
}
