// Package transportapi fetches live bus and train departures from a
// TransportAPI-style upstream and hands them to the route engine as raw records.
package transportapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/routeboard/routeboard/internal/provider/resilience"
)

const (
	// ProviderName identifies this upstream.
	ProviderName = "transportapi"

	// DefaultBaseURL is the TransportAPI v3 base URL.
	DefaultBaseURL = "https://transportapi.com/v3/uk"
)

// Errors returned by the client and fetchers.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrNoStations        = errors.New("no stations configured")
	ErrUnexpectedStatus  = errors.New("unexpected status code")
)

// ClientConfig holds configuration for the TransportAPI client.
type ClientConfig struct {
	// AppID and AppKey are the upstream credentials.
	AppID  string
	AppKey string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TransportAPI client.
type Client struct {
	appID      string
	appKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new TransportAPI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the upstream name the client reports under.
func (c *Client) Name() string {
	return c.httpClient.Name()
}

// NearbyStops returns bus stops near the given point, nearest first.
func (c *Client) NearbyStops(ctx context.Context, lat, lon float64) ([]Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("type", "bus_stop")

	var resp placesResponse
	if err := c.get(resilience.WithOperation(ctx, "places"), "/places.json", q, &resp); err != nil {
		return nil, err
	}
	return resp.Member, nil
}

// BusDepartures returns the live board for a bus stop.
func (c *Client) BusDepartures(ctx context.Context, atcoCode string) (*BusBoard, error) {
	q := url.Values{}
	q.Set("group", "no")
	q.Set("nextbuses", "yes")

	var board BusBoard
	path := "/bus/stop/" + url.PathEscape(atcoCode) + "/live.json"
	if err := c.get(resilience.WithOperation(ctx, "bus_live"), path, q, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// TrainDepartures returns the live board for a station.
func (c *Client) TrainDepartures(ctx context.Context, stationCode string) (*TrainBoard, error) {
	var board TrainBoard
	path := "/train/station/" + url.PathEscape(stationCode) + "/live.json"
	if err := c.get(resilience.WithOperation(ctx, "train_live"), path, url.Values{}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	endpoint := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
