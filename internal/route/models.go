// Package route aggregates live departures from several transit upstreams into
// a single list of route records, substituting a synthetic timetable when no
// live data is usable.
package route

import (
	"errors"
	"strings"
	"time"
)

// Route errors.
var (
	ErrRouteNotFound = errors.New("route not found")
	ErrInvalidConfig = errors.New("invalid route service configuration")
)

// Unknown marks a departure, arrival or duration that could not be determined.
const Unknown = "—"

// DefaultMaxPerMode bounds how many records a single mode contributes to a result.
const DefaultMaxPerMode = 10

// DefaultFetchTimeout bounds a single fetcher within one aggregation.
const DefaultFetchTimeout = 10 * time.Second

// Mode represents a transport category.
type Mode string

const (
	ModeBus   Mode = "Bus"
	ModeTrain Mode = "Train"
	ModeMetro Mode = "Metro"
	ModeFerry Mode = "Ferry"
	ModeTram  Mode = "Tram"
)

// Slug returns the lower-case form used in record ids.
func (m Mode) Slug() string {
	return strings.ToLower(string(m))
}

// Status is the display status of a route. Besides the four known values it
// may carry an upstream operational status verbatim (e.g. "LATE").
type Status string

const (
	StatusPopular   Status = "Popular"
	StatusActive    Status = "Active"
	StatusUpcoming  Status = "Upcoming"
	StatusScheduled Status = "Scheduled"
)

// RouteRecord is the canonical route shape returned to callers.
type RouteRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Status      Status  `json:"status"`
	Mode        Mode    `json:"mode"`
	Departure   string  `json:"departure"`
	Arrival     string  `json:"arrival"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
}

// Source says where a result set came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Result is a complete aggregation result.
type Result struct {
	Routes []RouteRecord
	Source Source
}

// RawRecord is a single upstream departure entry tagged with the mode it was
// fetched for. Fields holds the loosely-typed upstream JSON object; Context
// holds values the fetcher knows about the stop or station the entry came from
// (see the Context* keys).
type RawRecord struct {
	Mode    Mode
	Fields  map[string]any
	Context map[string]string
}

// Keys fetchers put into RawRecord.Context.
const (
	ContextStopID   = "stop_id"
	ContextStopName = "stop_name"
	ContextLocality = "locality"
)

// Field returns the first non-empty string value among keys, checking the
// upstream fields before the fetch context.
func (r RawRecord) Field(keys ...string) string {
	for _, key := range keys {
		if v := stringValue(r.Fields[key]); v != "" {
			return v
		}
	}
	for _, key := range keys {
		if v := strings.TrimSpace(r.Context[key]); v != "" {
			return v
		}
	}
	return ""
}

// Number returns the first numeric value among keys.
func (r RawRecord) Number(keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := numberValue(r.Fields[key]); ok {
			return v, true
		}
	}
	return 0, false
}
