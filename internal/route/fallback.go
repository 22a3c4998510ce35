package route

import (
	"fmt"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

type catalogueEntry struct {
	Destination     string
	DurationMinutes int
	Price           float64
}

// Hand-tuned so the synthetic timetable looks like a real departure board.
var (
	busCatalogue = []catalogueEntry{
		{"City Centre", 25, 2.80},
		{"University Campus", 18, 2.50},
		{"Central Station", 12, 2.50},
		{"Airport", 55, 6.50},
		{"Royal Infirmary", 22, 2.80},
		{"Retail Park", 30, 3.20},
		{"Riverside", 16, 2.50},
		{"Old Town", 20, 2.80},
		{"Business Park", 35, 3.50},
		{"Harbour", 28, 3.00},
	}

	trainCatalogue = []catalogueEntry{
		{"London Euston", 128, 89.50},
		{"Birmingham New Street", 88, 34.20},
		{"Leeds", 55, 21.60},
		{"Liverpool Lime Street", 50, 18.40},
		{"Edinburgh Waverley", 195, 72.00},
		{"Glasgow Central", 205, 74.50},
		{"Sheffield", 52, 19.90},
		{"York", 80, 31.75},
		{"Newcastle", 145, 58.30},
		{"Bristol Temple Meads", 180, 66.00},
	}
)

const (
	busStepMinutes   = 8
	trainStepMinutes = 12
	activeBand       = 3
)

// FallbackGenerator produces the synthetic timetable used when no live data is
// available. Its output depends only on the clock.
type FallbackGenerator struct {
	clock Clock
}

// NewFallbackGenerator creates a generator. A nil clock uses time.Now.
func NewFallbackGenerator(clock Clock) *FallbackGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &FallbackGenerator{clock: clock}
}

// Generate returns the full bus and train catalogue with departures staggered
// from now. It never returns an empty slice.
func (g *FallbackGenerator) Generate() []RouteRecord {
	now := g.clock()
	start := now.Hour()*60 + now.Minute()

	routes := make([]RouteRecord, 0, len(busCatalogue)+len(trainCatalogue))
	routes = appendCatalogue(routes, ModeBus, busCatalogue, start, busStepMinutes)
	routes = appendCatalogue(routes, ModeTrain, trainCatalogue, start, trainStepMinutes)
	return routes
}

func appendCatalogue(routes []RouteRecord, mode Mode, entries []catalogueEntry, start, step int) []RouteRecord {
	for i, e := range entries {
		dep := start + i*step
		status := StatusScheduled
		if i < activeBand {
			status = StatusActive
		}

		routes = append(routes, RouteRecord{
			ID:          fmt.Sprintf("%s-mock-%d", mode.Slug(), i),
			Title:       Title(mode, e.Destination, ""),
			Description: MappingFor(mode).DefaultDescription,
			Image:       ImageFor(mode),
			Status:      status,
			Mode:        mode,
			Departure:   FormatClock(dep),
			Arrival:     FormatClock(dep + e.DurationMinutes),
			Duration:    FormatDuration(e.DurationMinutes),
			Price:       Round2(e.Price),
		})
	}
	return routes
}
