package route_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeboard/routeboard/internal/route"
)

func fixedRand(v float64) route.RandSource {
	return route.RandFunc(func() float64 { return v })
}

func TestNormalize_BusDeparture(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0.5))

	raw := route.RawRecord{
		Mode: route.ModeBus,
		Fields: map[string]any{
			"line_name":               "86",
			"direction":               "Manchester Piccadilly Gardens (Stop D)",
			"operator_name":           "Stagecoach",
			"aimed_departure_time":    "14:05",
			"expected_departure_time": "14:07",
		},
		Context: map[string]string{
			route.ContextStopID:   "1800SB12345",
			route.ContextStopName: "Oxford Road",
		},
	}

	r := n.Normalize(raw, 0)

	assert.Equal(t, "bus-1800sb12345-86-1405", r.ID)
	assert.Equal(t, "Bus to Manchester Piccadilly Gardens", r.Title)
	assert.Equal(t, "Stagecoach service 86 from Oxford Road.", r.Description)
	assert.Equal(t, route.ImageFor(route.ModeBus), r.Image)
	assert.Equal(t, route.StatusActive, r.Status)
	assert.Equal(t, route.ModeBus, r.Mode)
	assert.Equal(t, "14:07", r.Departure)
	assert.Equal(t, route.Unknown, r.Arrival)
	assert.Equal(t, route.Unknown, r.Duration)
	assert.Equal(t, 5.0, r.Price) // 2.5 + 0.5*5.0
}

func TestNormalize_TrainDeparture(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0))

	raw := route.RawRecord{
		Mode: route.ModeTrain,
		Fields: map[string]any{
			"train_uid":                "C12345",
			"destination_name":         "London Euston",
			"operator_name":            "Avanti West Coast",
			"platform":                 "5",
			"aimed_departure_time":     "09:15",
			"expected_departure_time":  "09:15",
			"destination_arrival_time": "11:23",
			"status":                   "ON TIME",
		},
		Context: map[string]string{
			route.ContextStopID:   "MAN",
			route.ContextStopName: "Manchester Piccadilly",
		},
	}

	r := n.Normalize(raw, 7)

	assert.Equal(t, "train-man-c12345", r.ID)
	assert.Equal(t, "Train to London Euston", r.Title)
	assert.Equal(t, "Avanti West Coast service C12345 from Manchester Piccadilly, platform 5.", r.Description)
	assert.Equal(t, route.StatusActive, r.Status)
	assert.Equal(t, "09:15", r.Departure)
	assert.Equal(t, "11:23", r.Arrival)
	assert.Equal(t, "2h 8m", r.Duration)
	assert.Equal(t, 10.0, r.Price)
}

func TestNormalize_UpstreamStatusPassesThrough(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0))

	r := n.Normalize(route.RawRecord{
		Mode:   route.ModeTrain,
		Fields: map[string]any{"train_uid": "X1", "status": "LATE"},
	}, 0)

	assert.Equal(t, route.Status("LATE"), r.Status)
}

func TestNormalize_UpstreamPrice(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0.99))

	r := n.Normalize(route.RawRecord{
		Mode:   route.ModeBus,
		Fields: map[string]any{"id": "svc-1", "fare": 3.456},
	}, 0)
	assert.Equal(t, 3.46, r.Price)

	r = n.Normalize(route.RawRecord{
		Mode:   route.ModeBus,
		Fields: map[string]any{"id": "svc-2", "price": -4.0},
	}, 0)
	assert.GreaterOrEqual(t, r.Price, 0.0)
	assert.Equal(t, 7.45, r.Price) // synthesized: 2.5 + 0.99*5
}

func TestNormalize_OutlandishPriceIsReplaced(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0.99))

	for _, price := range []any{1e307, "1e307", route.MaxFare + 0.01} {
		r := n.Normalize(route.RawRecord{
			Mode:   route.ModeBus,
			Fields: map[string]any{"id": "svc-3", "price": price},
		}, 0)

		assert.Equal(t, 7.45, r.Price, "price %v", price)
		_, err := json.Marshal(r)
		assert.NoError(t, err)
	}

	r := n.Normalize(route.RawRecord{
		Mode:   route.ModeBus,
		Fields: map[string]any{"id": "svc-4", "price": route.MaxFare},
	}, 0)
	assert.Equal(t, route.MaxFare, r.Price)
}

func TestNormalize_EmptyRecordUsesDefaults(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0))

	r := n.Normalize(route.RawRecord{Mode: route.ModeBus}, 20)

	assert.True(t, strings.HasPrefix(r.ID, "bus-live-"), r.ID)
	assert.Equal(t, "Bus to Unknown Destination", r.Title)
	assert.Equal(t, route.MappingFor(route.ModeBus).DefaultDescription, r.Description)
	assert.Equal(t, route.StatusUpcoming, r.Status)
	assert.Equal(t, route.Unknown, r.Departure)
	assert.Equal(t, route.Unknown, r.Arrival)
	assert.Equal(t, route.Unknown, r.Duration)
	assert.Equal(t, 2.5, r.Price)
}

func TestNormalize_RecordsWithoutIdentityGetDistinctIDs(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0))

	a := n.Normalize(route.RawRecord{Mode: route.ModeTrain}, 0)
	b := n.Normalize(route.RawRecord{Mode: route.ModeTrain}, 1)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestNormalize_StableIDForSameIdentity(t *testing.T) {
	n := route.NewNormalizer(nil)

	raw := route.RawRecord{
		Mode: route.ModeBus,
		Fields: map[string]any{
			"line":                    "42",
			"aimed_departure_time":    "10:00",
			"expected_departure_time": "10:04",
		},
		Context: map[string]string{route.ContextStopID: "stop-1"},
	}

	assert.Equal(t, n.Normalize(raw, 0).ID, n.Normalize(raw, 3).ID)
}

func TestNormalize_TitleFallsBackToLocality(t *testing.T) {
	n := route.NewNormalizer(fixedRand(0))

	r := n.Normalize(route.RawRecord{
		Mode:    route.ModeBus,
		Fields:  map[string]any{"line": "7"},
		Context: map[string]string{route.ContextLocality: "Salford"},
	}, 0)

	assert.Equal(t, "Bus to Salford", r.Title)
}

func TestNormalize_GenericModeUsesGenericMapping(t *testing.T) {
	n := route.NewNormalizer(fixedRand(1))

	r := n.Normalize(route.RawRecord{
		Mode: route.ModeFerry,
		Fields: map[string]any{
			"id":             "f-1",
			"destination":    "Isle of Man",
			"departure_time": "08:00",
			"arrival_time":   "11:45",
		},
	}, 0)

	assert.Equal(t, "ferry-f-1", r.ID)
	assert.Equal(t, "Ferry to Isle of Man", r.Title)
	assert.Equal(t, "3h 45m", r.Duration)
	assert.Equal(t, 20.0, r.Price) // 5 + 1*15
	assert.Equal(t, route.ImageFor(route.ModeFerry), r.Image)
}

func TestSyntheticPrice_Bands(t *testing.T) {
	tests := []struct {
		mode route.Mode
		min  float64
		max  float64
	}{
		{route.ModeBus, 2.5, 7.5},
		{route.ModeTrain, 10, 35},
		{route.ModeTram, 5, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.min, route.SyntheticPrice(tt.mode, fixedRand(0)))
			high := route.SyntheticPrice(tt.mode, fixedRand(0.999999))
			assert.LessOrEqual(t, high, tt.max)
			assert.Greater(t, high, tt.min)
		})
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		locality    string
		want        string
	}{
		{"plain", "Leeds", "", "Train to Leeds"},
		{"stop bay in parens", "Airport (Stop A)", "", "Train to Airport"},
		{"stand label", "Bus Station Stand B", "", "Train to Bus Station"},
		{"lone letter", "Market Street C", "", "Train to Market Street"},
		{"whitespace", "  York  ", "", "Train to York"},
		{"locality fallback", "", "Didsbury", "Train to Didsbury"},
		{"unknown", "", "", "Train to Unknown Destination"},
		{"bay label only", "(Stop A)", "Didsbury", "Train to Didsbury"},
		{"bare stand label", "Stand C", "", "Train to Unknown Destination"},
		{"single word kept", "Bay", "", "Train to Bay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, route.Title(route.ModeTrain, tt.destination, tt.locality))
		})
	}
}
