package route

// FieldMapping lists, for each canonical field, the upstream keys to read in
// order of preference. Adding a transport mode means adding one entry to
// fieldMappings.
type FieldMapping struct {
	Identity    []string
	Destination []string
	Locality    []string
	Line        []string
	Operator    []string
	Platform    []string
	Departure   []string
	Arrival     []string
	Price       []string
	Status      []string

	// DefaultDescription is used when no operator or line is known.
	DefaultDescription string

	// PriceBase and PriceSpread bound synthetic prices: base + rand*spread.
	PriceBase   float64
	PriceSpread float64
}

var fieldMappings = map[Mode]FieldMapping{
	ModeBus: {
		Identity:           []string{"id", "service_id"},
		Destination:        []string{"direction", "destination_name", "dir"},
		Locality:           []string{ContextLocality, ContextStopName},
		Line:               []string{"line_name", "line"},
		Operator:           []string{"operator_name", "operator"},
		Platform:           []string{"stop_bay"},
		Departure:          []string{"expected_departure_time", "best_departure_estimate", "aimed_departure_time"},
		Arrival:            []string{"expected_arrival_time", "arrival_time"},
		Price:              []string{"price", "fare"},
		Status:             []string{"status"},
		DefaultDescription: "Local bus service departing from a stop near you.",
		PriceBase:          2.5,
		PriceSpread:        5.0,
	},
	ModeTrain: {
		Identity:           []string{"train_uid", "service_timetable_id"},
		Destination:        []string{"destination_name", "destination"},
		Locality:           []string{ContextStopName, ContextLocality},
		Line:               []string{"service", "train_uid"},
		Operator:           []string{"operator_name", "operator"},
		Platform:           []string{"platform"},
		Departure:          []string{"expected_departure_time", "aimed_departure_time"},
		Arrival:            []string{"destination_arrival_time", "arrival_time"},
		Price:              []string{"price", "fare"},
		Status:             []string{"status"},
		DefaultDescription: "National rail service with live departure information.",
		PriceBase:          10,
		PriceSpread:        25,
	},
}

var genericMapping = FieldMapping{
	Identity:           []string{"id"},
	Destination:        []string{"destination", "destination_name", "direction"},
	Locality:           []string{ContextLocality, ContextStopName},
	Line:               []string{"line", "service"},
	Operator:           []string{"operator_name", "operator"},
	Platform:           []string{"platform"},
	Departure:          []string{"departure_time", "expected_departure_time", "aimed_departure_time"},
	Arrival:            []string{"arrival_time"},
	Price:              []string{"price", "fare"},
	Status:             []string{"status"},
	DefaultDescription: "Scheduled public transport service.",
	PriceBase:          5,
	PriceSpread:        15,
}

// MappingFor returns the field mapping for a mode, falling back to a generic
// mapping for modes without a dedicated upstream.
func MappingFor(mode Mode) FieldMapping {
	if m, ok := fieldMappings[mode]; ok {
		return m
	}
	return genericMapping
}

var modeImages = map[Mode]string{
	ModeBus:   "https://cdn.routeboard.app/images/modes/bus.jpg",
	ModeTrain: "https://cdn.routeboard.app/images/modes/train.jpg",
	ModeMetro: "https://cdn.routeboard.app/images/modes/metro.jpg",
	ModeFerry: "https://cdn.routeboard.app/images/modes/ferry.jpg",
	ModeTram:  "https://cdn.routeboard.app/images/modes/tram.jpg",
}

const defaultImage = "https://cdn.routeboard.app/images/modes/transit.jpg"

// ImageFor returns the display image for a mode. It never depends on upstream data.
func ImageFor(mode Mode) string {
	if img, ok := modeImages[mode]; ok {
		return img
	}
	return defaultImage
}
