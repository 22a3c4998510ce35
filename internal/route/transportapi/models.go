package transportapi

// Place is one entry of a places.json lookup.
type Place struct {
	ATCOCode    string `json:"atcocode"`
	Name        string `json:"name"`
	Locality    string `json:"locality"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// placesResponse is the places.json payload.
type placesResponse struct {
	Member []Place `json:"member"`
}

// departures holds the ungrouped departure list. Entries stay loosely typed
// because the upstream adds and drops fields between operators.
type departures struct {
	All []map[string]any `json:"all"`
}

// BusBoard is the live departure board for one bus stop.
type BusBoard struct {
	ATCOCode   string     `json:"atcocode"`
	Name       string     `json:"name"`
	Departures departures `json:"departures"`
}

// Entries returns the board's departures.
func (b *BusBoard) Entries() []map[string]any {
	return b.Departures.All
}

// TrainBoard is the live departure board for one station.
type TrainBoard struct {
	StationCode string     `json:"station_code"`
	StationName string     `json:"station_name"`
	Departures  departures `json:"departures"`
}

// Entries returns the board's departures.
func (b *TrainBoard) Entries() []map[string]any {
	return b.Departures.All
}
