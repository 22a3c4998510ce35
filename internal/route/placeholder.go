package route

// PlaceholderRoute is the record returned for an id that no longer resolves.
// Detail views must always have something to render, so an unknown id yields
// a generic bus route instead of an error.
func PlaceholderRoute(id string) RouteRecord {
	return RouteRecord{
		ID:          id,
		Title:       Title(ModeBus, "City Centre", ""),
		Description: "This route is no longer listed. Showing a typical service instead.",
		Image:       ImageFor(ModeBus),
		Status:      StatusScheduled,
		Mode:        ModeBus,
		Departure:   "09:00",
		Arrival:     "10:30",
		Duration:    DurationBetween("09:00", "10:30"),
		Price:       12.50,
	}
}
