package models

// Route is one aggregated route as shown to clients.
type Route struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Status      string  `json:"status"`
	Mode        string  `json:"mode"`
	Departure   string  `json:"departure"`
	Arrival     string  `json:"arrival"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
}

// RouteList is the body of GET /v1/routes.
type RouteList struct {
	GeneratedAt Timestamp `json:"generatedAt"`
	Source      string    `json:"source"`
	Count       int       `json:"count"`
	Routes      []Route   `json:"routes"`
}

// Resolution tells whether a route lookup matched a current route.
type Resolution string

const (
	ResolutionFound       Resolution = "found"
	ResolutionPlaceholder Resolution = "placeholder"
)

// RouteDetail is the body of GET /v1/routes/{routeId}.
type RouteDetail struct {
	Resolution Resolution `json:"resolution"`
	Route      Route      `json:"route"`
}
