package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/routeboard/routeboard/internal/api/models"
	"github.com/routeboard/routeboard/internal/api/response"
	"github.com/routeboard/routeboard/internal/route"
)

// RouteService is the part of route.Service the handlers need.
type RouteService interface {
	Aggregate(ctx context.Context) route.Result
	ResolveRoute(ctx context.Context, id string) (route.RouteRecord, bool)
}

// RouteHandler handles route endpoints.
type RouteHandler struct {
	service RouteService
	now     func() time.Time
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service RouteService) *RouteHandler {
	return &RouteHandler{service: service, now: time.Now}
}

// ListRoutes handles GET /v1/routes - the current aggregated route list.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	result := h.service.Aggregate(r.Context())

	routes := make([]models.Route, 0, len(result.Routes))
	for _, rec := range result.Routes {
		routes = append(routes, toModel(rec))
	}

	response.JSON(w, r, http.StatusOK, models.RouteList{
		GeneratedAt: models.Timestamp(h.now()),
		Source:      string(result.Source),
		Count:       len(routes),
		Routes:      routes,
	})
}

// GetRoute handles GET /v1/routes/{routeId}. Unknown ids resolve to a
// placeholder route rather than a 404.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "routeId")

	rec, found := h.service.ResolveRoute(r.Context(), id)
	resolution := models.ResolutionFound
	if !found {
		resolution = models.ResolutionPlaceholder
	}

	response.JSON(w, r, http.StatusOK, models.RouteDetail{
		Resolution: resolution,
		Route:      toModel(rec),
	})
}

func toModel(rec route.RouteRecord) models.Route {
	return models.Route{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Image:       rec.Image,
		Status:      string(rec.Status),
		Mode:        string(rec.Mode),
		Departure:   rec.Departure,
		Arrival:     rec.Arrival,
		Duration:    rec.Duration,
		Price:       rec.Price,
	}
}
