package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openmast/helmsman/internal/config"
	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/navigation"
	"github.com/openmast/helmsman/internal/route"
	"github.com/openmast/helmsman/internal/simulation"
	"github.com/openmast/helmsman/internal/storage/sqlite"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	routeStorage *sqlite.RouteStorage
	navService   *navigation.Service
	simService   *simulation.Service
	config       *config.Config
	logger       *logger.Logger
	wsServer     *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(routeStorage *sqlite.RouteStorage, navService *navigation.Service, simService *simulation.Service, config *config.Config, logger *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		routeStorage: routeStorage,
		navService:   navService,
		simService:   simService,
		config:       config,
		logger:       logger.Named("api-handler"),
		wsServer:     wsServer,
	}
}

// pointRequest is the wire form of a route point on create/add
type pointRequest struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Name        string  `json:"name"`
	WaypointRef *string `json:"waypoint_ref"`
	Notes       string  `json:"notes"`
}

func (p pointRequest) toRoutePoint() route.RoutePoint {
	return route.RoutePoint{
		ID:          route.NewPointID(),
		Position:    geo.Position{Lat: p.Lat, Lon: p.Lon},
		Name:        p.Name,
		WaypointRef: p.WaypointRef,
		Notes:       p.Notes,
	}
}

// ListRoutes returns all stored routes
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routeStorage.ListRoutes()
	if err != nil {
		h.logger.Error("Failed to list routes", logger.Error(err))
		http.Error(w, "Failed to list routes", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"count":  len(routes),
	})
}

// CreateRoute creates a new route from an ordered list of points
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string         `json:"name"`
		Points          []pointRequest `json:"route_points"`
		RoutingMethod   string         `json:"routing_method"`
		CruisingSpeedKn float64        `json:"cruising_speed_kn"`
		FuelBurnGPH     float64        `json:"fuel_burn_gph"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Route name is required", http.StatusBadRequest)
		return
	}
	for i, p := range req.Points {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			http.Error(w, fmt.Sprintf("Invalid coordinates at point %d", i), http.StatusBadRequest)
			return
		}
	}

	method := req.RoutingMethod
	if method == "" {
		method = h.config.Vessel.DefaultRoutingMethod
	}
	routingMethod, err := geo.ParseRoutingMethod(method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	speed := req.CruisingSpeedKn
	if speed == 0 {
		speed = h.config.Vessel.DefaultCruisingSpeedKn
	}
	fuelBurn := req.FuelBurnGPH
	if fuelBurn == 0 {
		fuelBurn = h.config.Vessel.DefaultFuelBurnGPH
	}

	now := time.Now().UTC()
	newRoute := route.Route{
		ID:              route.NewRouteID(),
		Name:            req.Name,
		RoutingMethod:   routingMethod,
		CruisingSpeedKn: speed,
		FuelBurnGPH:     fuelBurn,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, p := range req.Points {
		newRoute.Points = append(newRoute.Points, p.toRoutePoint())
	}
	newRoute = route.Recalculate(newRoute)

	if err := h.routeStorage.SaveRoute(&newRoute); err != nil {
		h.logger.Error("Failed to save route", logger.Error(err))
		http.Error(w, "Failed to save route", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Route created",
		logger.String("route_id", newRoute.ID),
		logger.String("name", newRoute.Name),
		logger.Int("points", len(newRoute.Points)))

	WriteJSON(w, http.StatusCreated, newRoute)
}

// GetRoute returns a single route by id
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing route ID", http.StatusBadRequest)
		return
	}

	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		h.logger.Error("Failed to load route", logger.String("route_id", id), logger.Error(err))
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, rt)
}

// UpdateRoute updates route metadata and planning figures
func (h *Handler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	var req struct {
		Name            *string  `json:"name"`
		RoutingMethod   *string  `json:"routing_method"`
		CruisingSpeedKn *float64 `json:"cruising_speed_kn"`
		FuelBurnGPH     *float64 `json:"fuel_burn_gph"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			http.Error(w, "Route name cannot be empty", http.StatusBadRequest)
			return
		}
		rt.Name = *req.Name
	}
	if req.RoutingMethod != nil {
		method, err := geo.ParseRoutingMethod(*req.RoutingMethod)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rt.RoutingMethod = method
	}
	if req.CruisingSpeedKn != nil {
		if *req.CruisingSpeedKn < 0 {
			http.Error(w, "Cruising speed cannot be negative", http.StatusBadRequest)
			return
		}
		rt.CruisingSpeedKn = *req.CruisingSpeedKn
	}
	if req.FuelBurnGPH != nil {
		if *req.FuelBurnGPH < 0 {
			http.Error(w, "Fuel burn cannot be negative", http.StatusBadRequest)
			return
		}
		rt.FuelBurnGPH = *req.FuelBurnGPH
	}

	updated := route.Recalculate(*rt)
	h.persistAndPublish(w, updated)
}

// DeleteRoute removes a route. An active session on the route is stopped.
func (h *Handler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if nav, _ := h.navService.Current(); nav != nil && nav.RouteID == id {
		h.navService.Stop()
	}

	deleted, err := h.routeStorage.DeleteRoute(id)
	if err != nil {
		h.logger.Error("Failed to delete route", logger.String("route_id", id), logger.Error(err))
		http.Error(w, "Failed to delete route", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	h.logger.Info("Route deleted", logger.String("route_id", id))

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "deleted",
		"route_id": id,
	})
}

// ValidateRoute returns the validation result for a route without modifying it
func (h *Handler) ValidateRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, route.Validate(*rt))
}

// AddRoutePoint appends or inserts a point into a route
func (h *Handler) AddRoutePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	var req struct {
		pointRequest
		InsertIndex *int `json:"insert_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	updated := route.AddPoint(*rt, req.toRoutePoint(), req.InsertIndex)
	h.persistAndPublish(w, updated)
}

// UpdateRoutePoint applies a partial update to a single point
func (h *Handler) UpdateRoutePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pointID := chi.URLParam(r, "pointID")

	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	var update route.PointUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if update.Position != nil && !update.Position.Valid() {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	updated, ok := route.UpdatePoint(*rt, pointID, update)
	if !ok {
		http.Error(w, "Point not found", http.StatusNotFound)
		return
	}
	h.persistAndPublish(w, updated)
}

// RemoveRoutePoint deletes a point from a route
func (h *Handler) RemoveRoutePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pointID := chi.URLParam(r, "pointID")

	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}
	if rt.PointIndex(pointID) < 0 {
		http.Error(w, "Point not found", http.StatusNotFound)
		return
	}

	updated := route.RemovePoint(*rt, pointID)
	h.persistAndPublish(w, updated)
}

// ReorderRoutePoints moves a point from one index to another
func (h *Handler) ReorderRoutePoints(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	var req struct {
		FromIndex int `json:"from_index"`
		ToIndex   int `json:"to_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	updated, err := route.ReorderPoints(*rt, req.FromIndex, req.ToIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.persistAndPublish(w, updated)
}

// ReverseRoute reverses the point order of a route and marks the name
func (h *Handler) ReverseRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, found, err := h.routeStorage.GetRoute(id)
	if err != nil {
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	updated := route.Reverse(*rt)
	updated.Name = rt.Name + " (Reversed)"
	updated = route.Recalculate(updated)
	h.persistAndPublish(w, updated)
}

// persistAndPublish saves a mutated route, refreshes any active navigation
// session following it, broadcasts the change, and writes the response.
func (h *Handler) persistAndPublish(w http.ResponseWriter, updated route.Route) {
	if err := h.routeStorage.SaveRoute(&updated); err != nil {
		h.logger.Error("Failed to save route",
			logger.String("route_id", updated.ID),
			logger.Error(err))
		http.Error(w, "Failed to save route", http.StatusInternalServerError)
		return
	}

	h.navService.UpdateRoute(updated)

	h.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeRouteUpdated,
		Data: map[string]interface{}{
			"route": updated,
		},
	})

	WriteJSON(w, http.StatusOK, updated)
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routeStorage.ListRoutes()
	status := "ok"
	if err != nil {
		status = "degraded"
	}

	nav, _ := h.navService.Current()

	response := map[string]interface{}{
		"status":            status,
		"route_count":       len(routes),
		"navigation_active": nav != nil,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]interface{}{
		"vessel": map[string]interface{}{
			"default_cruising_speed_kn": h.config.Vessel.DefaultCruisingSpeedKn,
			"default_fuel_burn_gph":     h.config.Vessel.DefaultFuelBurnGPH,
			"default_routing_method":    h.config.Vessel.DefaultRoutingMethod,
		},
		"navigation": map[string]interface{}{
			"default_arrival_radius_nm": h.config.Navigation.DefaultArrivalRadiusNM,
			"auto_advance":              h.config.Navigation.AutoAdvance,
			"magnetic_bearings":         h.config.Navigation.MagneticBearings,
		},
		"simulation": map[string]interface{}{
			"enabled":              h.config.Simulation.Enabled,
			"update_interval_secs": h.config.Simulation.UpdateIntervalSecs,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}
