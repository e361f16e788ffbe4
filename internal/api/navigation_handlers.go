package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/navigation"
	"github.com/openmast/helmsman/pkg/logger"
)

// GetNavigation returns the current session state and last computed snapshot
func (h *Handler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	nav, snapshot := h.navService.Current()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"active":     nav != nil,
		"navigation": nav,
		"snapshot":   snapshot,
	})
}

// StartNavigation begins following a stored route
func (h *Handler) StartNavigation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RouteID    string `json:"route_id"`
		StartIndex int    `json:"start_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.RouteID == "" {
		http.Error(w, "Route ID is required", http.StatusBadRequest)
		return
	}

	rt, found, err := h.routeStorage.GetRoute(req.RouteID)
	if err != nil {
		h.logger.Error("Failed to load route", logger.String("route_id", req.RouteID), logger.Error(err))
		http.Error(w, "Failed to load route", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}

	nav, err := h.navService.Start(*rt, req.StartIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, nav)
}

// StopNavigation ends the current session. Stopping when idle is a no-op.
func (h *Handler) StopNavigation(w http.ResponseWriter, r *http.Request) {
	h.navService.Stop()

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "stopped",
	})
}

// AdvanceNavigation moves the session to the next target point
func (h *Handler) AdvanceNavigation(w http.ResponseWriter, r *http.Request) {
	nav, err := h.navService.Advance()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// A nil state means the advance completed the route
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"navigation": nav,
		"complete":   nav == nil,
	})
}

// SkipToPoint sets the session's target point index directly
func (h *Handler) SkipToPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PointIndex int `json:"point_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	nav, err := h.navService.SkipTo(req.PointIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, nav)
}

// UpdateNavigationSettings applies a partial settings update to the session
func (h *Handler) UpdateNavigationSettings(w http.ResponseWriter, r *http.Request) {
	var settings navigation.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	nav, err := h.navService.UpdateSettings(settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, nav)
}

// PostPosition feeds one vessel position report into the navigation service
func (h *Handler) PostPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat       float64  `json:"lat"`
		Lon       float64  `json:"lon"`
		SOGKn     *float64 `json:"sog_kn"`
		Timestamp string   `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	report := navigation.PositionReport{
		Position:          geo.Position{Lat: req.Lat, Lon: req.Lon},
		SpeedOverGroundKn: req.SOGKn,
	}
	if !report.Position.Valid() {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			http.Error(w, "Invalid timestamp, expected RFC3339", http.StatusBadRequest)
			return
		}
		report.Timestamp = ts
	}

	snapshot, err := h.navService.HandlePosition(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snapshot,
	})
}
