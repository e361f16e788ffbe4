package api

import (
	"encoding/json"
	"net/http"
)

// GetSimulatedVessel returns the simulated vessel state
func (h *Handler) GetSimulatedVessel(w http.ResponseWriter, r *http.Request) {
	if h.simService == nil {
		http.Error(w, "Simulation not enabled", http.StatusServiceUnavailable)
		return
	}

	vessel, ok := h.simService.Get()
	if !ok {
		http.Error(w, "No simulated vessel", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, vessel)
}

// CreateSimulatedVessel starts the simulated vessel at a given position
func (h *Handler) CreateSimulatedVessel(w http.ResponseWriter, r *http.Request) {
	if h.simService == nil {
		http.Error(w, "Simulation not enabled", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
		HeadingDeg  float64 `json:"heading_deg"`
		SpeedKn     float64 `json:"speed_kn"`
		FollowRoute bool    `json:"follow_route"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}
	if req.HeadingDeg < 0 || req.HeadingDeg >= 360 {
		http.Error(w, "Invalid heading (0-359 degrees)", http.StatusBadRequest)
		return
	}
	if req.SpeedKn < 0 || req.SpeedKn > 100 {
		http.Error(w, "Invalid speed (0-100 knots)", http.StatusBadRequest)
		return
	}

	vessel, err := h.simService.Start(req.Lat, req.Lon, req.HeadingDeg, req.SpeedKn, req.FollowRoute)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusCreated, vessel)
}

// RemoveSimulatedVessel stops the simulated vessel
func (h *Handler) RemoveSimulatedVessel(w http.ResponseWriter, r *http.Request) {
	if h.simService == nil {
		http.Error(w, "Simulation not enabled", http.StatusServiceUnavailable)
		return
	}

	if err := h.simService.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "removed",
	})
}

// UpdateSimulationControls adjusts heading, speed, or route following
func (h *Handler) UpdateSimulationControls(w http.ResponseWriter, r *http.Request) {
	if h.simService == nil {
		http.Error(w, "Simulation not enabled", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		HeadingDeg  *float64 `json:"heading_deg"`
		SpeedKn     *float64 `json:"speed_kn"`
		FollowRoute *bool    `json:"follow_route"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.HeadingDeg != nil && (*req.HeadingDeg < 0 || *req.HeadingDeg >= 360) {
		http.Error(w, "Invalid heading (0-359 degrees)", http.StatusBadRequest)
		return
	}
	if req.SpeedKn != nil && (*req.SpeedKn < 0 || *req.SpeedKn > 100) {
		http.Error(w, "Invalid speed (0-100 knots)", http.StatusBadRequest)
		return
	}

	vessel, err := h.simService.UpdateControls(req.HeadingDeg, req.SpeedKn, req.FollowRoute)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, vessel)
}
