package navigation

import (
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/route"
)

// ActiveNavigation is the state of the single "following a route" session.
// currentPointIndex is always >= 1: index 0 is the vessel's starting fix and
// is never itself a navigation target.
type ActiveNavigation struct {
	RouteID           string    `json:"route_id"`
	CurrentPointIndex int       `json:"current_point_index"`
	IsActive          bool      `json:"is_active"`
	CruisingSpeedKn   float64   `json:"cruising_speed_kn"`
	ArrivalRadiusNM   float64   `json:"arrival_radius_nm"`
	AutoAdvance       bool      `json:"auto_advance"`
	StartedAt         time.Time `json:"started_at"`

	// One-shot arrival latch for the current target. Re-armed only when the
	// target changes via an advance or skip.
	arrivalSignalled bool
}

// PositionReport is a single position tick from the vessel
type PositionReport struct {
	Position          geo.Position `json:"position"`
	SpeedOverGroundKn *float64     `json:"sog_kn,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}

// LegData is the derived navigation snapshot for one position tick. It is
// recomputed from scratch on every update and never mutated in place.
type LegData struct {
	TargetPoint         route.RoutePoint `json:"target_point"`
	DistanceRemainingNM float64          `json:"distance_remaining_nm"`
	BearingToTargetDeg  float64          `json:"bearing_to_target_deg"` // Degrees true
	MagneticBearingDeg  float64          `json:"magnetic_bearing_deg"`
	CrossTrackErrorNM   float64          `json:"cross_track_error_nm"` // Positive = starboard of track
	ETAMinutes          float64          `json:"eta_minutes"`
	LegProgressPct      float64          `json:"leg_progress_pct"`   // [0, 100]
	RouteProgressPct    float64          `json:"route_progress_pct"` // [0, 100]
	Position            geo.Position     `json:"position"`
	Timestamp           time.Time        `json:"timestamp"`
}

// Settings is a partial update of the session parameters. Nil fields are
// left unchanged; the target index is never touched here.
type Settings struct {
	CruisingSpeedKn *float64 `json:"cruising_speed_kn"`
	ArrivalRadiusNM *float64 `json:"arrival_radius_nm"`
	AutoAdvance     *bool    `json:"auto_advance"`
}

// Stop reasons carried on navigation_stopped events
const (
	StopReasonManual        = "manual"
	StopReasonRouteComplete = "route_complete"
	StopReasonSuperseded    = "superseded"
	StopReasonRouteChanged  = "route_changed"
)
