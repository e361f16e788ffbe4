package route

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/openmast/helmsman/internal/geo"
)

// RoutePoint represents a single point in a route's ordered sequence.
// The first point (order 0) is the vessel's starting position and carries no
// leg data; every later point carries the distance and bearing of the leg
// from its immediate predecessor.
type RoutePoint struct {
	ID          string       `json:"id"`
	Position    geo.Position `json:"position"`
	Name        string       `json:"name,omitempty"`
	WaypointRef *string      `json:"waypoint_ref,omitempty"` // Reference to an external waypoint entity, treated as an opaque position
	Notes       string       `json:"notes,omitempty"`
	Order       int          `json:"order"`

	LegDistanceNM *float64 `json:"leg_distance_nm"` // nil iff order == 0
	LegBearingDeg *float64 `json:"leg_bearing_deg"` // Degrees true, [0, 360); nil iff order == 0
}

// Route represents a navigable route document. Aggregates are always kept
// consistent with the point sequence and cruising speed: every mutation goes
// through Recalculate before the route is returned to a caller.
type Route struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Points        []RoutePoint      `json:"route_points"`
	RoutingMethod geo.RoutingMethod `json:"routing_method"`

	CruisingSpeedKn float64 `json:"cruising_speed_kn"` // Knots, > 0
	FuelBurnGPH     float64 `json:"fuel_burn_gph"`     // Gallons per hour

	TotalDistanceNM      float64  `json:"total_distance_nm"`
	EstimatedDurationMin *float64 `json:"estimated_duration_min"` // Minutes; nil when cruising speed is not positive
	EstimatedFuelGal     float64  `json:"estimated_fuel_gal"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointUpdate carries a partial update for a route point. Nil fields are
// left unchanged; an empty WaypointRef clears the reference.
type PointUpdate struct {
	Name        *string       `json:"name"`
	Notes       *string       `json:"notes"`
	Position    *geo.Position `json:"position"`
	WaypointRef *string       `json:"waypoint_ref"`
}

// NewRouteID generates a route identifier
func NewRouteID() string {
	return fmt.Sprintf("rte_%08x", rand.Uint32())
}

// NewPointID generates a route point identifier
func NewPointID() string {
	return fmt.Sprintf("wpt_%08x", rand.Uint32())
}

// clonePoints returns an independent copy of a point slice so mutation
// operations never alias the caller's route document.
func clonePoints(points []RoutePoint) []RoutePoint {
	cloned := make([]RoutePoint, len(points))
	copy(cloned, points)
	return cloned
}

// PointIndex returns the index of the point with the given id, or -1
func (r *Route) PointIndex(pointID string) int {
	for i := range r.Points {
		if r.Points[i].ID == pointID {
			return i
		}
	}
	return -1
}
